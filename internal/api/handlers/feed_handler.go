package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"recipe-service/domain"
	"recipe-service/internal/api/presenters"
	"recipe-service/pkg/feed"
)

type (
	FeedHandler interface {
		GetFeed(c *fiber.Ctx) error
		AddComment(c *fiber.Ctx) error
		GetComments(c *fiber.Ctx) error
	}

	feedHandler struct {
		feedService feed.FeedService
		validator   *validator.Validate
	}
)

func NewFeedHandler(feedService feed.FeedService, validator *validator.Validate) FeedHandler {
	return &feedHandler{
		feedService: feedService,
		validator:   validator,
	}
}

func (h *feedHandler) GetFeed(c *fiber.Ctx) error {
	page, err := readPagination(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetFeed, err)
	}
	res, err := h.feedService.GetFeed(c.UserContext(), page.Page, page.PageSize)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedGetFeed, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetFeed)
}

func (h *feedHandler) AddComment(c *fiber.Ctx) error {
	req := new(domain.AddCommentRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedValidation, err)
	}

	res, err := h.feedService.AddComment(c.UserContext(), c.Params("id"), *req)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedAddComment, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddComment)
}

func (h *feedHandler) GetComments(c *fiber.Ctx) error {
	page, err := readPagination(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetComments, err)
	}
	res, err := h.feedService.GetComments(c.UserContext(), c.Params("id"), page.Page, page.PageSize)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedGetComments, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetComments)
}
