package handlers

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"recipe-service/domain"
	"recipe-service/internal/api/presenters"
	"recipe-service/pkg/recipe"
)

type (
	RecipeHandler interface {
		CreateRecipe(c *fiber.Ctx) error
		ListRecipes(c *fiber.Ctx) error
		GetRecipe(c *fiber.Ctx) error
		UpdateRecipe(c *fiber.Ctx) error
		DeleteRecipe(c *fiber.Ctx) error
		PublishRecipe(c *fiber.Ctx) error
		ApproveRecipe(c *fiber.Ctx) error
		BlockRecipe(c *fiber.Ctx) error
		ReprocessImage(c *fiber.Ctx) error
		AddFavorite(c *fiber.Ctx) error
		RemoveFavorite(c *fiber.Ctx) error
		AddReview(c *fiber.Ctx) error
		GetRating(c *fiber.Ctx) error
	}

	recipeHandler struct {
		recipeService recipe.RecipeService
		validator     *validator.Validate
	}
)

func NewRecipeHandler(recipeService recipe.RecipeService, validator *validator.Validate) RecipeHandler {
	return &recipeHandler{
		recipeService: recipeService,
		validator:     validator,
	}
}

func (h *recipeHandler) CreateRecipe(c *fiber.Ctx) error {
	req := new(domain.CreateRecipeRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedValidation, err)
	}

	res, err := h.recipeService.CreateRecipe(c.UserContext(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedCreateRecipe, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateRecipe)
}

func (h *recipeHandler) ListRecipes(c *fiber.Ctx) error {
	page, err := readPagination(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetRecipes, err)
	}
	filter := domain.RecipeListFilter{Pagination: page}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.Query = &q
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filter.Category = &category
	}
	if raw := c.Query("isPublished"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetRecipes, err)
		}
		filter.IsPublished = &published
	}

	res, err := h.recipeService.ListRecipes(c.UserContext(), filter)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedGetRecipes, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipes)
}

func (h *recipeHandler) GetRecipe(c *fiber.Ctx) error {
	res, err := h.recipeService.GetRecipe(c.UserContext(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedGetRecipeDetail, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipeDetail)
}

func (h *recipeHandler) UpdateRecipe(c *fiber.Ctx) error {
	req := new(domain.UpdateRecipeRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedValidation, err)
	}

	res, err := h.recipeService.UpdateRecipe(c.UserContext(), c.Params("id"), *req)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedUpdateRecipe, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateRecipe)
}

func (h *recipeHandler) DeleteRecipe(c *fiber.Ctx) error {
	res, err := h.recipeService.DeleteRecipe(c.UserContext(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedDeleteRecipe, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{
		"id":      res.Recipe.ID,
		"deleted": true,
	}, fiber.StatusOK, domain.MessageSuccessDeleteRecipe)
}

func (h *recipeHandler) PublishRecipe(c *fiber.Ctx) error {
	res, err := h.recipeService.PublishRecipe(c.UserContext(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedModerateRecipe, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessPublishRecipe)
}

func (h *recipeHandler) ApproveRecipe(c *fiber.Ctx) error {
	res, err := h.recipeService.ApproveRecipe(c.UserContext(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedModerateRecipe, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessApproveRecipe)
}

func (h *recipeHandler) BlockRecipe(c *fiber.Ctx) error {
	res, err := h.recipeService.BlockRecipe(c.UserContext(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedModerateRecipe, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessBlockRecipe)
}

func (h *recipeHandler) ReprocessImage(c *fiber.Ctx) error {
	job, err := h.recipeService.ReprocessImage(c.UserContext(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedReprocessImage, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{
		"enqueued": true,
		"recipeId": job.RecipeID,
		"blobName": job.BlobName,
	}, fiber.StatusAccepted, domain.MessageSuccessReprocessImage)
}

func (h *recipeHandler) AddFavorite(c *fiber.Ctx) error {
	req := new(domain.FavoriteRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedValidation, err)
	}

	recipeID := c.Params("id")
	userID, err := h.recipeService.AddFavorite(c.UserContext(), recipeID, *req)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedFavorite, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{
		"recipeId": recipeID,
		"userId":   userID,
	}, fiber.StatusCreated, domain.MessageSuccessAddFavorite)
}

func (h *recipeHandler) RemoveFavorite(c *fiber.Ctx) error {
	recipeID := c.Params("id")
	userID, err := h.recipeService.RemoveFavorite(c.UserContext(), recipeID, c.Query("userId"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedFavorite, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{
		"recipeId": recipeID,
		"userId":   userID,
		"deleted":  true,
	}, fiber.StatusOK, domain.MessageSuccessRemoveFavorite)
}

func (h *recipeHandler) AddReview(c *fiber.Ctx) error {
	req := new(domain.AddReviewRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedValidation, err)
	}
	req.RecipeID = c.Params("id")

	res, err := h.recipeService.AddReview(c.UserContext(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedAddReview, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddReview)
}

func (h *recipeHandler) GetRating(c *fiber.Ctx) error {
	res, err := h.recipeService.GetRatingAverage(c.UserContext(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, errorStatus(err), domain.MessageFailedGetRating, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRating)
}
