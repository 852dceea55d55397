package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"recipe-service/domain"
	"recipe-service/pkg/feed"
)

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrWebhookFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrNoRawImage),
		errors.Is(err, domain.ErrParseUUID),
		errors.Is(err, domain.ErrInvalidPagination),
		errors.Is(err, feed.ErrCommentTextRequired):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// readPagination parses page and pageSize, rejecting values outside 1..MaxPageSize.
func readPagination(c *fiber.Ctx) (domain.Pagination, error) {
	page, err := readPositiveInt(c.Query("page"), domain.DefaultPage, 0)
	if err != nil {
		return domain.Pagination{}, err
	}
	pageSize, err := readPositiveInt(c.Query("pageSize"), domain.DefaultPageSize, domain.MaxPageSize)
	if err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{Page: page, PageSize: pageSize}, nil
}

func readPositiveInt(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || (max > 0 && n > max) {
		return 0, domain.ErrInvalidPagination
	}
	return n, nil
}
