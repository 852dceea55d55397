package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	ModerationDraft    = "draft"
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationBlocked  = "blocked"

	DefaultUserName = "anonymous"
)

var (
	MessageSuccessCreateRecipe    = "recipe created successfully"
	MessageSuccessGetRecipes      = "success get recipes"
	MessageSuccessGetRecipeDetail = "success get recipe detail"
	MessageSuccessUpdateRecipe    = "recipe updated successfully"
	MessageSuccessDeleteRecipe    = "recipe deleted successfully"
	MessageSuccessPublishRecipe   = "recipe submitted for moderation"
	MessageSuccessApproveRecipe   = "recipe approved"
	MessageSuccessBlockRecipe     = "recipe blocked"
	MessageSuccessReprocessImage  = "image reprocessing queued"
	MessageSuccessAddFavorite     = "recipe added to favorites"
	MessageSuccessRemoveFavorite  = "recipe removed from favorites"
	MessageSuccessAddReview       = "review added successfully"
	MessageSuccessGetRating       = "success get recipe rating"

	MessageFailedCreateRecipe    = "failed to create recipe"
	MessageFailedGetRecipes      = "failed to get recipes"
	MessageFailedGetRecipeDetail = "failed to get recipe detail"
	MessageFailedUpdateRecipe    = "failed to update recipe"
	MessageFailedDeleteRecipe    = "failed to delete recipe"
	MessageFailedModerateRecipe  = "failed to change recipe moderation status"
	MessageFailedReprocessImage  = "failed to queue image reprocessing"
	MessageFailedFavorite        = "failed to update favorites"
	MessageFailedAddReview       = "failed to add review"
	MessageFailedGetRating       = "failed to get recipe rating"

	ErrRecipeNotFound = fmt.Errorf("recipe %w", ErrNotFound)
	ErrNoRawImage     = errors.New("recipe has no raw image to process")
	ErrTitleRequired  = errors.New("title is required")
)

type (
	// PublishNotification is posted to the moderation webhook when a recipe
	// is submitted for review.
	PublishNotification struct {
		ID          string `json:"id"`
		IsPublished bool   `json:"isPublished"`
		Title       string `json:"title"`
	}

	IngredientInput struct {
		Name     string  `json:"name" validate:"required,max=200"`
		Quantity *string `json:"quantity" validate:"omitempty,max=200"`
	}

	CreateRecipeRequest struct {
		UserID           *string           `json:"user_id" validate:"omitempty,uuid"`
		UserName         *string           `json:"user_name" validate:"omitempty,max=200"`
		UserEmail        *string           `json:"user_email" validate:"omitempty,email"`
		Title            string            `json:"title" validate:"required,max=200"`
		Description      *string           `json:"description"`
		Instructions     *string           `json:"instructions"`
		RawImageBlobName *string           `json:"raw_image_blob_name" validate:"omitempty,max=500"`
		Categories       []string          `json:"categories" validate:"omitempty,dive,max=200"`
		Ingredients      []IngredientInput `json:"ingredients" validate:"omitempty,dive"`
	}

	// UpdateRecipeRequest carries a partial update. A nil Categories or
	// Ingredients slice leaves the associations alone; a non-nil one, even
	// empty, replaces them.
	UpdateRecipeRequest struct {
		Title            Field[string]     `json:"title"`
		Description      Field[string]     `json:"description"`
		Instructions     Field[string]     `json:"instructions"`
		RawImageBlobName Field[string]     `json:"raw_image_blob_name"`
		Categories       []string          `json:"categories"`
		Ingredients      []IngredientInput `json:"ingredients"`
	}

	RecipeListFilter struct {
		Pagination
		Query       *string `json:"q,omitempty"`
		IsPublished *bool   `json:"is_published,omitempty"`
		Category    *string `json:"category,omitempty"`
	}

	Ingredient struct {
		Name     string  `json:"name"`
		Quantity *string `json:"quantity"`
	}

	Recipe struct {
		ID               string    `json:"id"`
		UserID           *string   `json:"user_id"`
		Title            string    `json:"title"`
		Description      *string   `json:"description"`
		Instructions     *string   `json:"instructions"`
		RawImageBlobName *string   `json:"raw_image_blob_name"`
		ImageURL         *string   `json:"image_url"`
		ThumbURL         *string   `json:"thumb_url"`
		IsPublished      bool      `json:"is_published"`
		ModerationStatus string    `json:"moderation_status"`
		CreatedAt        time.Time `json:"created_at"`
		UpdatedAt        time.Time `json:"updated_at"`
	}

	RecipeDetail struct {
		Recipe
		Categories  []string     `json:"categories"`
		Ingredients []Ingredient `json:"ingredients"`
	}

	RecipeListItem struct {
		Recipe
		Categories []string `json:"categories"`
	}

	RecipeListResult struct {
		Items    []RecipeListItem `json:"items"`
		Total    int64            `json:"total"`
		Page     int              `json:"page"`
		PageSize int              `json:"pageSize"`
	}

	FavoriteRequest struct {
		UserID   string  `json:"user_id" validate:"omitempty,uuid"`
		UserName *string `json:"user_name" validate:"omitempty,max=200"`
	}

	AddReviewRequest struct {
		RecipeID string  `json:"-"`
		UserID   *string `json:"user_id" validate:"omitempty,uuid"`
		Rating   int     `json:"rating" validate:"required,min=1,max=5"`
		Text     *string `json:"text"`
	}

	Review struct {
		ID        string    `json:"id"`
		RecipeID  string    `json:"recipe_id"`
		UserID    *string   `json:"user_id"`
		Rating    int       `json:"rating"`
		Text      *string   `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	}

	RatingResponse struct {
		RecipeID string  `json:"recipe_id"`
		Average  float64 `json:"average"`
	}
)
