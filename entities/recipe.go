// File: entities/recipe.go
package entities

import (
	"github.com/google/uuid"
)

type Recipe struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID           *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	Description      *string    `gorm:"type:text" json:"description"`
	Instructions     *string    `gorm:"type:text" json:"instructions"`
	RawImageBlobName *string    `gorm:"size:500" json:"raw_image_blob_name"`
	ImageURL         *string    `gorm:"size:1000" json:"image_url"`
	ThumbURL         *string    `gorm:"size:1000" json:"thumb_url"`
	IsPublished      bool       `gorm:"not null;default:false;index" json:"is_published"`
	ModerationStatus string     `gorm:"size:50;not null;default:'draft'" json:"moderation_status"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	Timestamp
}

type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name string    `gorm:"size:200;not null;uniqueIndex:ux_categories_name" json:"name"`
	Timestamp
}

type Ingredient struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name string    `gorm:"size:200;not null;uniqueIndex:ux_ingredients_name" json:"name"`
	Timestamp
}

type RecipeCategory struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RecipeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_recipe_categories" json:"recipe_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_recipe_categories" json:"category_id"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"-"`
	Timestamp
}

type RecipeIngredient struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RecipeID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_recipe_ingredients" json:"recipe_id"`
	IngredientID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_recipe_ingredients" json:"ingredient_id"`
	Quantity     *string   `gorm:"size:200" json:"quantity"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"-"`
	Timestamp
}

type Favorite struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_favorites_user_recipe" json:"user_id"`
	RecipeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_favorites_user_recipe;index" json:"recipe_id"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	Timestamp
}

type Review struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	RecipeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipe_id"`
	UserID   *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Rating   int        `gorm:"not null" json:"rating"`
	Text     *string    `gorm:"type:text" json:"text"`
	Timestamp
}
