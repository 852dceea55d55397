package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recipe-service/internal/api/handlers"
	"recipe-service/internal/middleware"
)

type Config struct {
	App           *fiber.App
	RecipeHandler handlers.RecipeHandler
	FeedHandler   handlers.FeedHandler
	UploadHandler handlers.UploadHandler
	HealthHandler handlers.HealthHandler
	Middleware    middleware.Middleware

	// AccessLog and RateLimit are optional and run after the request id is set.
	AccessLog fiber.Handler
	RateLimit fiber.Handler
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.RequestIDMiddleware())
	c.App.Use(c.Middleware.CorrelationMiddleware())
	if c.AccessLog != nil {
		c.App.Use(c.AccessLog)
	}
	if c.RateLimit != nil {
		c.App.Use(c.RateLimit)
	}
	c.App.Use(c.Middleware.CORSMiddleware())
	c.App.Use(c.Middleware.MetricsMiddleware())
	c.GuestRoute()
	c.Recipes()
	c.Feed()
	c.Uploads()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	c.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	c.App.Get("/api/v1/health", c.HealthHandler.Health)
	c.App.Get("/api/v1/version", c.HealthHandler.Version)
}

func (c *Config) Recipes() {
	recipes := c.App.Group("/api/v1/recipes")
	{
		recipes.Post("", c.RecipeHandler.CreateRecipe)
		recipes.Get("", c.RecipeHandler.ListRecipes)
		recipes.Get("/:id", c.RecipeHandler.GetRecipe)
		recipes.Patch("/:id", c.RecipeHandler.UpdateRecipe)
		recipes.Delete("/:id", c.RecipeHandler.DeleteRecipe)
	}

	// moderation and media
	recipes.Post("/:id/publish", c.RecipeHandler.PublishRecipe)
	recipes.Post("/:id/approve", c.RecipeHandler.ApproveRecipe)
	recipes.Post("/:id/block", c.RecipeHandler.BlockRecipe)
	recipes.Post("/:id/reprocess-image", c.RecipeHandler.ReprocessImage)

	recipes.Post("/:id/favorite", c.RecipeHandler.AddFavorite)
	recipes.Delete("/:id/favorite", c.RecipeHandler.RemoveFavorite)
	recipes.Post("/:id/reviews", c.RecipeHandler.AddReview)
	recipes.Get("/:id/rating", c.RecipeHandler.GetRating)

	recipes.Post("/:id/comments", c.FeedHandler.AddComment)
	recipes.Get("/:id/comments", c.FeedHandler.GetComments)
}

func (c *Config) Feed() {
	c.App.Get("/api/v1/feed", c.FeedHandler.GetFeed)
}

func (c *Config) Uploads() {
	c.App.Post("/api/v1/upload-init", c.UploadHandler.InitUpload)
}
