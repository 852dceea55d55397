package migration

import (
	"fmt"

	"gorm.io/gorm"

	"recipe-service/entities"
)

// indexes are kept out of the struct tags: the partial unique index is not
// expressible there and created_at lives on the shared Timestamp.
var indexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (email) WHERE email IS NOT NULL",
	"CREATE INDEX IF NOT EXISTS idx_recipes_created_at ON recipes (created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_documents_partition_created ON documents (collection, partition_key, created_at DESC)",
}

func Migrate(db *gorm.DB) error {
	models := []struct {
		name  string
		model any
	}{
		{"user", &entities.User{}},
		{"recipe", &entities.Recipe{}},
		{"category", &entities.Category{}},
		{"ingredient", &entities.Ingredient{}},
		{"recipe category", &entities.RecipeCategory{}},
		{"recipe ingredient", &entities.RecipeIngredient{}},
		{"favorite", &entities.Favorite{}},
		{"review", &entities.Review{}},
		{"document", &entities.Document{}},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("migrate %s table: %w", m.name, err)
		}
	}

	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
