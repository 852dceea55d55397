package media

import "fmt"

// ProcessedBlobNames derives the processed-bucket keys from the recipe id
// alone, so every run for a recipe overwrites the same two objects.
func ProcessedBlobNames(recipeID string) (thumb, main string) {
	return fmt.Sprintf("recipes/%s/thumb.jpg", recipeID),
		fmt.Sprintf("recipes/%s/image.jpg", recipeID)
}
