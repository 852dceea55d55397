package recipe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipe-service/domain"
	"recipe-service/entities"
	"recipe-service/internal/utils"
)

// maxGetOrCreateAttempts bounds the lookup/insert loop for a category or
// ingredient name racing with another writer.
const maxGetOrCreateAttempts = 3

type (
	RecipeRepository interface {
		Create(ctx context.Context, req domain.CreateRecipeRequest) (*domain.RecipeDetail, error)
		GetByID(ctx context.Context, id string) (*domain.RecipeDetail, error)
		List(ctx context.Context, filter domain.RecipeListFilter) (domain.RecipeListResult, error)
		Update(ctx context.Context, id string, req domain.UpdateRecipeRequest) (*domain.RecipeDetail, error)
		Delete(ctx context.Context, id string) (*entities.Recipe, error)
		SetPublishStatus(ctx context.Context, id string) (*domain.RecipeDetail, error)
		SetModerationStatus(ctx context.Context, id, status string, isPublished bool) (*domain.RecipeDetail, error)
		SetImagePointers(ctx context.Context, id, imageURL, thumbURL string) error
		AddFavorite(ctx context.Context, recipeID, userID string, userName *string) error
		RemoveFavorite(ctx context.Context, recipeID, userID string) error
		AddReview(ctx context.Context, req domain.AddReviewRequest) (*domain.Review, error)
		GetRatingAverage(ctx context.Context, recipeID string) (float64, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}

	// lookupTable describes a name-keyed dictionary table (categories, ingredients).
	lookupTable struct {
		model any
		build func(id uuid.UUID, name string) any
	}

	listRow struct {
		entities.Recipe
		CategoryNames *string
	}
)

var (
	categoryTable = lookupTable{
		model: &entities.Category{},
		build: func(id uuid.UUID, name string) any { return &entities.Category{ID: id, Name: name} },
	}
	ingredientTable = lookupTable{
		model: &entities.Ingredient{},
		build: func(id uuid.UUID, name string) any { return &entities.Ingredient{ID: id, Name: name} },
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) Create(ctx context.Context, req domain.CreateRecipeRequest) (*domain.RecipeDetail, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	recipe := entities.Recipe{
		ID:               uuid.New(),
		Title:            title,
		Description:      req.Description,
		Instructions:     req.Instructions,
		RawImageBlobName: req.RawImageBlobName,
		IsPublished:      false,
		ModerationStatus: domain.ModerationDraft,
	}

	var detail *domain.RecipeDetail
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.UserID != nil && *req.UserID != "" {
			userID, err := uuid.Parse(*req.UserID)
			if err != nil {
				return domain.ErrParseUUID
			}
			if err := ensureUser(tx, userID, req.UserName, req.UserEmail); err != nil {
				return err
			}
			recipe.UserID = &userID
		}

		if err := tx.Create(&recipe).Error; err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		if req.Categories != nil {
			if err := replaceCategories(tx, recipe.ID, req.Categories); err != nil {
				return err
			}
		}
		if req.Ingredients != nil {
			if err := replaceIngredients(tx, recipe.ID, req.Ingredients); err != nil {
				return err
			}
		}

		var err error
		detail, err = getDetail(tx, recipe.ID)
		if err != nil {
			return err
		}
		if detail == nil {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// GetByID returns (nil, nil) when the recipe does not exist.
func (r *recipeRepository) GetByID(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	recipeID, ok := parseRecipeID(id)
	if !ok {
		return nil, nil
	}
	return getDetail(r.db.WithContext(ctx), recipeID)
}

func (r *recipeRepository) List(ctx context.Context, filter domain.RecipeListFilter) (domain.RecipeListResult, error) {
	page := filter.Pagination.Normalize()
	db := r.db.WithContext(ctx)

	filtered := func() *gorm.DB {
		q := db.Table("recipes AS r")
		if filter.Query != nil && strings.TrimSpace(*filter.Query) != "" {
			like := "%" + strings.ToLower(strings.TrimSpace(*filter.Query)) + "%"
			q = q.Where("(LOWER(r.title) LIKE ? OR LOWER(r.description) LIKE ?)", like, like)
		}
		if filter.IsPublished != nil {
			q = q.Where("r.is_published = ?", *filter.IsPublished)
		}
		if filter.Category != nil && strings.TrimSpace(*filter.Category) != "" {
			q = q.Where(
				"EXISTS (SELECT 1 FROM recipe_categories rc2 JOIN categories c2 ON c2.id = rc2.category_id WHERE rc2.recipe_id = r.id AND c2.name = ?)",
				strings.TrimSpace(*filter.Category),
			)
		}
		return q
	}

	var total int64
	if err := filtered().Distinct("r.id").Count(&total).Error; err != nil {
		return domain.RecipeListResult{}, fmt.Errorf("count recipes: %w", err)
	}

	var rows []listRow
	err := filtered().
		Select("r.*, " + categoryAggregate(db) + " AS category_names").
		Joins("LEFT JOIN recipe_categories rc ON rc.recipe_id = r.id").
		Joins("LEFT JOIN categories c ON c.id = rc.category_id").
		Group("r.id").
		Order("r.created_at DESC").
		Order("r.id").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Scan(&rows).Error
	if err != nil {
		return domain.RecipeListResult{}, fmt.Errorf("list recipes: %w", err)
	}

	items := make([]domain.RecipeListItem, 0, len(rows))
	for i := range rows {
		items = append(items, domain.RecipeListItem{
			Recipe:     toDomainRecipe(&rows[i].Recipe),
			Categories: splitAggregate(rows[i].CategoryNames),
		})
	}

	return domain.RecipeListResult{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// Update applies only the fields present in req and returns (nil, nil) when
// the recipe does not exist.
func (r *recipeRepository) Update(ctx context.Context, id string, req domain.UpdateRecipeRequest) (*domain.RecipeDetail, error) {
	recipeID, ok := parseRecipeID(id)
	if !ok {
		return nil, nil
	}

	var detail *domain.RecipeDetail
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := recipeExists(tx, recipeID)
		if err != nil || !exists {
			return err
		}

		updates := map[string]interface{}{}
		if req.Title.Present() {
			title, _ := req.Title.Value()
			title = strings.TrimSpace(title)
			if title == "" {
				return domain.ErrTitleRequired
			}
			updates["title"] = title
		}
		setNullable(updates, "description", req.Description)
		setNullable(updates, "instructions", req.Instructions)
		setNullable(updates, "raw_image_blob_name", req.RawImageBlobName)

		if len(updates) > 0 {
			updates["updated_at"] = utils.NowUTC()
			if err := tx.Model(&entities.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update recipe: %w", err)
			}
		}
		if req.Categories != nil {
			if err := replaceCategories(tx, recipeID, req.Categories); err != nil {
				return err
			}
		}
		if req.Ingredients != nil {
			if err := replaceIngredients(tx, recipeID, req.Ingredients); err != nil {
				return err
			}
		}

		detail, err = getDetail(tx, recipeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Delete returns the pre-delete row, or (nil, nil) when there was nothing to delete.
func (r *recipeRepository) Delete(ctx context.Context, id string) (*entities.Recipe, error) {
	recipeID, ok := parseRecipeID(id)
	if !ok {
		return nil, nil
	}

	var snapshot *entities.Recipe
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe entities.Recipe
		if err := tx.Where("id = ?", recipeID).First(&recipe).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		for _, dep := range []any{
			&entities.RecipeCategory{},
			&entities.RecipeIngredient{},
			&entities.Review{},
			&entities.Favorite{},
		} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(dep).Error; err != nil {
				return fmt.Errorf("delete recipe dependents: %w", err)
			}
		}
		if err := tx.Where("id = ?", recipeID).Delete(&entities.Recipe{}).Error; err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		snapshot = &recipe
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *recipeRepository) SetPublishStatus(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	return r.setStatus(ctx, id, domain.ModerationPending, true)
}

func (r *recipeRepository) SetModerationStatus(ctx context.Context, id, status string, isPublished bool) (*domain.RecipeDetail, error) {
	return r.setStatus(ctx, id, status, isPublished)
}

func (r *recipeRepository) setStatus(ctx context.Context, id, status string, isPublished bool) (*domain.RecipeDetail, error) {
	recipeID, ok := parseRecipeID(id)
	if !ok {
		return nil, nil
	}

	var detail *domain.RecipeDetail
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.Recipe{}).Where("id = ?", recipeID).Updates(map[string]interface{}{
			"is_published":      isPublished,
			"moderation_status": status,
			"updated_at":        utils.NowUTC(),
		})
		if res.Error != nil {
			return fmt.Errorf("update moderation status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var err error
		detail, err = getDetail(tx, recipeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (r *recipeRepository) SetImagePointers(ctx context.Context, id, imageURL, thumbURL string) error {
	recipeID, ok := parseRecipeID(id)
	if !ok {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&entities.Recipe{}).Where("id = ?", recipeID).Updates(map[string]interface{}{
		"image_url":  imageURL,
		"thumb_url":  thumbURL,
		"updated_at": utils.NowUTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("set image pointers: %w", err)
	}
	return nil
}

func (r *recipeRepository) AddFavorite(ctx context.Context, recipeID, userID string, userName *string) error {
	rid, ok := parseRecipeID(recipeID)
	if !ok {
		return domain.ErrRecipeNotFound
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrParseUUID
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, uid, userName, nil); err != nil {
			return err
		}
		favorite := entities.Favorite{
			ID:       uuid.New(),
			UserID:   uid,
			RecipeID: rid,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "recipe_id"}},
			DoNothing: true,
		}).Create(&favorite).Error
		if err != nil {
			return fmt.Errorf("insert favorite: %w", err)
		}
		return nil
	})
}

func (r *recipeRepository) RemoveFavorite(ctx context.Context, recipeID, userID string) error {
	rid, ok := parseRecipeID(recipeID)
	if !ok {
		return nil
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrParseUUID
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", uid, rid).
		Delete(&entities.Favorite{}).Error
}

func (r *recipeRepository) AddReview(ctx context.Context, req domain.AddReviewRequest) (*domain.Review, error) {
	rid, ok := parseRecipeID(req.RecipeID)
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}

	review := entities.Review{
		ID:       uuid.New(),
		RecipeID: rid,
		Rating:   req.Rating,
		Text:     req.Text,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := recipeExists(tx, rid)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrRecipeNotFound
		}
		if req.UserID != nil && *req.UserID != "" {
			uid, err := uuid.Parse(*req.UserID)
			if err != nil {
				return domain.ErrParseUUID
			}
			if err := ensureUser(tx, uid, nil, nil); err != nil {
				return err
			}
			review.UserID = &uid
		}
		if err := tx.Create(&review).Error; err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.Review{
		ID:        review.ID.String(),
		RecipeID:  review.RecipeID.String(),
		UserID:    uuidString(review.UserID),
		Rating:    review.Rating,
		Text:      review.Text,
		CreatedAt: review.CreatedAt,
	}, nil
}

func (r *recipeRepository) GetRatingAverage(ctx context.Context, recipeID string) (float64, error) {
	rid, ok := parseRecipeID(recipeID)
	if !ok {
		return 0, nil
	}
	var avg float64
	err := r.db.WithContext(ctx).
		Model(&entities.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("recipe_id = ?", rid).
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}

// ensureUser inserts the user when missing and never touches an existing row.
func ensureUser(tx *gorm.DB, id uuid.UUID, name, email *string) error {
	user := entities.User{
		ID:    id,
		Name:  domain.DefaultUserName,
		Email: email,
	}
	if name != nil && strings.TrimSpace(*name) != "" {
		user.Name = strings.TrimSpace(*name)
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("ensure user %s: %w", id, domain.ErrConflict)
		}
		return fmt.Errorf("ensure user %s: %w", id, err)
	}
	return nil
}

func replaceCategories(tx *gorm.DB, recipeID uuid.UUID, names []string) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeCategory{}).Error; err != nil {
		return fmt.Errorf("clear recipe categories: %w", err)
	}
	for _, name := range normalizeNames(names) {
		categoryID, err := getOrCreateByName(tx, categoryTable, name)
		if err != nil {
			return fmt.Errorf("category %q: %w", name, err)
		}
		link := entities.RecipeCategory{ID: uuid.New(), RecipeID: recipeID, CategoryID: categoryID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("link category %q: %w", name, err)
		}
	}
	return nil
}

func replaceIngredients(tx *gorm.DB, recipeID uuid.UUID, inputs []domain.IngredientInput) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
		return fmt.Errorf("clear recipe ingredients: %w", err)
	}

	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		ingredientID, err := getOrCreateByName(tx, ingredientTable, name)
		if err != nil {
			return fmt.Errorf("ingredient %q: %w", name, err)
		}
		link := entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: ingredientID,
			Quantity:     in.Quantity,
		}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("link ingredient %q: %w", name, err)
		}
	}
	return nil
}

// getOrCreateByName looks a name up and inserts it when missing. The insert
// runs under a savepoint so a unique violation from a concurrent writer only
// rolls back the insert; the lookup is then repeated.
func getOrCreateByName(tx *gorm.DB, table lookupTable, name string) (uuid.UUID, error) {
	for attempt := 0; attempt < maxGetOrCreateAttempts; attempt++ {
		var ids []uuid.UUID
		if err := tx.Model(table.model).Where("name = ?", name).Limit(1).Pluck("id", &ids).Error; err != nil {
			return uuid.Nil, fmt.Errorf("lookup: %w", err)
		}
		if len(ids) > 0 {
			return ids[0], nil
		}

		if err := tx.SavePoint("get_or_create").Error; err != nil {
			return uuid.Nil, fmt.Errorf("savepoint: %w", err)
		}
		id := uuid.New()
		err := tx.Create(table.build(id, name)).Error
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return uuid.Nil, fmt.Errorf("insert: %w", err)
		}
		if err := tx.RollbackTo("get_or_create").Error; err != nil {
			return uuid.Nil, fmt.Errorf("rollback to savepoint: %w", err)
		}
	}
	return uuid.Nil, domain.ErrConflict
}

func getDetail(db *gorm.DB, id uuid.UUID) (*domain.RecipeDetail, error) {
	var recipe entities.Recipe
	if err := db.Where("id = ?", id).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	categories := []string{}
	err := db.Table("categories AS c").
		Joins("JOIN recipe_categories rc ON rc.category_id = c.id").
		Where("rc.recipe_id = ?", id).
		Order("c.name").
		Pluck("c.name", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("get recipe categories: %w", err)
	}

	ingredients := []domain.Ingredient{}
	err = db.Table("ingredients AS i").
		Select("i.name AS name, ri.quantity AS quantity").
		Joins("JOIN recipe_ingredients ri ON ri.ingredient_id = i.id").
		Where("ri.recipe_id = ?", id).
		Order("i.name").
		Scan(&ingredients).Error
	if err != nil {
		return nil, fmt.Errorf("get recipe ingredients: %w", err)
	}

	return &domain.RecipeDetail{
		Recipe:      toDomainRecipe(&recipe),
		Categories:  categories,
		Ingredients: ingredients,
	}, nil
}

func recipeExists(tx *gorm.DB, id uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Model(&entities.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check recipe: %w", err)
	}
	return count > 0, nil
}

func categoryAggregate(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "string_agg(c.name, ',' ORDER BY c.name)"
	}
	return "group_concat(c.name, ',')"
}

func splitAggregate(s *string) []string {
	out := []string{}
	if s == nil {
		return out
	}
	for _, part := range strings.Split(*s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	sort.Strings(out)
	return out
}

// normalizeNames trims, drops empties and collapses repeats keeping first-seen order.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func setNullable(updates map[string]interface{}, column string, f domain.Field[string]) {
	if !f.Present() {
		return
	}
	if v, ok := f.Value(); ok {
		updates[column] = v
		return
	}
	updates[column] = nil
}

// parseRecipeID treats malformed ids as absent recipes.
func parseRecipeID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toDomainRecipe(r *entities.Recipe) domain.Recipe {
	return domain.Recipe{
		ID:               r.ID.String(),
		UserID:           uuidString(r.UserID),
		Title:            r.Title,
		Description:      r.Description,
		Instructions:     r.Instructions,
		RawImageBlobName: r.RawImageBlobName,
		ImageURL:         r.ImageURL,
		ThumbURL:         r.ThumbURL,
		IsPublished:      r.IsPublished,
		ModerationStatus: r.ModerationStatus,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
