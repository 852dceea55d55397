package domain

var (
	MessageSuccessGetFeed     = "success get feed"
	MessageSuccessAddComment  = "comment added successfully"
	MessageSuccessGetComments = "success get comments"

	MessageFailedGetFeed     = "failed to get feed"
	MessageFailedAddComment  = "failed to add comment"
	MessageFailedGetComments = "failed to get comments"
)

const FeedPartition = "feed"

type (
	FeedItem struct {
		ID            string  `json:"id"`
		PK            string  `json:"pk"`
		RecipeID      string  `json:"recipeId"`
		Title         string  `json:"title"`
		ImageThumbURL *string `json:"imageThumbUrl"`
		CreatedAt     string  `json:"createdAt"`
	}

	Comment struct {
		ID        string `json:"id"`
		RecipeID  string `json:"recipeId"`
		UserID    string `json:"userId"`
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
	}

	AddCommentRequest struct {
		UserID string `json:"user_id" validate:"omitempty,max=128"`
		Text   string `json:"text" validate:"required,max=4000"`
	}

	FeedPage struct {
		Items    []FeedItem `json:"items"`
		Page     int        `json:"page"`
		PageSize int        `json:"pageSize"`
	}

	CommentPage struct {
		Items    []Comment `json:"items"`
		Page     int       `json:"page"`
		PageSize int       `json:"pageSize"`
	}
)
