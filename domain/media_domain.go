package domain

import "time"

var (
	MessageSuccessUploadInit = "upload url created"
	MessageFailedUploadInit  = "failed to create upload url"

	MediaContentType  = "image/jpeg"
	MediaCacheControl = "public, max-age=31536000, immutable"
)

type (
	// MediaJob is the queue payload asking for a recipe's raw image to be derived.
	MediaJob struct {
		RecipeID      string `json:"recipeId"`
		BlobName      string `json:"blobName"`
		CorrelationID string `json:"correlationId,omitempty"`
	}

	MediaResult struct {
		RecipeID      string `json:"recipeId"`
		ThumbBlobName string `json:"thumbBlobName"`
		MainBlobName  string `json:"mainBlobName"`
		ThumbURL      string `json:"thumbUrl"`
		ImageURL      string `json:"imageUrl"`
	}

	UploadInitRequest struct {
		FileName    string `json:"fileName" validate:"omitempty,max=255"`
		ContentType string `json:"contentType" validate:"omitempty,max=100"`
	}

	UploadInitResponse struct {
		BlobName   string    `json:"blobName"`
		RawBlobURL string    `json:"rawBlobUrl"`
		UploadURL  string    `json:"uploadUrl"`
		ExpiresOn  time.Time `json:"expiresOn"`
	}
)
