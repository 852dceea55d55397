package feed

import (
	"context"
	"errors"
	"strings"

	"recipe-service/domain"
)

var ErrCommentTextRequired = errors.New("comment text is required")

type (
	FeedService interface {
		GetFeed(ctx context.Context, page, pageSize int) (domain.FeedPage, error)
		AddComment(ctx context.Context, recipeID string, req domain.AddCommentRequest) (*domain.Comment, error)
		GetComments(ctx context.Context, recipeID string, page, pageSize int) (domain.CommentPage, error)
	}

	feedService struct {
		feedRepository FeedRepository
	}
)

func NewFeedService(feedRepository FeedRepository) FeedService {
	return &feedService{feedRepository: feedRepository}
}

func (s *feedService) GetFeed(ctx context.Context, page, pageSize int) (domain.FeedPage, error) {
	p := domain.Pagination{Page: page, PageSize: pageSize}.Normalize()
	items, err := s.feedRepository.GetFeedPage(ctx, p.Page, p.PageSize)
	if err != nil {
		return domain.FeedPage{}, err
	}
	return domain.FeedPage{Items: items, Page: p.Page, PageSize: p.PageSize}, nil
}

func (s *feedService) AddComment(ctx context.Context, recipeID string, req domain.AddCommentRequest) (*domain.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrCommentTextRequired
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = domain.DefaultUserID
	}
	return s.feedRepository.AddComment(ctx, recipeID, userID, text)
}

func (s *feedService) GetComments(ctx context.Context, recipeID string, page, pageSize int) (domain.CommentPage, error) {
	p := domain.Pagination{Page: page, PageSize: pageSize}.Normalize()
	items, err := s.feedRepository.GetComments(ctx, recipeID, p.Page, p.PageSize)
	if err != nil {
		return domain.CommentPage{}, err
	}
	return domain.CommentPage{Items: items, Page: p.Page, PageSize: p.PageSize}, nil
}
