package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ciepi/portal-service/internal/domain"
	"github.com/ciepi/portal-service/internal/repository"
	apperrors "github.com/ciepi/portal-service/pkg/util"
)

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// ContentService coordinates blog posts and public events.
type ContentService struct {
	posts  repository.BlogRepository
	events repository.EventRepository
	now    func() time.Time
}

// NewContentService builds the service.
func NewContentService(blogRepo repository.BlogRepository, eventRepo repository.EventRepository) *ContentService {
	return &ContentService{posts: blogRepo, events: eventRepo, now: time.Now}
}

// BlogPostInput describes a post creation payload.
type BlogPostInput struct {
	Title    string
	Summary  string
	Body     string
	AuthorID string
}

// CreatePost persists a new draft post.
func (s *ContentService) CreatePost(ctx context.Context, input BlogPostInput) (*domain.BlogPost, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewValidationError("title y body son requeridos", nil)
	}
	post := &domain.BlogPost{
		Title:    input.Title,
		Slug:     Slugify(input.Title),
		Summary:  input.Summary,
		Body:     input.Body,
		AuthorID: input.AuthorID,
		State:    domain.BlogStateDraft,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return post, nil
}

// GetPublishedPost returns a published post by slug.
func (s *ContentService) GetPublishedPost(ctx context.Context, slug string) (*domain.BlogPost, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("post", map[string]any{"slug": slug})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if post.State != domain.BlogStatePublished {
		return nil, apperrors.NewNotFound("post", map[string]any{"slug": slug})
	}
	return post, nil
}

// ListPublishedPosts returns the public blog feed.
func (s *ContentService) ListPublishedPosts(ctx context.Context, limit, offset int) ([]domain.BlogPost, error) {
	published := domain.BlogStatePublished
	posts, err := s.posts.List(ctx, repository.BlogFilter{State: &published, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return posts, nil
}

// ListPosts returns posts for staff, any state.
func (s *ContentService) ListPosts(ctx context.Context, filter repository.BlogFilter) ([]domain.BlogPost, error) {
	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return posts, nil
}

// EventInput describes event create/update payloads.
type EventInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
	Published   bool
}

// CreateEvent persists a new event.
func (s *ContentService) CreateEvent(ctx context.Context, input EventInput) (*domain.Event, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title requerido", nil)
	}
	event := &domain.Event{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Published:   input.Published,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return event, nil
}

// UpdateEvent modifies an existing event.
func (s *ContentService) UpdateEvent(ctx context.Context, id string, input EventInput) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("event", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	event.Title = input.Title
	event.Description = input.Description
	event.Location = input.Location
	event.StartsAt = input.StartsAt
	event.EndsAt = input.EndsAt
	event.Published = input.Published
	if err := s.events.Update(ctx, event); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("event", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return event, nil
}

// ListUpcomingEvents returns published future events.
func (s *ContentService) ListUpcomingEvents(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	list, err := s.events.ListUpcoming(ctx, s.now(), limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return list, nil
}

// Slugify normalizes a title into a URL slug.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugCleaner.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
