package domain

import "time"

// BlogState enumerates review states for a blog post.
type BlogState string

const (
	BlogStateDraft     BlogState = "BORRADOR"
	BlogStateInReview  BlogState = "EN_REVISION"
	BlogStateApproved  BlogState = "APROBADO"
	BlogStatePublished BlogState = "PUBLICADO"
	BlogStateRejected  BlogState = "RECHAZADO"
)

// BlogPost is an article moving through the editorial workflow.
type BlogPost struct {
	ID          string
	Title       string
	Slug        string
	Summary     string
	Body        string
	AuthorID    string
	State       BlogState
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
