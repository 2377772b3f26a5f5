package domain

import "time"

// CommentVisibility controls whether customers can see a comment.
type CommentVisibility string

const (
	CommentPublic   CommentVisibility = "PUBLIC"
	CommentInternal CommentVisibility = "INTERNAL"
)

// Comment captures one message in a ticket thread.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	Visibility CommentVisibility
	Content    string
	CreatedAt  time.Time
}
