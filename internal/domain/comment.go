package domain

import (
	"time"
)

// Comment represents a persisted task comment
type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"-"`
	Content   string    `json:"content"`
	AuthorID  int64     `json:"-"`
	CreatedAt time.Time `json:"timestamp"`
}

// CommentCreate represents comment creation data on the REST path
type CommentCreate struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// CommentAuthor is the author as rendered on the broadcast wire
type CommentAuthor struct {
	Email string `json:"email"`
	ID    int64  `json:"id"`
}

// CommentEvent is the payload fanned out to every member of a comment room
// after a comment has been persisted. Immutable once constructed; produced
// by the session inbound path and by the REST comment-create path alike.
type CommentEvent struct {
	ID        int64         `json:"id"`
	Content   string        `json:"content"`
	Author    CommentAuthor `json:"author"`
	Timestamp time.Time     `json:"timestamp"`
	TaskRef   string        `json:"task_id"`
	OrgSlug   string        `json:"-"`
}

// Room returns the key of the room this event belongs to.
func (e *CommentEvent) Room() RoomKey {
	return NewRoomKey(e.OrgSlug, e.TaskRef)
}
