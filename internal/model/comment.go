package model

import "time"

type Comment struct {
	ID        string
	Address   string
	AccountID string
	Content   string
	CreatedAt time.Time
}

type CreateCommentRequest struct {
	Address string `json:"address"`
	Content string `json:"content"`
}

// CommentView is a comment joined with its author's public profile.
type CommentView struct {
	ID        string     `json:"id"`
	Address   string     `json:"address"`
	Content   string     `json:"content"`
	Author    PublicUser `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
}
