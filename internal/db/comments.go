package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/nestnote/backend/internal/model"
)

func (db *Postgres) EnsureCommentSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			address TEXT NOT NULL,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS comments_address_idx ON comments(address)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) CreateComment(ctx context.Context, comment *model.Comment) (*model.Comment, error) {
	query := `
		INSERT INTO comments (id, address, account_id, content, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, address, account_id, content, created_at
	`
	var c model.Comment
	err := db.Pool.QueryRow(ctx, query,
		uuid.NewString(),
		comment.Address,
		comment.AccountID,
		comment.Content,
	).Scan(&c.ID, &c.Address, &c.AccountID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *Postgres) ListCommentsByAddress(ctx context.Context, address string) ([]model.Comment, error) {
	query := `
		SELECT id, address, account_id, content, created_at
		FROM comments
		WHERE address = $1
		ORDER BY created_at DESC
	`
	rows, err := db.Pool.Query(ctx, query, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Address, &c.AccountID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}

	if list == nil {
		list = []model.Comment{}
	}
	return list, rows.Err()
}
