package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nestnote/backend/internal/db"
	"github.com/nestnote/backend/internal/model"
)

const maxCommentLength = 4000

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) (*model.Comment, error)
	ListCommentsByAddress(ctx context.Context, address string) ([]model.Comment, error)
}

type CommentService struct {
	comments CommentStore
	accounts AccountStore
}

func NewCommentService(comments CommentStore, accounts AccountStore) *CommentService {
	return &CommentService{comments: comments, accounts: accounts}
}

func (s *CommentService) Create(ctx context.Context, accountID, address, content string) (*model.CommentView, error) {
	address = strings.TrimSpace(address)
	content = strings.TrimSpace(content)
	if address == "" || content == "" {
		return nil, fmt.Errorf("%w: address and content are required", ErrInvalidInput)
	}
	if len(content) > maxCommentLength {
		return nil, fmt.Errorf("%w: content too long", ErrInvalidInput)
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	comment, err := s.comments.CreateComment(ctx, &model.Comment{
		Address:   address,
		AccountID: accountID,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}

	view := commentView(comment, account)
	return &view, nil
}

func (s *CommentService) ListByAddress(ctx context.Context, address string) ([]model.CommentView, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}

	comments, err := s.comments.ListCommentsByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	authors := make(map[string]*model.Account, len(comments))
	views := make([]model.CommentView, 0, len(comments))
	for i := range comments {
		c := &comments[i]
		account, ok := authors[c.AccountID]
		if !ok {
			account, err = s.accounts.GetAccountByID(ctx, c.AccountID)
			if err != nil && !db.IsNoRows(err) {
				return nil, err
			}
			authors[c.AccountID] = account
		}
		views = append(views, commentView(c, account))
	}
	return views, nil
}

func commentView(comment *model.Comment, account *model.Account) model.CommentView {
	view := model.CommentView{
		ID:        comment.ID,
		Address:   comment.Address,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
	if account != nil {
		view.Author = PublicProfile(account)
	}
	return view
}
