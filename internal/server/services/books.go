package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
)

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title  string
	Author string
	ISBN   string
}

// BookService is the tenant-scoped book catalogue.
type BookService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewBookService(db *sql.DB, m repomanager.RepositoryManager) *BookService {
	return &BookService{db: db, repomanager: m}
}

func (s *BookService) Create(ctx context.Context, ac *auth.AuthContext, in BookInput) (*models.Book, error) {
	b, err := bookFromInput(in)
	if err != nil {
		return nil, err
	}
	b.TenantID = ac.TenantID

	created, err := s.repomanager.Books(s.db).Create(ctx, b)
	if err != nil {
		return nil, common.Backend("create book", err)
	}
	return created, nil
}

func (s *BookService) Get(ctx context.Context, ac *auth.AuthContext, id int64) (*models.Book, error) {
	b, err := s.repomanager.Books(s.db).GetByID(ctx, ac.TenantID, id)
	if err != nil {
		return nil, common.Backend("get book", err)
	}
	return b, nil
}

func (s *BookService) List(ctx context.Context, ac *auth.AuthContext) ([]*models.Book, error) {
	list, err := s.repomanager.Books(s.db).List(ctx, ac.TenantID)
	if err != nil {
		return nil, common.Backend("list books", err)
	}
	return list, nil
}

func (s *BookService) Update(ctx context.Context, ac *auth.AuthContext, id int64, in BookInput) (*models.Book, error) {
	b, err := bookFromInput(in)
	if err != nil {
		return nil, err
	}
	b.ID = id
	b.TenantID = ac.TenantID

	updated, err := s.repomanager.Books(s.db).Update(ctx, b)
	if err != nil {
		return nil, common.Backend("update book", err)
	}
	return updated, nil
}

func (s *BookService) Delete(ctx context.Context, ac *auth.AuthContext, id int64) error {
	if err := s.repomanager.Books(s.db).Delete(ctx, ac.TenantID, id); err != nil {
		return common.Backend("delete book", err)
	}
	return nil
}

func bookFromInput(in BookInput) (*models.Book, error) {
	title, err := validateName("title", in.Title)
	if err != nil {
		return nil, err
	}
	author, err := validateName("author", in.Author)
	if err != nil {
		return nil, err
	}
	isbn, err := NormalizeISBN(in.ISBN)
	if err != nil {
		return nil, err
	}
	return &models.Book{
		Title:  title,
		Author: strings.TrimSpace(author),
		ISBN:   isbn,
	}, nil
}
