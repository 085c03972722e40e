// Package services – StatusService
//
// StatusService records connectivity pings ("status checks") sent by clients
// and lists them back. Client names are stored exactly as received. Every
// storage failure surfaces as ErrStorageUnavailable so the handler can answer
// with a generic 503 without leaking driver details.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/site-backend/internal/domain"
)

// StatusRepo is the persistence contract required by StatusService.
type StatusRepo interface {
	// CreateStatusCheck inserts a record and returns the stored row.
	CreateStatusCheck(ctx context.Context, db *gorm.DB, clientName string) (*domain.StatusCheck, error)

	// ListStatusChecks returns all records in stable order.
	ListStatusChecks(ctx context.Context, db *gorm.DB) ([]domain.StatusCheck, error)
}

// StatusService implements the status-check use-cases.
type StatusService struct {
	DB   *gorm.DB
	Repo StatusRepo
}

// NewStatusService constructs a StatusService.
func NewStatusService(db *gorm.DB, r StatusRepo) *StatusService {
	return &StatusService{DB: db, Repo: r}
}

// Create persists a new status check for clientName. Any string is accepted,
// including the empty one.
func (s *StatusService) Create(ctx context.Context, clientName string) (*domain.StatusCheck, error) {
	rec, err := s.Repo.CreateStatusCheck(ctx, s.DB, clientName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return rec, nil
}

// List returns every stored status check. The result is never nil.
func (s *StatusService) List(ctx context.Context) ([]domain.StatusCheck, error) {
	out, err := s.Repo.ListStatusChecks(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if out == nil {
		out = []domain.StatusCheck{}
	}
	return out, nil
}
