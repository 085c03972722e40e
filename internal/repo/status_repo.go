// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// StatusCheck model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving error classification to the services package.
// Raw gorm/driver errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/site-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateStatusCheck inserts a status check for clientName with a fresh UUID
// and the current UTC time, then reads the row back by id. The returned
// record is what the store holds, not an echo of the input.
func CreateStatusCheck(ctx context.Context, db *gorm.DB, clientName string) (*domain.StatusCheck, error) {
	rec := &domain.StatusCheck{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}
	tx := db.WithContext(ctx)
	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}
	return GetStatusCheck(ctx, db, rec.ID)
}

// GetStatusCheck fetches a single status check by id, or ErrNotFound.
func GetStatusCheck(ctx context.Context, db *gorm.DB, id string) (*domain.StatusCheck, error) {
	var out domain.StatusCheck
	if err := db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	out.Timestamp = out.Timestamp.UTC()
	return &out, nil
}

// ListStatusChecks returns every status check ordered by timestamp, with the
// id as a tiebreaker so the order is stable for a given store state.
func ListStatusChecks(ctx context.Context, db *gorm.DB) ([]domain.StatusCheck, error) {
	var out []domain.StatusCheck
	err := db.WithContext(ctx).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}
