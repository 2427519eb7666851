package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (group_id, key) pair.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, groupID, key string, now time.Time) (*domain.ChoiceIdempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ChoiceIdempotency
	err := db.WithContext(ctx).
		Where("group_id = ? AND key = ? AND expires_at > ?", groupID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, groupID, key, choiceID string, ttl time.Duration) (*domain.ChoiceIdempotency, error) {
	now := time.Now().UTC()
	rec := &domain.ChoiceIdempotency{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Key:       key,
		ChoiceID:  choiceID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// DeleteExpiredIdempotency removes records that expired before now.
func DeleteExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.ChoiceIdempotency{})
	return res.RowsAffected, res.Error
}

// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// IdempotencyKeyLive reports whether any group holds a non-expired record
// for key. The HTTP layer uses it before the request body is parsed.
func IdempotencyKeyLive(ctx context.Context, db *gorm.DB, key string, now time.Time) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ChoiceIdempotency{}).
		Where("key = ? AND expires_at > ?", key, now).
		Count(&n).Error
	return n > 0, err
}
