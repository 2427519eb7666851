package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrCorruptHistory marks a stored history whose JSON columns no longer decode.
var ErrCorruptHistory = errors.New("corrupt group history")

// classify wraps JSON decode failures in ErrCorruptHistory and leaves
// database errors as they are.
func classify(err error) error {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typ) {
		return fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	return err
}

// LoadHistory reads the full history of groupID, oldest choice first. A group
// that was never recorded yields a fresh, empty history and no error. Rows
// that fail to decode return an error wrapping ErrCorruptHistory.
func LoadHistory(ctx context.Context, db *gorm.DB, groupID string) (*domain.GroupHistory, error) {
	h := domain.NewGroupHistory(groupID)

	var rec domain.GroupRecord
	err := db.WithContext(ctx).First(&rec, "group_id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return h, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	h.Preferences = rec.Preferences
	h.Preferences.Ensure()

	var rows []domain.ChoiceRow
	if err := db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	for _, r := range rows {
		h.Choices = append(h.Choices, r.Record)
	}
	return h, nil
}

// SaveChoice appends rec to the group's choices and stores prefs as the new
// aggregate. Callers run it inside a transaction.
func SaveChoice(ctx context.Context, db *gorm.DB, groupID string, rec domain.ChoiceRecord, prefs domain.Preferences) (*domain.ChoiceRow, error) {
	var maxSeq int
	if err := db.WithContext(ctx).
		Model(&domain.ChoiceRow{}).
		Where("group_id = ?", groupID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return nil, err
	}

	row := &domain.ChoiceRow{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Seq:       maxSeq + 1,
		Timestamp: rec.Timestamp.UTC(),
		Record:    rec,
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	group := &domain.GroupRecord{GroupID: groupID, Preferences: prefs, CreatedAt: now, UpdatedAt: now}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preferences", "updated_at"}),
	}).Create(group).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// GetChoice fetches a choice row by id, or ErrNotFound.
func GetChoice(ctx context.Context, db *gorm.DB, id string) (*domain.ChoiceRow, error) {
	var row domain.ChoiceRow
	if err := db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountChoices returns how many choices groupID has recorded.
func CountChoices(ctx context.Context, db *gorm.DB, groupID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ChoiceRow{}).Where("group_id = ?", groupID).Count(&n).Error
	return n, err
}

// ListChoicesPage returns a page of groupID's choices, newest first.
func ListChoicesPage(ctx context.Context, db *gorm.DB, groupID string, offset, limit int) ([]domain.ChoiceRow, error) {
	var rows []domain.ChoiceRow
	err := db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("seq DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
