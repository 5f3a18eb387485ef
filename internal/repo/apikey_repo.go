package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/guyt101z/ichnaea/internal/domain"
)

// DayFormat is the layout of APIKeyUsage.Day.
const DayFormat = "2006-01-02"

// UsageDay returns the UTC day bucket for t.
func UsageDay(t time.Time) string { return t.UTC().Format(DayFormat) }

// GetAPIKey returns the key record or ErrNotFound.
func GetAPIKey(ctx context.Context, db *gorm.DB, key string) (*domain.APIKey, error) {
	var k domain.APIKey
	err := db.WithContext(ctx).Where("key = ?", key).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// CreateAPIKey inserts k and returns ErrDuplicate if the key already exists.
func CreateAPIKey(ctx context.Context, db *gorm.DB, k *domain.APIKey) error {
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(k).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// SaveAPIKey inserts k or updates its limit and shortname.
func SaveAPIKey(ctx context.Context, db *gorm.DB, k *domain.APIKey) error {
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_requests", "shortname"}),
	}).Create(k).Error
}

// IncrementUsage adds one request to the (key, day) counter and returns the
// new count. Concurrent callers each observe a distinct count.
func IncrementUsage(ctx context.Context, db *gorm.DB, key, day string) (int64, error) {
	var counts []int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := domain.APIKeyUsage{Key: key, Day: day, Count: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{"count": gorm.Expr("count + 1")}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&domain.APIKeyUsage{}).
			Where("key = ? AND day = ?", key, day).
			Pluck("count", &counts).Error
	})
	if err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, ErrNotFound
	}
	return counts[0], nil
}

// Usage returns the recorded count for (key, day), zero when absent.
func Usage(ctx context.Context, db *gorm.DB, key, day string) (int64, error) {
	var counts []int64
	if err := db.WithContext(ctx).Model(&domain.APIKeyUsage{}).
		Where("key = ? AND day = ?", key, day).
		Pluck("count", &counts).Error; err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}
