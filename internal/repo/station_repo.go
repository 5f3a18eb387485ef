package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/guyt101z/ichnaea/internal/domain"
)

// lookupBatch bounds the number of keys per query; each cell key binds five
// parameters and SQLite caps bound variables per statement.
const lookupBatch = 100

// FindCells returns the stored stations matching any of keys. Keys of another
// kind are ignored. Order of the result is unspecified.
func FindCells(ctx context.Context, db *gorm.DB, keys []domain.Key) ([]domain.CellStation, error) {
	var cells []domain.Key
	for _, k := range keys {
		if k.Kind() == domain.CellKeyKind {
			cells = append(cells, k)
		}
	}

	var out []domain.CellStation
	for start := 0; start < len(cells); start += lookupBatch {
		end := min(start+lookupBatch, len(cells))
		conds := make([]string, 0, end-start)
		args := make([]any, 0, 5*(end-start))
		for _, k := range cells[start:end] {
			conds = append(conds, "(radio = ? AND mcc = ? AND mnc = ? AND lac = ? AND cid = ?)")
			args = append(args, k.Values()...)
		}
		var batch []domain.CellStation
		if err := db.WithContext(ctx).
			Where(strings.Join(conds, " OR "), args...).
			Find(&batch).Error; err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// FindWifis returns the stored access points matching any of keys. Keys of
// another kind are ignored.
func FindWifis(ctx context.Context, db *gorm.DB, keys []domain.Key) ([]domain.WifiStation, error) {
	var macs []any
	for _, k := range keys {
		if k.Kind() == domain.WifiKeyKind {
			macs = append(macs, k.Get("key"))
		}
	}

	var out []domain.WifiStation
	for start := 0; start < len(macs); start += lookupBatch {
		end := min(start+lookupBatch, len(macs))
		var batch []domain.WifiStation
		if err := db.WithContext(ctx).
			Where("key IN ?", macs[start:end]).
			Find(&batch).Error; err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// UpsertCell inserts c or updates the position of the station with the same
// identity. A station that fails the cell station schema is rejected with a
// *domain.ValidationError and nothing is written.
func UpsertCell(ctx context.Context, db *gorm.DB, c *domain.CellStation) error {
	if _, err := domain.CellStations.Validate(c.Fields(), true); err != nil {
		return err
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "radio"}, {Name: "mcc"}, {Name: "mnc"}, {Name: "lac"}, {Name: "cid"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"lat", "lon", "range", "updated_at"}),
	}).Create(c).Error
}

// UpsertWifi inserts w or updates the position of the access point with the
// same key. Invalid stations are rejected like in UpsertCell.
func UpsertWifi(ctx context.Context, db *gorm.DB, w *domain.WifiStation) error {
	if _, err := domain.WifiStations.Validate(w.Fields(), true); err != nil {
		return err
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"lat", "lon", "range", "updated_at"}),
	}).Create(w).Error
}
