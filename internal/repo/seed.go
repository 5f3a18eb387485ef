package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/guyt101z/ichnaea/internal/domain"
)

// Seed is the on-disk layout of a seed file. Every entry is keyword data that
// passes through the matching domain constructor.
type Seed struct {
	APIKeys []map[string]any `yaml:"api_keys"`
	Cells   []map[string]any `yaml:"cells"`
	Wifis   []map[string]any `yaml:"wifis"`
}

// SeedStats reports how many rows a seed run wrote.
type SeedStats struct {
	APIKeys int
	Cells   int
	Wifis   int
}

// LoadSeed reads the YAML seed at path and writes it in one transaction.
// Invalid entries abort the whole load.
func LoadSeed(ctx context.Context, db *gorm.DB, path string) (SeedStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedStats{}, err
	}
	defer f.Close()
	return ApplySeed(ctx, db, f)
}

// ApplySeed decodes a YAML seed from r and upserts its entries.
func ApplySeed(ctx context.Context, db *gorm.DB, r io.Reader) (SeedStats, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return SeedStats{}, fmt.Errorf("seed: decode: %w", err)
	}

	var st SeedStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, e := range s.APIKeys {
			k, err := domain.APIKeys.Create(e, true)
			if err != nil {
				return fmt.Errorf("seed: api_keys[%d]: %w", i, err)
			}
			if err := SaveAPIKey(ctx, tx, k); err != nil {
				return err
			}
			st.APIKeys++
		}
		for i, e := range s.Cells {
			c, err := domain.CellStations.Create(e, true)
			if err != nil {
				return fmt.Errorf("seed: cells[%d]: %w", i, err)
			}
			if err := UpsertCell(ctx, tx, c); err != nil {
				return err
			}
			st.Cells++
		}
		for i, e := range s.Wifis {
			w, err := domain.WifiStations.Create(e, true)
			if err != nil {
				return fmt.Errorf("seed: wifis[%d]: %w", i, err)
			}
			if err := UpsertWifi(ctx, tx, w); err != nil {
				return err
			}
			st.Wifis++
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	return st, nil
}
