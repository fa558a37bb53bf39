package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/lazypower/culler/internal/signature"
)

// RetentionRecord is an asset the user explicitly kept.
type RetentionRecord struct {
	AssetID        string `json:"asset_id"`
	PerceptualHash uint64 `json:"perceptual_hash"`
	DifferenceHash uint64 `json:"difference_hash"`
	RetainedAt     int64  `json:"retained_at"` // unix millis
}

func encodeHash(h uint64, kind goimagehash.Kind) string {
	return goimagehash.NewImageHash(h, kind).ToString()
}

func decodeHash(s string) (uint64, error) {
	h, err := goimagehash.ImageHashFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return h.GetHash(), nil
}

// IsRetained reports whether the asset has a retention record.
func (db *DB) IsRetained(id string) (bool, error) {
	var one int
	err := db.QueryRow("SELECT 1 FROM retained_assets WHERE asset_id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is retained: %w", err)
	}
	return true, nil
}

// MarkRetained upserts a record per asset. ids and sigs are parallel.
func (db *DB) MarkRetained(ids []string, sigs []signature.Signature) error {
	if len(ids) != len(sigs) {
		return fmt.Errorf("mark retained: %d ids but %d signatures", len(ids), len(sigs))
	}
	now := time.Now().UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("mark retained: %w", err)
	}
	for i, id := range ids {
		p := encodeHash(sigs[i].PerceptualHash, goimagehash.PHash)
		d := encodeHash(sigs[i].DifferenceHash, goimagehash.DHash)
		if _, err := tx.Exec(`
			INSERT INTO retained_assets (asset_id, perceptual_hash, difference_hash, retained_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(asset_id) DO UPDATE SET perceptual_hash = ?, difference_hash = ?, retained_at = ?
		`, id, p, d, now, p, d, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("mark retained %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mark retained: %w", err)
	}
	return nil
}

// ClearRetained deletes every retention record.
func (db *DB) ClearRetained() error {
	if _, err := db.Exec("DELETE FROM retained_assets"); err != nil {
		return fmt.Errorf("clear retained: %w", err)
	}
	return nil
}

// GetRetained returns the record for an asset, or nil if it was never kept.
func (db *DB) GetRetained(id string) (*RetentionRecord, error) {
	var r RetentionRecord
	var p, d string
	err := db.QueryRow(`
		SELECT asset_id, perceptual_hash, difference_hash, retained_at
		FROM retained_assets WHERE asset_id = ?
	`, id).Scan(&r.AssetID, &p, &d, &r.RetainedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get retained: %w", err)
	}
	if r.PerceptualHash, err = decodeHash(p); err != nil {
		return nil, err
	}
	if r.DifferenceHash, err = decodeHash(d); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRetained returns every record, most recently kept first.
func (db *DB) ListRetained() ([]RetentionRecord, error) {
	rows, err := db.Query(`
		SELECT asset_id, perceptual_hash, difference_hash, retained_at
		FROM retained_assets ORDER BY retained_at DESC, asset_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list retained: %w", err)
	}
	defer rows.Close()

	var records []RetentionRecord
	for rows.Next() {
		var r RetentionRecord
		var p, d string
		if err := rows.Scan(&r.AssetID, &p, &d, &r.RetainedAt); err != nil {
			return nil, fmt.Errorf("scan retained: %w", err)
		}
		if r.PerceptualHash, err = decodeHash(p); err != nil {
			return nil, err
		}
		if r.DifferenceHash, err = decodeHash(d); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
