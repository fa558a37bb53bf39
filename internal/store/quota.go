package store

import (
	"database/sql"
	"fmt"
)

// LoadQuota returns the most recent day counter. An empty day means no
// group was ever finalized.
func (db *DB) LoadQuota() (string, int, error) {
	var day string
	var used int
	err := db.QueryRow("SELECT day, used FROM quota_counters ORDER BY day DESC LIMIT 1").Scan(&day, &used)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("load quota: %w", err)
	}
	return day, used, nil
}

// SaveQuota records how many groups were finalized on day.
func (db *DB) SaveQuota(day string, used int) error {
	_, err := db.Exec(`
		INSERT INTO quota_counters (day, used) VALUES (?, ?)
		ON CONFLICT(day) DO UPDATE SET used = ?
	`, day, used, used)
	if err != nil {
		return fmt.Errorf("save quota: %w", err)
	}
	return nil
}
