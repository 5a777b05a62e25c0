package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Ledger records delivered reminder identities so a reminder is never
// re-sent, including across process restarts.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates a ledger over an open database.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Seen reports whether the identity has already been delivered.
func (l *Ledger) Seen(identity string) (bool, error) {
	row := l.db.QueryRow(`SELECT 1 FROM sent_reminders WHERE identity=?`, identity)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("read sent reminder: %w", err)
	}
	return true, nil
}

// MarkSent records a delivered identity. Recording the same identity
// twice is harmless.
func (l *Ledger) MarkSent(identity string, at time.Time) error {
	_, err := l.db.Exec(`INSERT OR IGNORE INTO sent_reminders(identity, sent_at) VALUES(?, ?)`,
		identity, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert sent reminder: %w", err)
	}
	return nil
}
