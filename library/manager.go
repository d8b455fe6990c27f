package library

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Manager wires the database, the ledger and the identity store together so
// the CLI only has one thing to open and close.
type Manager struct {
	*Ledger
	Users *IdentityStore

	db *Database
}

// ManagerConfig carries the knobs Open needs.
type ManagerConfig struct {
	DatabasePath string
	BusyTimeout  time.Duration
	BcryptCost   int
	Logger       *slog.Logger
}

// Open opens (or creates) the SQLite database and builds the services on it.
func Open(cfg ManagerConfig) (*Manager, error) {
	db, err := NewDatabase(cfg.DatabasePath, cfg.BusyTimeout)
	if err != nil {
		return nil, err
	}
	var opts []Option
	if cfg.Logger != nil {
		opts = append(opts, WithLogger(cfg.Logger))
	}
	return &Manager{
		Ledger: NewLedger(db, opts...),
		Users:  NewIdentityStore(db, cfg.BcryptCost),
		db:     db,
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-5d %-30s %-25s %9d %9d",
		b.ID, Truncate(b.Title, 30), Truncate(b.Author, 25), b.Quantity, b.Available)
}

// PrettyIssue formats a joined issue record for lists.
func PrettyIssue(v IssueView) string {
	returned := "-"
	if v.ReturnedAt != nil {
		returned = v.ReturnedAt.Local().Format(time.DateTime)
	}
	return fmt.Sprintf("%-6d %-15s %-30s %-20s %-20s",
		v.ID, Truncate(v.Username, 15), Truncate(v.BookTitle, 30),
		v.IssuedAt.Local().Format(time.DateTime), returned)
}

// Truncate shortens s to maxLength, marking the cut with "...".
func Truncate(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return strings.TrimSpace(string(r[:maxLength-3])) + "..."
}
