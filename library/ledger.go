package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Ledger is the only writer of book and issue state. Mutations on the same
// book are serialized by a per-book lock; mutations on different books run
// in parallel up to SQLite's single-writer commit. Every mutation is one
// database transaction, so a loan and its counter change commit together.
type Ledger struct {
	db    *Database
	locks *bookLocks
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.log = logger }
}

// WithClock replaces time.Now for issue and return timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger builds a Ledger on top of an open Database.
func NewLedger(db *Database, opts ...Option) *Ledger {
	l := &Ledger{
		db:    db,
		locks: newBookLocks(),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) catalog(q sqlx.Ext) catalogStore { return catalogStore{q: q} }
func (l *Ledger) issues(q sqlx.Ext) issueStore    { return issueStore{q: q, now: l.now} }

// ------------------ Catalog ------------------

func (l *Ledger) ListBooks() ([]Book, error) { return l.catalog(l.db.db).list() }

func (l *Ledger) GetBook(id int64) (*Book, error) { return l.catalog(l.db.db).get(id) }

func (l *Ledger) AddBook(title, author string, quantity int) (*Book, error) {
	var book *Book
	err := l.db.withTx(func(tx *sqlx.Tx) error {
		var err error
		book, err = l.catalog(tx).create(title, author, quantity)
		return err
	})
	if err != nil {
		l.log.Debug("add book rejected", "title", title, "error", err)
		return nil, err
	}
	l.log.Info("book added", "book_id", book.ID, "quantity", book.Quantity)
	return book, nil
}

func (l *Ledger) UpdateBook(id int64, u BookUpdate) (*Book, error) {
	unlock := l.locks.lock(id)
	defer unlock()

	var book *Book
	err := l.db.withTx(func(tx *sqlx.Tx) error {
		var err error
		book, err = l.catalog(tx).update(id, u)
		return err
	})
	if err != nil {
		l.log.Debug("update book rejected", "book_id", id, "error", err)
		return nil, err
	}
	l.log.Info("book updated", "book_id", id, "quantity", book.Quantity, "available", book.Available)
	return book, nil
}

// DeleteBook removes a book that has no active loans. The check and the
// delete share the book lock and one transaction, so no loan can be
// created in between.
func (l *Ledger) DeleteBook(id int64) error {
	unlock := l.locks.lock(id)
	defer unlock()

	err := l.db.withTx(func(tx *sqlx.Tx) error {
		catalog, issues := l.catalog(tx), l.issues(tx)
		if _, err := catalog.get(id); err != nil {
			return err
		}
		inUse, err := issues.hasActiveForBook(id)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: book %d", ErrBookInUse, id)
		}
		return catalog.delete(id)
	})
	if err != nil {
		l.log.Debug("delete book rejected", "book_id", id, "error", err)
		return err
	}
	l.log.Info("book deleted", "book_id", id)
	return nil
}

// ------------------ Circulation ------------------

// IssueBook lends one copy of bookID to userID.
func (l *Ledger) IssueBook(userID, bookID int64) (*IssueRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidArgument, userID)
	}

	unlock := l.locks.lock(bookID)
	defer unlock()

	var rec *IssueRecord
	err := l.db.withTx(func(tx *sqlx.Tx) error {
		catalog, issues := l.catalog(tx), l.issues(tx)

		book, err := catalog.get(bookID)
		if err != nil {
			return err
		}
		if book.Available <= 0 {
			return fmt.Errorf("%w: book %d", ErrOutOfStock, bookID)
		}
		active, err := issues.findActive(userID, bookID)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("%w: user %d holds issue %d", ErrDuplicateLoan, userID, active.ID)
		}

		if rec, err = issues.create(userID, bookID); err != nil {
			return err
		}
		_, err = catalog.adjustAvailable(bookID, -1)
		return err
	})
	if err != nil {
		l.log.Debug("issue rejected", "user_id", userID, "book_id", bookID, "error", err)
		return nil, err
	}
	l.log.Info("book issued", "issue_id", rec.ID, "user_id", userID, "book_id", bookID)
	return rec, nil
}

// ReturnBook closes the loan issueID and puts the copy back on the shelf.
// If the book has since been deleted the loan is still closed.
func (l *Ledger) ReturnBook(issueID int64) error {
	// book_id never changes, so it is safe to read before taking the lock.
	rec, err := l.issues(l.db.db).get(issueID)
	if err != nil {
		return err
	}

	unlock := l.locks.lock(rec.BookID)
	defer unlock()

	bookGone := false
	err = l.db.withTx(func(tx *sqlx.Tx) error {
		catalog, issues := l.catalog(tx), l.issues(tx)

		if _, err := issues.markReturned(issueID); err != nil {
			return err
		}
		_, err := catalog.adjustAvailable(rec.BookID, +1)
		if errors.Is(err, ErrNotFound) {
			bookGone = true
			return nil
		}
		return err
	})
	if err != nil {
		l.log.Debug("return rejected", "issue_id", issueID, "error", err)
		return err
	}
	if bookGone {
		l.log.Warn("returned loan references a deleted book", "issue_id", issueID, "book_id", rec.BookID)
	}
	l.log.Info("book returned", "issue_id", issueID, "user_id", rec.UserID, "book_id", rec.BookID)
	return nil
}
