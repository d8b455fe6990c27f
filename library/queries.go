package library

import "github.com/jmoiron/sqlx"

// Placeholders for history rows whose book or user no longer exists.
const (
	unknownName = "Unknown"
	deletedBook = "Deleted Book"
)

// ListIssuesForUser returns the loans of userID, newest first, with the
// book title and author filled in.
func (l *Ledger) ListIssuesForUser(userID int64) ([]IssueView, error) {
	var views []IssueView
	err := l.db.withTx(func(tx *sqlx.Tx) error {
		records, err := l.issues(tx).listForUser(userID)
		if err != nil {
			return err
		}
		books, err := l.bookIndex(tx)
		if err != nil {
			return err
		}
		views = make([]IssueView, 0, len(records))
		for _, r := range records {
			v := IssueView{IssueRecord: r, BookTitle: unknownName, BookAuthor: unknownName}
			if b, ok := books[r.BookID]; ok {
				v.BookTitle, v.BookAuthor = b.Title, b.Author
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

// ListAllIssues returns every loan, newest first, joined with book and
// username.
func (l *Ledger) ListAllIssues() ([]IssueView, error) {
	var views []IssueView
	err := l.db.withTx(func(tx *sqlx.Tx) error {
		var err error
		views, err = l.allIssues(tx)
		return err
	})
	return views, err
}

// Stats computes the dashboard counters from one snapshot.
func (l *Ledger) Stats() (Stats, error) {
	var stats Stats
	err := l.db.withTx(func(tx *sqlx.Tx) error {
		var err error
		stats, err = l.stats(tx)
		return err
	})
	return stats, err
}

// Dashboard returns the counters and the newest recent loans from the same
// snapshot. A non-positive recent returns no loans.
func (l *Ledger) Dashboard(recent int) (*Dashboard, error) {
	d := &Dashboard{Recent: []IssueView{}}
	err := l.db.withTx(func(tx *sqlx.Tx) error {
		var err error
		if d.Stats, err = l.stats(tx); err != nil {
			return err
		}
		all, err := l.allIssues(tx)
		if err != nil {
			return err
		}
		if recent > len(all) {
			recent = len(all)
		}
		if recent > 0 {
			d.Recent = all[:recent]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (l *Ledger) allIssues(tx *sqlx.Tx) ([]IssueView, error) {
	records, err := l.issues(tx).listAll()
	if err != nil {
		return nil, err
	}
	books, err := l.bookIndex(tx)
	if err != nil {
		return nil, err
	}
	names, err := userStore{q: tx}.usernames()
	if err != nil {
		return nil, err
	}

	views := make([]IssueView, 0, len(records))
	for _, r := range records {
		v := IssueView{IssueRecord: r, BookTitle: deletedBook, BookAuthor: unknownName, Username: unknownName}
		if b, ok := books[r.BookID]; ok {
			v.BookTitle, v.BookAuthor = b.Title, b.Author
		}
		if name, ok := names[r.UserID]; ok {
			v.Username = name
		}
		views = append(views, v)
	}
	return views, nil
}

// stats counts every user that appears anywhere in the issue history as a
// borrower, whether or not the loan is still open.
func (l *Ledger) stats(tx *sqlx.Tx) (Stats, error) {
	books, err := l.catalog(tx).list()
	if err != nil {
		return Stats{}, err
	}
	records, err := l.issues(tx).listAll()
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	available := 0
	for _, b := range books {
		s.TotalCopies += b.Quantity
		available += b.Available
	}
	s.IssuedCopies = s.TotalCopies - available

	borrowers := make(map[int64]struct{})
	for _, r := range records {
		borrowers[r.UserID] = struct{}{}
	}
	s.ActiveBorrowers = len(borrowers)
	return s, nil
}

func (l *Ledger) bookIndex(tx *sqlx.Tx) (map[int64]Book, error) {
	books, err := l.catalog(tx).list()
	if err != nil {
		return nil, err
	}
	index := make(map[int64]Book, len(books))
	for _, b := range books {
		index[b.ID] = b
	}
	return index, nil
}
