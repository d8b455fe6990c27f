package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// issueStore is the append-mostly log of loans. Rows are inserted by create
// and touched exactly once more by markReturned.
type issueStore struct {
	q   sqlx.Ext
	now func() time.Time
}

// issueRow mirrors the issues table; timestamps are UTC unix nanoseconds.
type issueRow struct {
	ID         int64         `db:"id"`
	UserID     int64         `db:"user_id"`
	BookID     int64         `db:"book_id"`
	IssueTime  int64         `db:"issue_time"`
	ReturnTime sql.NullInt64 `db:"return_time"`
}

func (r issueRow) record() IssueRecord {
	rec := IssueRecord{
		ID:       r.ID,
		UserID:   r.UserID,
		BookID:   r.BookID,
		IssuedAt: time.Unix(0, r.IssueTime).UTC(),
	}
	if r.ReturnTime.Valid {
		t := time.Unix(0, r.ReturnTime.Int64).UTC()
		rec.ReturnedAt = &t
	}
	return rec
}

const issueColumns = `id,user_id,book_id,issue_time,return_time`

func (s issueStore) create(userID, bookID int64) (*IssueRecord, error) {
	now := s.now().UnixNano()
	res, err := s.q.Exec(`INSERT INTO issues(user_id,book_id,issue_time) VALUES(?,?,?)`, userID, bookID, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: user %d, book %d", ErrDuplicateLoan, userID, bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	rec := issueRow{ID: id, UserID: userID, BookID: bookID, IssueTime: now}.record()
	return &rec, nil
}

func (s issueStore) get(id int64) (*IssueRecord, error) {
	var row issueRow
	err := sqlx.Get(s.q, &row, `SELECT `+issueColumns+` FROM issues WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: issue record %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %d: %w", id, err)
	}
	rec := row.record()
	return &rec, nil
}

// findActive returns the open loan of bookID held by userID, or nil.
func (s issueStore) findActive(userID, bookID int64) (*IssueRecord, error) {
	var row issueRow
	err := sqlx.Get(s.q, &row, `SELECT `+issueColumns+` FROM issues
        WHERE user_id=? AND book_id=? AND return_time IS NULL`, userID, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active issue: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

func (s issueStore) hasActiveForBook(bookID int64) (bool, error) {
	var exists bool
	if err := sqlx.Get(s.q, &exists,
		`SELECT EXISTS(SELECT 1 FROM issues WHERE book_id=? AND return_time IS NULL)`, bookID); err != nil {
		return false, fmt.Errorf("check active issues for book %d: %w", bookID, err)
	}
	return exists, nil
}

// markReturned stamps the return time of an active loan. The guarded UPDATE
// decides; a zero row count is then explained as NotFound or AlreadyReturned.
func (s issueStore) markReturned(id int64) (*IssueRecord, error) {
	now := s.now().UnixNano()
	res, err := s.q.Exec(`UPDATE issues SET return_time=? WHERE id=? AND return_time IS NULL`, now, id)
	if err != nil {
		return nil, fmt.Errorf("mark issue %d returned: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark issue %d returned: %w", id, err)
	}
	rec, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: issue record %d", ErrAlreadyReturned, id)
	}
	return rec, nil
}

// listForUser and listAll return the most recent loans first.
func (s issueStore) listForUser(userID int64) ([]IssueRecord, error) {
	return s.list(`SELECT `+issueColumns+` FROM issues WHERE user_id=? ORDER BY issue_time DESC, id DESC`, userID)
}

func (s issueStore) listAll() ([]IssueRecord, error) {
	return s.list(`SELECT ` + issueColumns + ` FROM issues ORDER BY issue_time DESC, id DESC`)
}

func (s issueStore) list(query string, args ...any) ([]IssueRecord, error) {
	var rows []issueRow
	if err := sqlx.Select(s.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	records := make([]IssueRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}
