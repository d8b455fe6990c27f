package library

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueUntilOutOfStock(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Only Copy", "Author", 1)
	require.NoError(t, err)

	rec, err := ledger.IssueBook(1, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, book.ID, rec.BookID)
	assert.True(t, rec.Active())

	got, err := ledger.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available)

	_, err = ledger.IssueBook(2, book.ID)
	require.ErrorIs(t, err, ErrOutOfStock)
	requireConsistent(t, db)
}

func TestIssueTwiceToSameUser(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Popular", "Author", 1)
	require.NoError(t, err)
	_, err = ledger.IssueBook(1, book.ID)
	require.NoError(t, err)

	// With no copies left, stock is checked before the duplicate
	// (see "Check order in issue" in DESIGN.md).
	_, err = ledger.IssueBook(1, book.ID)
	require.ErrorIs(t, err, ErrOutOfStock)

	_, err = ledger.UpdateBook(book.ID, BookUpdate{Quantity: intPtr(2)})
	require.NoError(t, err)
	_, err = ledger.IssueBook(1, book.ID)
	require.ErrorIs(t, err, ErrDuplicateLoan)

	got, err := ledger.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available, "a rejected issue must not touch the counter")
	requireConsistent(t, db)
}

func TestIssueUnknownBook(t *testing.T) {
	ledger, _ := newTestLedger(t)
	_, err := ledger.IssueBook(1, 404)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.IssueBook(0, 404)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteRefusedWhileIssued(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Loaned", "Author", 1)
	require.NoError(t, err)
	rec, err := ledger.IssueBook(1, book.ID)
	require.NoError(t, err)

	require.ErrorIs(t, ledger.DeleteBook(book.ID), ErrBookInUse)
	_, err = ledger.GetBook(book.ID)
	require.NoError(t, err, "refused delete must keep the book")

	require.NoError(t, ledger.ReturnBook(rec.ID))
	require.NoError(t, ledger.DeleteBook(book.ID))
	require.ErrorIs(t, ledger.DeleteBook(book.ID), ErrNotFound)
	requireConsistent(t, db)
}

func TestShrinkQuantityBelowLoans(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Shelf", "Author", 5)
	require.NoError(t, err)
	for user := int64(1); user <= 3; user++ {
		_, err := ledger.IssueBook(user, book.ID)
		require.NoError(t, err)
	}

	_, err = ledger.UpdateBook(book.ID, BookUpdate{Quantity: intPtr(2)})
	require.ErrorIs(t, err, ErrInvariantViolation)

	got, err := ledger.UpdateBook(book.ID, BookUpdate{Quantity: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, 1, got.Available)

	got, err = ledger.UpdateBook(book.ID, BookUpdate{Quantity: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available)

	_, err = ledger.UpdateBook(999, BookUpdate{Quantity: intPtr(3)})
	require.ErrorIs(t, err, ErrNotFound)
	requireConsistent(t, db)
}

func TestReturnRestoresAvailability(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Round Trip", "Author", 2)
	require.NoError(t, err)

	rec, err := ledger.IssueBook(1, book.ID)
	require.NoError(t, err)
	require.NoError(t, ledger.ReturnBook(rec.ID))

	got, err := ledger.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Available)

	views, err := ledger.ListIssuesForUser(1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].ReturnedAt)
	assert.True(t, views[0].IssuedAt.Equal(rec.IssuedAt), "issue time must not change on return")
	assert.True(t, views[0].ReturnedAt.After(rec.IssuedAt))
	requireConsistent(t, db)
}

func TestReturnTwice(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Twice", "Author", 3)
	require.NoError(t, err)
	rec, err := ledger.IssueBook(1, book.ID)
	require.NoError(t, err)

	require.NoError(t, ledger.ReturnBook(rec.ID))
	require.ErrorIs(t, ledger.ReturnBook(rec.ID), ErrAlreadyReturned)

	got, err := ledger.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Available, "counter increments exactly once")

	require.ErrorIs(t, ledger.ReturnBook(12345), ErrNotFound)
	requireConsistent(t, db)
}

func TestReturnWhenBookIsGone(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Vanishing", "Author", 1)
	require.NoError(t, err)
	rec, err := ledger.IssueBook(1, book.ID)
	require.NoError(t, err)

	// Bypass the ledger to reach a state its own delete refuses to create.
	_, err = db.db.Exec(`DELETE FROM books WHERE id=?`, book.ID)
	require.NoError(t, err)

	require.NoError(t, ledger.ReturnBook(rec.ID))
	views, err := ledger.ListAllIssues()
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].Active())
}

func TestFailedIssueLeavesNoPartialWrite(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Guarded", "Author", 2)
	require.NoError(t, err)

	// Break the decrement half of the transaction: the loan insert that
	// precedes it must be rolled back with it.
	_, err = db.db.Exec(`CREATE TRIGGER fail_decrement BEFORE UPDATE OF available ON books
        BEGIN SELECT RAISE(ABORT, 'disk on fire'); END;`)
	require.NoError(t, err)

	_, err = ledger.IssueBook(1, book.ID)
	require.Error(t, err)

	all, err := ledger.ListAllIssues()
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = db.db.Exec(`DROP TRIGGER fail_decrement`)
	require.NoError(t, err)
	_, err = ledger.IssueBook(1, book.ID)
	require.NoError(t, err)
	requireConsistent(t, db)
}

func TestFailedReturnLeavesNoPartialWrite(t *testing.T) {
	ledger, db := newTestLedger(t)
	book, err := ledger.AddBook("Guarded", "Author", 1)
	require.NoError(t, err)
	rec, err := ledger.IssueBook(1, book.ID)
	require.NoError(t, err)

	// Break the increment half: marking the loan returned must roll back too.
	_, err = db.db.Exec(`CREATE TRIGGER fail_increment BEFORE UPDATE OF available ON books
        BEGIN SELECT RAISE(ABORT, 'disk on fire'); END;`)
	require.NoError(t, err)

	require.Error(t, ledger.ReturnBook(rec.ID))

	loans, err := ledger.ListIssuesForUser(1)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.True(t, loans[0].Active())
	requireConsistent(t, db)

	_, err = db.db.Exec(`DROP TRIGGER fail_increment`)
	require.NoError(t, err)
	require.NoError(t, ledger.ReturnBook(rec.ID))
	got, err := ledger.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available)
	requireConsistent(t, db)
}

func TestAddBookValidation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	_, err := ledger.AddBook("", "Author", 1)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ledger.AddBook("Title", "Author", 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	books, err := ledger.ListBooks()
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestListBooksReturnsCopies(t *testing.T) {
	ledger, _ := newTestLedger(t)
	_, err := ledger.AddBook("Original", "Author", 1)
	require.NoError(t, err)

	books, err := ledger.ListBooks()
	require.NoError(t, err)
	books[0].Available = 100

	again, err := ledger.ListBooks()
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Available)
}

func TestLedgerLogsMutations(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ledger := NewLedger(tempDB(t), WithLogger(logger))

	book, err := ledger.AddBook("Logged", "Author", 1)
	require.NoError(t, err)
	_, err = ledger.IssueBook(3, book.ID)
	require.NoError(t, err)
	_, err = ledger.IssueBook(4, book.ID)
	require.ErrorIs(t, err, ErrOutOfStock)

	out := buf.String()
	assert.Contains(t, out, "book issued")
	assert.Contains(t, out, "user_id=3")
	assert.Contains(t, out, "issue rejected")
}
