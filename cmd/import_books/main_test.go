package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtrack/library"
)

func newImportLedger(t *testing.T) *library.Ledger {
	t.Helper()
	db, err := library.NewDatabase(filepath.Join(t.TempDir(), "import.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return library.NewLedger(db)
}

func TestImportCSV(t *testing.T) {
	ledger := newImportLedger(t)

	input := strings.Join([]string{
		"title,author,quantity",
		"1984,George Orwell,3",
		"Animal Farm, George Orwell, 2",
		"No Copies,Someone,0",
		"Bad Quantity,Someone,many",
		"Too,Few",
		`"The Art of War",Sun Tzu,1`,
	}, "\n")

	ok, failed := importCSV(io.Discard, ledger, strings.NewReader(input))
	assert.Equal(t, 3, ok)
	assert.Equal(t, 3, failed)

	books, err := ledger.ListBooks()
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "1984", books[0].Title)
	assert.Equal(t, "George Orwell", books[1].Author)
	assert.Equal(t, 2, books[1].Available)
	assert.Equal(t, "The Art of War", books[2].Title)
}

func TestImportCSVReportsPhysicalLines(t *testing.T) {
	ledger := newImportLedger(t)

	input := strings.Join([]string{
		"title,author,quantity",
		`"A Title",Author,1`,
		`"Notes on`,
		`Two Lines",Someone,2`,
		"Bad Quantity,Someone,many",
		"Too,Few",
	}, "\n")

	var out bytes.Buffer
	ok, failed := importCSV(&out, ledger, strings.NewReader(input))
	assert.Equal(t, 2, ok)
	assert.Equal(t, 2, failed)
	assert.Contains(t, out.String(), `Line 5: ERROR - invalid quantity "many"`)
	assert.Contains(t, out.String(), "Line 6: ERROR - ")

	books, err := ledger.ListBooks()
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Notes on\nTwo Lines", books[1].Title)
}
