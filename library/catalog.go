package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// catalogStore reads and writes book rows through q, which is either the
// database handle or the transaction of the operation in progress.
type catalogStore struct {
	q sqlx.Ext
}

func validateBook(title, author string, quantity int) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidArgument)
	}
	if strings.TrimSpace(author) == "" {
		return fmt.Errorf("%w: author cannot be empty", ErrInvalidArgument)
	}
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidArgument, quantity)
	}
	return nil
}

// create inserts a book with every copy available.
func (c catalogStore) create(title, author string, quantity int) (*Book, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if err := validateBook(title, author, quantity); err != nil {
		return nil, err
	}
	res, err := c.q.Exec(`INSERT INTO books(title,author,quantity,available) VALUES(?,?,?,?)`,
		title, author, quantity, quantity)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Book{ID: id, Title: title, Author: author, Quantity: quantity, Available: quantity}, nil
}

func (c catalogStore) get(id int64) (*Book, error) {
	var b Book
	err := sqlx.Get(c.q, &b, `SELECT id,title,author,quantity,available FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &b, nil
}

// list returns every book in insertion order.
func (c catalogStore) list() ([]Book, error) {
	books := []Book{}
	if err := sqlx.Select(c.q, &books, `SELECT id,title,author,quantity,available FROM books ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// update applies u to the book. A quantity change shifts available by the
// same delta and is refused when that would leave available negative.
func (c catalogStore) update(id int64, u BookUpdate) (*Book, error) {
	b, err := c.get(id)
	if err != nil {
		return nil, err
	}

	next := *b
	if u.Title != nil {
		next.Title = strings.TrimSpace(*u.Title)
	}
	if u.Author != nil {
		next.Author = strings.TrimSpace(*u.Author)
	}
	if u.Quantity != nil {
		next.Quantity = *u.Quantity
		next.Available = b.Available + (next.Quantity - b.Quantity)
	}
	if err := validateBook(next.Title, next.Author, next.Quantity); err != nil {
		return nil, err
	}
	if next.Available < 0 {
		return nil, fmt.Errorf("%w: cannot reduce quantity of book %d to %d, %d copies are issued",
			ErrInvariantViolation, id, next.Quantity, b.Quantity-b.Available)
	}

	if _, err := c.q.Exec(`UPDATE books SET title=?, author=?, quantity=?, available=? WHERE id=?`,
		next.Title, next.Author, next.Quantity, next.Available, id); err != nil {
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}
	return &next, nil
}

// adjustAvailable moves available by delta, keeping it within [0, quantity].
func (c catalogStore) adjustAvailable(id int64, delta int) (*Book, error) {
	b, err := c.get(id)
	if err != nil {
		return nil, err
	}
	next := b.Available + delta
	if next < 0 || next > b.Quantity {
		return nil, fmt.Errorf("%w: available of book %d would become %d (quantity %d)",
			ErrInvariantViolation, id, next, b.Quantity)
	}
	if _, err := c.q.Exec(`UPDATE books SET available=? WHERE id=?`, next, id); err != nil {
		return nil, fmt.Errorf("adjust available of book %d: %w", id, err)
	}
	b.Available = next
	return b, nil
}

func (c catalogStore) delete(id int64) error {
	res, err := c.q.Exec(`DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	return nil
}
