package library

import (
	"errors"
	"fmt"
)

type seedUser struct {
	username, password, fullName string
	role                         Role
}

var seedUsers = []seedUser{
	{"admin", "admin123", "Chief Librarian", RoleAdmin},
	{"student", "user123", "John Doe", RoleBorrower},
}

var seedBooks = []struct {
	title, author string
	quantity      int
}{
	{"The Great Gatsby", "F. Scott Fitzgerald", 5},
	{"Clean Code", "Robert C. Martin", 3},
	{"The Pragmatic Programmer", "Andy Hunt", 4},
	{"Introduction to Algorithms", "Thomas H. Cormen", 2},
}

// Seed loads the demo accounts and, when the catalog is empty, the demo
// books. Existing usernames are left untouched, so Seed can run repeatedly.
// Books start fully available since no loans exist yet.
func Seed(ledger *Ledger, users *IdentityStore) error {
	for _, u := range seedUsers {
		if _, err := users.CreateUser(u.username, u.password, u.fullName, u.role); err != nil &&
			!errors.Is(err, ErrUsernameTaken) {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	books, err := ledger.ListBooks()
	if err != nil {
		return err
	}
	if len(books) > 0 {
		return nil
	}
	for _, b := range seedBooks {
		if _, err := ledger.AddBook(b.title, b.author, b.quantity); err != nil {
			return fmt.Errorf("seed book %q: %w", b.title, err)
		}
	}
	return nil
}
