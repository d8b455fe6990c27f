package library

import "time"

// Role distinguishes administrators from borrowers.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBorrower Role = "borrower"
)

// Book is a catalog entry. Available counts the copies not currently on loan.
type Book struct {
	ID        int64  `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Available int    `json:"available" db:"available"`
}

// BookUpdate carries the fields of an updateBook call; nil fields are left as-is.
type BookUpdate struct {
	Title    *string
	Author   *string
	Quantity *int
}

// IssueRecord is one loan of one book to one user. A nil ReturnedAt means
// the loan is still active.
type IssueRecord struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	ReturnedAt *time.Time `json:"returned_at"`
}

// Active reports whether the loan has not been returned yet.
func (r IssueRecord) Active() bool { return r.ReturnedAt == nil }

// IssueView is an IssueRecord joined with display data. Missing books or
// users are rendered with placeholder names.
type IssueView struct {
	IssueRecord
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
	Username   string `json:"username,omitempty"`
}

// User is an account from the identity store.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"` // Don't serialize password hash
	Role         Role   `json:"role" db:"role"`
	FullName     string `json:"full_name" db:"full_name"`
}

// Stats are the dashboard counters.
type Stats struct {
	TotalCopies     int `json:"total_copies"`
	IssuedCopies    int `json:"issued_copies"`
	ActiveBorrowers int `json:"active_borrowers"`
}

// Dashboard bundles the counters with the most recent transactions.
type Dashboard struct {
	Stats
	Recent []IssueView `json:"recent"`
}
