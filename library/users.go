package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// IdentityStore holds user accounts. The ledger only reads usernames from
// it for display; credential checks belong to the callers.
type IdentityStore struct {
	db   *Database
	cost int
}

// NewIdentityStore creates an identity store hashing passwords at the given
// bcrypt cost. A zero cost selects bcrypt.DefaultCost.
func NewIdentityStore(db *Database, cost int) *IdentityStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &IdentityStore{db: db, cost: cost}
}

// Register creates a borrower account unless the username is taken.
func (s *IdentityStore) Register(username, password, fullName string) (*User, error) {
	return s.CreateUser(username, password, fullName, RoleBorrower)
}

// CreateUser creates an account with an explicit role.
func (s *IdentityStore) CreateUser(username, password, fullName string, role Role) (*User, error) {
	username, fullName = strings.TrimSpace(username), strings.TrimSpace(fullName)
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrInvalidArgument)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", ErrInvalidArgument)
	}
	if role != RoleAdmin && role != RoleBorrower {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, PasswordHash: string(hash), Role: role, FullName: fullName}
	res, err := s.db.db.Exec(`INSERT INTO users(username,password_hash,role,full_name) VALUES(?,?,?,?)`,
		u.Username, u.PasswordHash, u.Role, u.FullName)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate looks a user up by username and password.
func (s *IdentityStore) Authenticate(username, password string) (*User, error) {
	var u User
	err := s.db.db.Get(&u, `SELECT id,username,password_hash,role,full_name FROM users WHERE username=?`,
		strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a single user.
func (s *IdentityStore) GetUser(id int64) (*User, error) {
	var u User
	err := s.db.db.Get(&u, `SELECT id,username,password_hash,role,full_name FROM users WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// ListUsers returns all users.
func (s *IdentityStore) ListUsers() ([]User, error) {
	users := []User{}
	if err := s.db.db.Select(&users, `SELECT id,username,password_hash,role,full_name FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// userStore is the read side shared with the ledger's history joins.
type userStore struct {
	q sqlx.Queryer
}

// usernames maps user ids to usernames.
func (s userStore) usernames() (map[int64]string, error) {
	var rows []struct {
		ID       int64  `db:"id"`
		Username string `db:"username"`
	}
	if err := sqlx.Select(s.q, &rows, `SELECT id,username FROM users`); err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	names := make(map[int64]string, len(rows))
	for _, r := range rows {
		names[r.ID] = r.Username
	}
	return names, nil
}
