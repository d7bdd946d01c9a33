package store

import (
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DevUserID is the fixed identity created by SeedDevUser so the API is
// usable before a signup flow exists.
const DevUserID = "00000000-0000-0000-0000-000000000001"

const devUserEmail = "test@example.com"

// GetUser fetches a user by id.
func (s *Store) GetUser(id string) (*User, error) {
	var u User
	err := s.db.QueryRow(`
		SELECT id, email, hashed_password, created_at, updated_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "user", ID: id}
	}
	if err != nil {
		return nil, &StorageError{Op: "get user", Err: err}
	}
	return &u, nil
}

// CreateUser inserts a user with a bcrypt-hashed password.
func (s *Store) CreateUser(id, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &StorageError{Op: "create user", Err: err}
	}
	now := time.Now().UTC()

	_, err = s.db.Exec(`
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, email, string(hash), now, now)
	if err != nil {
		return nil, &StorageError{Op: "create user", Err: err}
	}

	return &User{
		ID:             id,
		Email:          email,
		HashedPassword: string(hash),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SeedDevUser creates the development user if it does not already
// exist. Idempotent across restarts.
func (s *Store) SeedDevUser() error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, DevUserID).Scan(&exists)
	if err != nil {
		return &StorageError{Op: "seed dev user", Err: err}
	}
	if exists > 0 {
		return nil
	}

	if _, err := s.CreateUser(DevUserID, devUserEmail, "password123"); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("created dev user", "user_id", DevUserID, "email", devUserEmail)
	}
	return nil
}
