package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/localtv/localtv/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// unusablePrefix marks a stored password that can never match any input.
// Accounts created through an external identity provider carry one.
const unusablePrefix = "!"

type User struct {
	ID          string
	Username    string
	Email       string
	Name        string
	Password    string
	IsSuperuser bool
}

// Backend verifies username/password credentials against the users table.
type Backend struct {
	db database.DBTX
}

func NewBackend(db database.DBTX) *Backend {
	return &Backend{db: db}
}

// Authenticate returns the user whose password matches, or nil when the
// username is unknown or the password does not verify. Only storage
// failures are returned as errors.
//
// A user with an empty stored password is first rewritten to an unusable
// password so that the account can only sign in through its other login path.
func (b *Backend) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var u User
	err := b.db.QueryRow(ctx,
		`SELECT id, username, email, name, password, is_superuser FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.Password, &u.IsSuperuser)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if u.Password == "" {
		unusable, err := UnusablePassword()
		if err != nil {
			return nil, err
		}
		if _, err := b.db.Exec(ctx, `UPDATE users SET password = $1 WHERE id = $2`, unusable, u.ID); err != nil {
			return nil, fmt.Errorf("mark password unusable: %w", err)
		}
		u.Password = unusable
	}

	if !CheckPassword(u.Password, password) {
		return nil, nil
	}
	return &u, nil
}

// SetPassword stores a new bcrypt hash for the user.
func (b *Backend) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := b.db.Exec(ctx, `UPDATE users SET password = $1 WHERE id = $2`, hash, userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func UnusablePassword() (string, error) {
	var b [30]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate unusable password: %w", err)
	}
	return unusablePrefix + base64.RawURLEncoding.EncodeToString(b[:]), nil
}

func HasUsablePassword(stored string) bool {
	return stored != "" && !strings.HasPrefix(stored, unusablePrefix)
}

func CheckPassword(stored, password string) bool {
	if !HasUsablePassword(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
