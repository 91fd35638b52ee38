package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "username", "email", "name", "password", "is_superuser"})
}

// unusableArg matches a password argument that carries the unusable prefix.
type unusableArg struct{}

func (unusableArg) Match(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "!") && !HasUsablePassword(s)
}

const selectUserQuery = `SELECT id, username, email, name, password, is_superuser FROM users WHERE username = \$1`

func TestAuthenticate_CorrectPassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectUserQuery).
		WithArgs("alice").
		WillReturnRows(userRows().AddRow("user-1", "alice", "alice@example.com", "Alice", hashForTest(t, "s3cret-pass"), false))

	user, err := NewBackend(mock).Authenticate(context.Background(), "alice", "s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user to authenticate")
	}
	if user.ID != "user-1" || user.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectUserQuery).
		WithArgs("alice").
		WillReturnRows(userRows().AddRow("user-1", "alice", "alice@example.com", "Alice", hashForTest(t, "s3cret-pass"), false))

	user, err := NewBackend(mock).Authenticate(context.Background(), "alice", "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Fatalf("expected no user for wrong password, got %+v", user)
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectUserQuery).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	user, err := NewBackend(mock).Authenticate(context.Background(), "ghost", "anything")
	if err != nil {
		t.Fatalf("expected silent failure for unknown user, got error %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestAuthenticate_EmptyPasswordIsNormalizedAndNeverMatches(t *testing.T) {
	for _, supplied := range []string{"", "anything", "!"} {
		t.Run("supplied="+supplied, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatal(err)
			}
			defer mock.Close()

			mock.ExpectQuery(selectUserQuery).
				WithArgs("social").
				WillReturnRows(userRows().AddRow("user-2", "social", "s@example.com", "Social", "", false))

			mock.ExpectExec(`UPDATE users SET password = \$1 WHERE id = \$2`).
				WithArgs(unusableArg{}, "user-2").
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			user, err := NewBackend(mock).Authenticate(context.Background(), "social", supplied)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user != nil {
				t.Fatalf("expected account without password to fail authentication, got %+v", user)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("expected password normalization write: %v", err)
			}
		})
	}
}

func TestAuthenticate_AlreadyUnusablePasswordIsNotRewritten(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	unusable, err := UnusablePassword()
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(selectUserQuery).
		WithArgs("social").
		WillReturnRows(userRows().AddRow("user-2", "social", "", "", unusable, false))

	user, err := NewBackend(mock).Authenticate(context.Background(), "social", unusable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Fatal("expected unusable password never to match, even itself")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestAuthenticate_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectUserQuery).
		WithArgs("alice").
		WillReturnError(errors.New("connection reset"))

	user, err := NewBackend(mock).Authenticate(context.Background(), "alice", "pw")
	if err == nil {
		t.Fatal("expected storage error to be returned")
	}
	if user != nil {
		t.Errorf("expected nil user on error, got %+v", user)
	}
}

func TestUnusablePassword(t *testing.T) {
	a, err := UnusablePassword()
	if err != nil {
		t.Fatal(err)
	}
	b, err := UnusablePassword()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a, "!") {
		t.Errorf("expected unusable prefix, got %q", a)
	}
	if a == b {
		t.Error("expected unusable passwords to differ")
	}
	if HasUsablePassword(a) {
		t.Error("expected unusable password to be reported as unusable")
	}
}

func TestCheckPassword(t *testing.T) {
	hash := hashForTest(t, "correct horse")
	tests := []struct {
		name     string
		stored   string
		password string
		want     bool
	}{
		{"match", hash, "correct horse", true},
		{"mismatch", hash, "battery staple", false},
		{"empty stored", "", "", false},
		{"unusable stored", "!abc", "!abc", false},
		{"garbage stored", "not-a-hash", "not-a-hash", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.stored, tt.password); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
