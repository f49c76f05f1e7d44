package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotengine/libs/db"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", fmt.Errorf("get host: %w", pgx.ErrNoRows), ErrNotFound},
		{"exclusion", &pgconn.PgError{Code: db.CodeExclusionViolation}, ErrConflict},
		{"unique", &pgconn.PgError{Code: db.CodeUniqueViolation}, ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrNotFound},
		{"malformed uuid", &pgconn.PgError{Code: db.CodeInvalidTextRepresentation}, ErrNotFound},
	}
	for _, tc := range cases {
		if got := translate(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	other := errors.New("connection reset")
	if got := translate(other); got != other {
		t.Fatalf("unexpected translation of %v: %v", other, got)
	}
	if translate(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
