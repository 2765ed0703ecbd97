package gateway

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransientConflict(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: codeSerializationFailure}, true},
		{"deadlock detected", &pgconn.PgError{Code: codeDeadlockDetected}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransientConflict(tc.err); got != tc.want {
				t.Fatalf("IsTransientConflict(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestBackendError(t *testing.T) {
	err := &BackendError{Op: "popMessages", Detail: "could not pop all"}
	want := "backend error in popMessages: could not pop all"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
