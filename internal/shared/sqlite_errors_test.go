package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSQLiteConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "busy", err: errors.New("SQLITE_BUSY: cannot commit"), want: true},
		{name: "locked", err: errors.New("database is locked (5)"), want: true},
		{name: "wrapped", err: fmt.Errorf("insert call record: %w", errors.New("database is locked")), want: true},
		{name: "constraint", err: errors.New("UNIQUE constraint failed: call_records.id"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsSQLiteConflictError(tt.err); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
