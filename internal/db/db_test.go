package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
)

// TestSchemaEmbed tests that the embedded schema is present and creates the
// tables the repositories depend on.
func TestSchemaEmbed(t *testing.T) {
	data, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		t.Fatalf("Failed to read embedded schema: %v", err)
	}

	schema := string(data)
	for _, table := range []string{"users", "points_of_interest", "flight_events"} {
		if !strings.Contains(schema, table) {
			t.Errorf("Expected schema to create table %q", table)
		}
	}
}

// TestIsUniqueViolation tests PostgreSQL error classification.
func TestIsUniqueViolation(t *testing.T) {
	t.Run("Unique violation code matches", func(t *testing.T) {
		err := &pq.Error{Code: "23505"}
		if !isUniqueViolation(err) {
			t.Error("Expected 23505 to be a unique violation")
		}
	})

	t.Run("Wrapped unique violation matches", func(t *testing.T) {
		err := fmt.Errorf("failed to create user: %w", &pq.Error{Code: "23505"})
		if !isUniqueViolation(err) {
			t.Error("Expected wrapped 23505 to be a unique violation")
		}
	})

	t.Run("Other postgres errors do not match", func(t *testing.T) {
		err := &pq.Error{Code: "23503"}
		if isUniqueViolation(err) {
			t.Error("Expected foreign key violation not to match")
		}
	})

	t.Run("Plain errors do not match", func(t *testing.T) {
		if isUniqueViolation(errors.New("duplicate key value")) {
			t.Error("Expected non-pq error not to match")
		}
	})
}

// TestIsConnectionError tests lost-connection classification for WithRetry.
func TestIsConnectionError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"Connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), true},
		{"Broken pipe", errors.New("write: broken pipe"), true},
		{"Bad connection", errors.New("driver: bad connection"), true},
		{"Unexpected EOF", errors.New("unexpected EOF"), true},
		{"Query error", errors.New("pq: column \"nope\" does not exist"), false},
		{"Nil error", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isConnectionError(tc.err); got != tc.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
