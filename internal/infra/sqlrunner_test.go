package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	t.Parallel()
	query := "--sql 0b8f4a52-6a0e-4d43-9c55-4b0f6b3f7a10\nselect 1;\n"
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker error: %v", err)
	}
	if marker != "0b8f4a52-6a0e-4d43-9c55-4b0f6b3f7a10" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q, want %q", body, "select 1;")
	}
}

func TestExtractMarkerRejectsUnmarkedQueries(t *testing.T) {
	t.Parallel()
	for _, q := range []string{"", "select 1;", "--sql nope\nselect 1;"} {
		if _, _, err := extractMarker(q); err == nil {
			t.Fatalf("extractMarker(%q) accepted an unmarked query", q)
		}
	}
}

func TestIsNoRows(t *testing.T) {
	t.Parallel()
	if !IsNoRows(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("other")) {
		t.Fatal("unrelated error reported as no rows")
	}
}
