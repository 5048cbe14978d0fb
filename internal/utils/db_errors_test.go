package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestGetDBErrorType(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantType string
	}{
		{name: "nil_error", err: nil, wantType: ""},
		{name: "no_rows", err: sql.ErrNoRows, wantType: "no_rows"},
		{name: "wrapped_no_rows", err: fmt.Errorf("getting account: %w", sql.ErrNoRows), wantType: "no_rows"},
		{name: "unique_violation", err: &pq.Error{Code: "23505"}, wantType: "unique_violation"},
		{name: "check_violation", err: &pq.Error{Code: "23514"}, wantType: "check_violation"},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, wantType: "deadlock"},
		{name: "other_postgres_error", err: &pq.Error{Code: "42601"}, wantType: "postgres_error"},
		{name: "context_canceled", err: context.Canceled, wantType: "context_canceled"},
		{name: "unknown", err: errors.New("boom"), wantType: "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantType, GetDBErrorType(tc.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("inserting transaction: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
