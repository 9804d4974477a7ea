package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Malformed IDs must read as not-found, not as a uuid cast error from
// Postgres. The guards run before any query, so no database is needed.
func TestLookupsRejectMalformedIDs(t *testing.T) {
	s := &PgStore{}
	ctx := context.Background()

	_, err := s.ArticleByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UserByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SourceByID(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
}
