// internal/services/search_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloop/marketloop-backend/internal/models"
	"github.com/marketloop/marketloop-backend/internal/search"
)

// stubIndex serves canned hits for query tests.
type stubIndex struct {
	hits  []search.Hit
	total int64
	err   error
}

func (s *stubIndex) Available() bool { return true }

func (s *stubIndex) Upsert(context.Context, string, uint, map[string]interface{}) error { return nil }

func (s *stubIndex) Delete(context.Context, string, uint) error { return nil }

func (s *stubIndex) Query(context.Context, []string, string, int, int) ([]search.Hit, int64, error) {
	return s.hits, s.total, s.err
}

func TestSearchPreservesRankOrder(t *testing.T) {
	db, users, products := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")
	lamp := makeTestProduct(t, db, products, alice.ID, "lamp")
	chair := makeTestProduct(t, db, products, alice.ID, "chair")

	// Relevance order deliberately disagrees with primary key order.
	index := &stubIndex{
		hits: []search.Hit{
			{Index: "products", ID: chair.ID},
			{Index: "users", ID: alice.ID},
			{Index: "products", ID: lamp.ID},
		},
		total: 3,
	}
	svc := NewSearchService(index, users, products, quietLogger())

	items, total, err := svc.Search(context.Background(), db, "anything", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)

	first, ok := items[0].(*models.ProductDetail)
	require.True(t, ok)
	assert.Equal(t, chair.ID, first.ID)

	second, ok := items[1].(*models.UserProfile)
	require.True(t, ok)
	assert.Equal(t, alice.ID, second.ID)

	third, ok := items[2].(*models.ProductDetail)
	require.True(t, ok)
	assert.Equal(t, lamp.ID, third.ID)
}

func TestSearchSkipsStaleHits(t *testing.T) {
	db, users, products := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")
	lamp := makeTestProduct(t, db, products, alice.ID, "lamp")

	index := &stubIndex{
		hits: []search.Hit{
			{Index: "products", ID: lamp.ID + 1000},
			{Index: "products", ID: lamp.ID},
		},
		total: 2,
	}
	svc := NewSearchService(index, users, products, quietLogger())

	items, total, err := svc.Search(context.Background(), db, "lamp", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "the total reflects the index, not the loaded rows")
	require.Len(t, items, 1)
}

func TestSearchWithoutIndexReturnsEmpty(t *testing.T) {
	db, users, products := newTestServices(t)
	svc := NewSearchService(nil, users, products, quietLogger())

	items, total, err := svc.Search(context.Background(), db, "anything", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestSearchIndexErrorReturnsEmpty(t *testing.T) {
	db, users, products := newTestServices(t)
	index := &stubIndex{err: errors.New("connection refused")}
	svc := NewSearchService(index, users, products, quietLogger())

	items, total, err := svc.Search(context.Background(), db, "anything", 1, 10)
	require.NoError(t, err, "an unreachable index degrades to an empty result")
	assert.Empty(t, items)
	assert.Zero(t, total)
}
