package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/marketstreams/errors"
)

func TestSourceTypeValid(t *testing.T) {
	assert.True(t, SourcePrice.Valid())
	assert.True(t, SourceNews.Valid())
	assert.True(t, SourceSentiment.Valid())
	assert.True(t, SourceOnChain.Valid())
	assert.False(t, SourceType("weather").Valid())
	assert.False(t, SourceType("").Valid())
}

func TestDataSourceValidate(t *testing.T) {
	valid := &DataSource{ID: "binance-btc", Name: "Binance BTC/USD", Type: SourcePrice}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&DataSource{Name: "n", Type: SourcePrice}).Validate())
	assert.Error(t, (&DataSource{ID: "x", Type: SourcePrice}).Validate())
	assert.Error(t, (&DataSource{ID: "x", Name: "n", Type: "bogus"}).Validate())
}

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	src := &DataSource{ID: "cryptopanic", Name: "CryptoPanic", Type: SourceNews, Enabled: true}
	require.NoError(t, m.Put(ctx, src))

	got, err := m.Get(ctx, "cryptopanic")
	require.NoError(t, err)
	assert.Equal(t, "CryptoPanic", got.Name)
	assert.True(t, got.Enabled)
	assert.False(t, got.CreatedAt.IsZero())

	// Returned copy must not alias the stored entry.
	got.Name = "mutated"
	again, err := m.Get(ctx, "cryptopanic")
	require.NoError(t, err)
	assert.Equal(t, "CryptoPanic", again.Name)
}

func TestMemoryGetNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSourceNotFound)
	assert.True(t, errors.IsInvalid(err))
}

func TestMemoryPutRejectsInvalid(t *testing.T) {
	m := NewMemory()

	err := m.Put(context.Background(), &DataSource{ID: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	assert.Error(t, m.Put(context.Background(), nil))
}

func TestMemoryUpdatePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	src := &DataSource{ID: "glassnode", Name: "Glassnode", Type: SourceOnChain}
	require.NoError(t, m.Put(ctx, src))

	first, err := m.Get(ctx, "glassnode")
	require.NoError(t, err)

	src.Name = "Glassnode v2"
	require.NoError(t, m.Put(ctx, src))

	second, err := m.Get(ctx, "glassnode")
	require.NoError(t, err)
	assert.Equal(t, "Glassnode v2", second.Name)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestMemoryDeleteAndList(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryWith(
		&DataSource{ID: "b", Name: "Bravo", Type: SourcePrice},
		&DataSource{ID: "a", Name: "Alpha", Type: SourceNews},
		&DataSource{ID: "c", Name: "Charlie", Type: SourceSentiment},
	)
	require.NoError(t, err)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "c", list[2].ID)

	require.NoError(t, m.Delete(ctx, "b"))
	require.NoError(t, m.Delete(ctx, "b")) // idempotent

	list, err = m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
