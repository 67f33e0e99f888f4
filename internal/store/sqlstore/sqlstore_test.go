package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, openMemory(t))
}

func TestSchemaIsIdempotent(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestFileBackedSQLiteThroughRegistry(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "chartloom.db")
	s, err := store.Open(ctx, store.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	d, err := s.CreateDashboard(ctx, "Persisted", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open(ctx, store.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetDashboard(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Name)
	assert.Empty(t, got.Charts)
}

func TestUpdateMissingRows(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	_, err := s.UpdateDashboard(ctx, "nope", "x", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UpdateChart(ctx, "nope", store.ChartRecord{Title: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDashboard(ctx, "nope"), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDataset(ctx, "nope"), store.ErrNotFound)
}

func TestTimeRoundTrip(t *testing.T) {
	s := openMemory(t)
	d, err := s.CreateDashboard(context.Background(), "t", "")
	require.NoError(t, err)
	assert.Equal(t, fmtTime(d.CreatedAt), fmtTime(parseTime(fmtTime(d.CreatedAt))))
	assert.False(t, d.CreatedAt.IsZero())
}

func TestRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "")
	assert.Error(t, err)
}
