package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/helpdeskbot/internal/database"
)

const defaultGroup int64 = -533125184

func stores(t *testing.T) map[string]database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	sqlStore := database.NewStore(db, nil, defaultGroup)
	t.Cleanup(func() { _ = sqlStore.Close() })

	return map[string]database.Store{
		"memory": database.NewMemoryStore(defaultGroup),
		"sqlite": sqlStore,
	}
}

func TestStoreSamplesAndLinks(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := s.AddSample(ctx, "my order is late")
			require.NoError(t, err)
			second, err := s.AddSample(ctx, "refund please")
			require.NoError(t, err)
			assert.NotEqual(t, first, second)

			require.NoError(t, s.LinkSampleToMessage(ctx, 501, first))
			require.NoError(t, s.LinkSampleToMessage(ctx, 502, second))

			got, ok, err := s.SampleForMessage(ctx, 501)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first, got)

			_, ok, err = s.SampleForMessage(ctx, 999)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreLabelsLastWriteWins(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, err := s.AddSample(ctx, "where is my parcel")
			require.NoError(t, err)

			_, ok, err := s.Label(ctx, id)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetLabel(ctx, id, "#billing"))
			require.NoError(t, s.SetLabel(ctx, id, "#shipping"))

			label, ok, err := s.Label(ctx, id)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "#shipping", label)
		})
	}
}

func TestStoreResponsesLastWriteWins(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.Response(ctx, "#billing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetResponse(ctx, "#billing", 10))
			require.NoError(t, s.SetResponse(ctx, "#billing", 11))

			id, ok, err := s.Response(ctx, "#billing")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 11, id)
		})
	}
}

func TestStoreAdminGroupAndStats(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			group, err := s.AdminGroup(ctx)
			require.NoError(t, err)
			assert.Equal(t, defaultGroup, group)

			require.NoError(t, s.SetAdminGroup(ctx, -100))
			require.NoError(t, s.SetAdminGroup(ctx, -200))
			group, err = s.AdminGroup(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(-200), group)

			id, err := s.AddSample(ctx, "hi")
			require.NoError(t, err)
			require.NoError(t, s.SetLabel(ctx, id, "#greeting"))
			require.NoError(t, s.SetResponse(ctx, "#greeting", 3))

			st, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, database.Stats{Samples: 1, Labels: 1, Responses: 1, AdminGroupID: -200}, st)

			assert.NoError(t, s.RunSQLMaintenance(ctx))
		})
	}
}
