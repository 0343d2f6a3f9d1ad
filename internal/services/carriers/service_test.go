package carriers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/eliseohh/shipbot/internal/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carriers.sqlite")
	require.NoError(t, store.Migrate(path))
	db, err := store.NewDB(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestResolveTemplate(t *testing.T) {
	assert.Equal(t, "https://x/?c=ABC123", ResolveTemplate("https://x/?c=$$CODE$$", "ABC123"))
	assert.Equal(t, "https://x/ABC/ABC", ResolveTemplate("https://x/$$CODE$$/$$CODE$$", "ABC"))
	assert.Equal(t, "https://x/static", ResolveTemplate("https://x/static", "ABC"))
	assert.Equal(t, "https://x/$CODE$ABC", ResolveTemplate("https://x/$CODE$$$CODE$$", "ABC"))
}

func TestService_AddAndList(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	c, err := s.AddCarrier(ctx, "vnpost", "https://vnpost.vn/?q=$$CODE$$")
	require.NoError(t, err)
	assert.Equal(t, "VNPOST", c.Name)

	list, err := s.ListCarriers(ctx)
	require.NoError(t, err)
	count := 0
	for _, it := range list {
		if it.Name == "VNPOST" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	_, err = s.AddCarrier(ctx, "VNPOST", "https://elsewhere/$$CODE$$")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConflict))

	after, err := s.ListCarriers(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, after)
}

func TestService_AddValidation(t *testing.T) {
	s := newService(t)
	_, err := s.AddCarrier(context.Background(), "  ", "https://x")
	assert.Error(t, err)
	_, err = s.AddCarrier(context.Background(), "X", "")
	assert.Error(t, err)
}

func TestService_ResolveURL(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	c, err := s.AddCarrier(ctx, "X", "https://x/?c=$$CODE$$")
	require.NoError(t, err)

	u, err := s.ResolveURL(ctx, c.ID, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "https://x/?c=ABC123", u)

	_, err = s.ResolveURL(ctx, 9999, "ABC123")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
