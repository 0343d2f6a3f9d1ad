package bot

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	t.Run("add_ship", func(t *testing.T) {
		a, err := parseArgs("  abc1   ghn  extra", bindAddShip)
		require.NoError(t, err)
		assert.Equal(t, "abc1", a.Code)
		assert.Equal(t, "GHN", a.Provider)

		_, err = parseArgs("abc1", bindAddShip)
		assert.True(t, errors.Is(err, ErrUsage))
	})

	t.Run("update", func(t *testing.T) {
		a, err := parseArgs("ABC1 False", bindUpdate)
		require.NoError(t, err)
		assert.False(t, a.Delivered())

		a, err = parseArgs("ABC1 true", bindUpdate)
		require.NoError(t, err)
		assert.True(t, a.Delivered())

		_, err = parseArgs("ABC1 yes", bindUpdate)
		assert.True(t, errors.Is(err, ErrInvalidStatus))

		_, err = parseArgs("ABC1", bindUpdate)
		assert.True(t, errors.Is(err, ErrUsage))
	})

	t.Run("code", func(t *testing.T) {
		_, err := parseArgs("", bindCode)
		assert.True(t, errors.Is(err, ErrUsage))

		a, err := parseArgs("CaseKept", bindCode)
		require.NoError(t, err)
		assert.Equal(t, "CaseKept", a.Code)
	})

	t.Run("add_provider", func(t *testing.T) {
		a, err := parseArgs("vnpost https://x/$$CODE$$", bindAddProvider)
		require.NoError(t, err)
		assert.Equal(t, "https://x/$$CODE$$", a.URL)

		_, err = parseArgs("vnpost", bindAddProvider)
		assert.True(t, errors.Is(err, ErrUsage))
	})
}
