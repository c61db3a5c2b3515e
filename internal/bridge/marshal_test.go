package bridge

import (
	"testing"
	"testing/quick"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/toodle/internal/errors"
)

func TestText_roundTrip(t *testing.T) {
	roundTrip := func(s string) bool {
		if !utf8.ValidString(s) {
			return true
		}
		got, err := Text([]byte(s))
		return err == nil && got == s
	}
	require.NoError(t, quick.Check(roundTrip, nil))

	for _, s := range []string{"", "Milk", "Crème brûlée", "牛奶", "🥚 eggs"} {
		got, err := Text([]byte(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestText_invalidUTF8(t *testing.T) {
	for _, raw := range [][]byte{{0xff}, {0xc3, 0x28}, {'o', 'k', 0xe2, 0x82}} {
		_, err := Text(raw)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidUTF8))
		assert.Equal(t, apperrors.StatusInvalidUTF8, apperrors.StatusOf(err))
	}
}

func TestOptionalTime(t *testing.T) {
	assert.Nil(t, OptionalTime(nil))

	secs := int64(1700000000)
	got := OptionalTime(&secs)
	require.NotNil(t, got)
	assert.Equal(t, secs, got.Unix())

	back, ok := EpochSeconds(got)
	assert.True(t, ok)
	assert.Equal(t, secs, back)

	_, ok = EpochSeconds(nil)
	assert.False(t, ok)

	zero := time.Unix(0, 0)
	back, ok = EpochSeconds(&zero)
	assert.True(t, ok, "the epoch itself is a present value")
	assert.Equal(t, int64(0), back)
}
