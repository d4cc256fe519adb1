package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardsAreDeterministic(t *testing.T) {
	a := NewRNG(4711).Cards(50)
	b := NewRNG(4711).Cards(50)

	require.Len(t, b, 50)
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	assert.Equal(t, int64(4711), rng.Seed())

	first := rng.Card()
	rng.Reset()
	assert.Equal(t, first, rng.Card())
}

func TestCardShape(t *testing.T) {
	rng := NewRNG(1)

	var withPhone, withAddress int
	for _, card := range rng.Cards(200) {
		assert.NotEmpty(t, card.UID)
		assert.NotEmpty(t, card.FormattedName)
		require.NotNil(t, card.Name)
		assert.Contains(t, []string{"2.1", "3.0", "4.0"}, card.Version)
		require.NotEmpty(t, card.Emails)
		assert.Contains(t, card.Emails[0].Address, "@example.com")

		if len(card.Phones) > 0 {
			withPhone++
		}
		if len(card.Addresses) > 0 {
			withAddress++
		}
	}

	// The field mix should be spread, not constant.
	assert.Greater(t, withPhone, 50)
	assert.Less(t, withPhone, 150)
	assert.Greater(t, withAddress, 20)
}

func TestStream(t *testing.T) {
	rng := NewRNG(4711)

	input, err := Stream(rng.Cards(10))
	require.NoError(t, err)

	assert.Equal(t, 10, strings.Count(input, "BEGIN:VCARD\r\n"))
	assert.Equal(t, 10, strings.Count(input, "END:VCARD\r\n"))
}
