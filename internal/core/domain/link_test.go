package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		raw  string
		want Entry
	}{
		{"", Entry{Mode: ModeCreate}},
		{"https://poker.example.com/", Entry{Mode: ModeCreate}},
		{"https://poker.example.com/?session=abc-123", Entry{Mode: ModeJoin, SessionID: "abc-123"}},
		{"/?foo=1&session=xyz", Entry{Mode: ModeJoin, SessionID: "xyz"}},
		{"3f1c2b4e-8f5a-4e0b-9a51-3d1b6b0f9c11", Entry{Mode: ModeJoin, SessionID: "3f1c2b4e-8f5a-4e0b-9a51-3d1b6b0f9c11"}},
	}

	for _, tt := range tests {
		got, err := ParseEntry(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestParseEntry_Invalid(t *testing.T) {
	_, err := ParseEntry("https://poker.example.com/?session=a%2Fb")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	_, err = ParseEntry("http://[::1")
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestShareLink(t *testing.T) {
	link, err := ShareLink("https://poker.example.com/room?x=1", "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://poker.example.com/room?session=abc&x=1", link)

	entry, err := ParseEntry(link)
	require.NoError(t, err)
	assert.Equal(t, Entry{Mode: ModeJoin, SessionID: "abc"}, entry)
}
