package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	f, ok := parseField("volume: 50")
	require.True(t, ok)
	assert.Equal(t, "volume", f.Key)
	assert.Equal(t, "50", f.Value)

	// Value containing the separator
	f, ok = parseField("Title: Song: The Remix")
	require.True(t, ok)
	assert.Equal(t, "Title", f.Key)
	assert.Equal(t, "Song: The Remix", f.Value)

	// Empty value
	f, ok = parseField("error:")
	require.True(t, ok)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "", f.Value)

	// Not a field
	_, ok = parseField("garbage line")
	assert.False(t, ok)

	_, ok = parseField("")
	assert.False(t, ok)
}

func TestResponseAccessors(t *testing.T) {
	resp := NewResponse(
		Field{Key: "file", Value: "a.mp3"},
		Field{Key: "Title", Value: "First"},
		Field{Key: "file", Value: "b.mp3"},
		Field{Key: "Title", Value: "Second"},
	)

	assert.Equal(t, "a.mp3", resp.Get("file"))
	assert.Equal(t, "", resp.Get("Artist"))
	assert.True(t, resp.Has("Title"))
	assert.False(t, resp.Has("Album"))
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, resp.GetAll("file"))
	assert.Len(t, resp.Fields(), 4)
}

func TestResponseAttrs_KeepsFirstValue(t *testing.T) {
	resp := NewResponse(
		Field{Key: "state", Value: "play"},
		Field{Key: "state", Value: "stop"},
		Field{Key: "volume", Value: "80"},
	)

	attrs := resp.Attrs()
	assert.Equal(t, "play", attrs["state"])
	assert.Equal(t, "80", attrs["volume"])
}
