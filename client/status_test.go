package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tonearm/tonearm/protocol"
)

func TestParseStatus(t *testing.T) {
	resp := protocol.NewResponse(
		protocol.Field{Key: "volume", Value: "85"},
		protocol.Field{Key: "repeat", Value: "1"},
		protocol.Field{Key: "random", Value: "0"},
		protocol.Field{Key: "single", Value: "0"},
		protocol.Field{Key: "consume", Value: "1"},
		protocol.Field{Key: "playlistlength", Value: "12"},
		protocol.Field{Key: "state", Value: "play"},
		protocol.Field{Key: "song", Value: "3"},
		protocol.Field{Key: "songid", Value: "27"},
		protocol.Field{Key: "elapsed", Value: "61.500"},
		protocol.Field{Key: "duration", Value: "180.000"},
		protocol.Field{Key: "bitrate", Value: "320"},
	)

	status := parseStatus(resp)
	assert.Equal(t, StatePlaying, status.State)
	assert.Equal(t, 85, status.Volume)
	assert.True(t, status.Repeat)
	assert.False(t, status.Random)
	assert.True(t, status.Consume)
	assert.Equal(t, 12, status.PlaylistLength)
	assert.Equal(t, 3, status.Song)
	assert.Equal(t, 27, status.SongID)
	assert.Equal(t, 61500*time.Millisecond, status.Elapsed)
	assert.Equal(t, 3*time.Minute, status.Duration)
	assert.Equal(t, 320, status.Bitrate)
	assert.Empty(t, status.Error)
}

func TestParseStatus_MissingFieldsZeroValued(t *testing.T) {
	status := parseStatus(protocol.NewResponse(
		protocol.Field{Key: "state", Value: "stop"},
	))
	assert.Equal(t, StateStopped, status.State)
	assert.Zero(t, status.Volume)
	assert.Zero(t, status.Elapsed)
	assert.False(t, status.Repeat)
}

func TestParseSong(t *testing.T) {
	resp := protocol.NewResponse(
		protocol.Field{Key: "file", Value: "artist/album/01.flac"},
		protocol.Field{Key: "Title", Value: "Opening"},
		protocol.Field{Key: "Artist", Value: "Somebody"},
		protocol.Field{Key: "Album", Value: "Collected"},
		protocol.Field{Key: "Pos", Value: "0"},
		protocol.Field{Key: "Id", Value: "14"},
		protocol.Field{Key: "duration", Value: "241.200"},
	)

	song := parseSong(resp)
	assert.NotNil(t, song)
	assert.Equal(t, "artist/album/01.flac", song.File)
	assert.Equal(t, "Opening", song.Title)
	assert.Equal(t, "Somebody", song.Artist)
	assert.Equal(t, 14, song.ID)
	assert.Equal(t, 241200*time.Millisecond, song.Duration)
}

func TestParseSong_EmptyQueue(t *testing.T) {
	assert.Nil(t, parseSong(protocol.NewResponse()))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "disconnected", ModeDisconnected.String())
	assert.Equal(t, "idle", ModeIdle.String())
	assert.Equal(t, "transitioning", ModeTransitioning.String())
	assert.Equal(t, "executing", ModeExecuting.String())
}
