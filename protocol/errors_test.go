package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAck(t *testing.T) {
	ackErr, err := parseAck("ACK [50@0] {play} No such song")
	require.NoError(t, err)
	assert.Equal(t, AckErrorNoExist, ackErr.Code)
	assert.Equal(t, 0, ackErr.Index)
	assert.Equal(t, "play", ackErr.Command)
	assert.Equal(t, "No such song", ackErr.Message)
}

func TestParseAck_CommandListIndex(t *testing.T) {
	ackErr, err := parseAck("ACK [2@5] {add} Bad song URI")
	require.NoError(t, err)
	assert.Equal(t, AckErrorArg, ackErr.Code)
	assert.Equal(t, 5, ackErr.Index)
	assert.Equal(t, "add", ackErr.Command)
}

func TestParseAck_EmptyMessage(t *testing.T) {
	ackErr, err := parseAck("ACK [5@0] {}")
	require.NoError(t, err)
	assert.Equal(t, AckErrorUnknownCmd, ackErr.Code)
	assert.Equal(t, "", ackErr.Command)
	assert.Equal(t, "", ackErr.Message)
}

func TestParseAck_Malformed(t *testing.T) {
	for _, line := range []string{
		"ACK",
		"ACK [x@0] {play} nope",
		"ACK [5] {play} nope",
		"not an ack at all",
	} {
		_, err := parseAck(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestAckErrorString(t *testing.T) {
	e := &Error{Code: 50, Index: 0, Command: "play", Message: "No such song"}
	assert.Equal(t, "mpd: ACK [50@0] {play} No such song", e.Error())
}

func TestSubsystemKnown(t *testing.T) {
	assert.True(t, SubsystemPlayer.Known())
	assert.True(t, SubsystemStoredPlaylist.Known())
	assert.False(t, Subsystem("flux_capacitor").Known())
}
