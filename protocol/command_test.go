package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandString_NoArgs(t *testing.T) {
	assert.Equal(t, "status", NewCommand("status").String())
	assert.Equal(t, "currentsong", NewCommand("currentsong").String())
}

func TestCommandString_PlainArgs(t *testing.T) {
	cmd := NewCommand("play", "3")
	assert.Equal(t, "play 3", cmd.String())

	cmd = NewCommand("setvol", "85")
	assert.Equal(t, "setvol 85", cmd.String())
}

func TestCommandString_QuotesSpaces(t *testing.T) {
	cmd := NewCommand("add", "Some Artist/Some Album/01 Track.flac")
	assert.Equal(t, `add "Some Artist/Some Album/01 Track.flac"`, cmd.String())
}

func TestCommandString_EscapesQuotesAndBackslashes(t *testing.T) {
	cmd := NewCommand("find", "title", `he said "hi"`)
	assert.Equal(t, `find title "he said \"hi\""`, cmd.String())

	cmd = NewCommand("add", `dir\file.mp3`)
	assert.Equal(t, `add "dir\\file.mp3"`, cmd.String())
}

func TestCommandString_EmptyArgQuoted(t *testing.T) {
	cmd := NewCommand("find", "title", "")
	assert.Equal(t, `find title ""`, cmd.String())
}

func TestCommandString_SingleQuoteTriggersQuoting(t *testing.T) {
	cmd := NewCommand("add", "don't.mp3")
	assert.Equal(t, `add "don't.mp3"`, cmd.String())
}
