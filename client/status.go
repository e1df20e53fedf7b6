package client

import (
	"strconv"
	"time"

	"github.com/tonearm/tonearm/protocol"
)

// PlayState is the playback state reported by the status command
type PlayState string

const (
	StatePlaying PlayState = "play"
	StatePaused  PlayState = "pause"
	StateStopped PlayState = "stop"
)

// Status is the parsed reply to the status command. Fields absent from
// the reply keep their zero value.
type Status struct {
	State          PlayState
	Volume         int
	Repeat         bool
	Random         bool
	Single         bool
	Consume        bool
	PlaylistLength int
	Song           int
	SongID         int
	Elapsed        time.Duration
	Duration       time.Duration
	Bitrate        int
	Error          string
}

// Song is the parsed reply to the currentsong command
type Song struct {
	File     string
	Title    string
	Artist   string
	Album    string
	Pos      int
	ID       int
	Duration time.Duration
}

func parseStatus(resp *protocol.Response) *Status {
	attrs := resp.Attrs()
	return &Status{
		State:          PlayState(attrs["state"]),
		Volume:         parseInt(attrs["volume"]),
		Repeat:         attrs["repeat"] == "1",
		Random:         attrs["random"] == "1",
		Single:         attrs["single"] == "1",
		Consume:        attrs["consume"] == "1",
		PlaylistLength: parseInt(attrs["playlistlength"]),
		Song:           parseInt(attrs["song"]),
		SongID:         parseInt(attrs["songid"]),
		Elapsed:        parseSeconds(attrs["elapsed"]),
		Duration:       parseSeconds(attrs["duration"]),
		Bitrate:        parseInt(attrs["bitrate"]),
		Error:          attrs["error"],
	}
}

// parseSong returns nil when the reply carries no song (stopped player
// with an empty queue).
func parseSong(resp *protocol.Response) *Song {
	if !resp.Has("file") {
		return nil
	}
	attrs := resp.Attrs()
	return &Song{
		File:     attrs["file"],
		Title:    attrs["Title"],
		Artist:   attrs["Artist"],
		Album:    attrs["Album"],
		Pos:      parseInt(attrs["Pos"]),
		ID:       parseInt(attrs["Id"]),
		Duration: parseSeconds(attrs["duration"]),
	}
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
