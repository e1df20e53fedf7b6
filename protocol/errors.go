package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MPD ACK error codes
const (
	AckErrorNotList       = 1
	AckErrorArg           = 2
	AckErrorPassword      = 3
	AckErrorPermission    = 4
	AckErrorUnknownCmd    = 5
	AckErrorNoExist       = 50
	AckErrorPlaylistMax   = 51
	AckErrorSystem        = 52
	AckErrorPlaylistLoad  = 53
	AckErrorUpdateAlready = 54
	AckErrorPlayerSync    = 55
	AckErrorExist         = 56
)

// Error is a server-reported command failure, decoded from an
// "ACK [code@index] {command} message" line. The connection itself is
// still usable after receiving one.
type Error struct {
	Code    int
	Index   int // Offset of the failing command in a command list
	Command string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mpd: ACK [%d@%d] {%s} %s", e.Code, e.Index, e.Command, e.Message)
}

var errMalformedAck = errors.New("malformed ACK line")

// parseAck decodes an ACK line into an *Error
func parseAck(line string) (*Error, error) {
	rest, ok := strings.CutPrefix(line, "ACK [")
	if !ok {
		return nil, errMalformedAck
	}

	bracket := strings.Index(rest, "] {")
	if bracket < 0 {
		return nil, errMalformedAck
	}

	codeIdx := rest[:bracket]
	rest = rest[bracket+3:]

	at := strings.IndexByte(codeIdx, '@')
	if at < 0 {
		return nil, errMalformedAck
	}
	code, err := strconv.Atoi(codeIdx[:at])
	if err != nil {
		return nil, errMalformedAck
	}
	index, err := strconv.Atoi(codeIdx[at+1:])
	if err != nil {
		return nil, errMalformedAck
	}

	brace := strings.Index(rest, "} ")
	var command, message string
	if brace >= 0 {
		command = rest[:brace]
		message = rest[brace+2:]
	} else if strings.HasSuffix(rest, "}") {
		command = rest[:len(rest)-1]
	} else {
		return nil, errMalformedAck
	}

	return &Error{
		Code:    code,
		Index:   index,
		Command: command,
		Message: message,
	}, nil
}
