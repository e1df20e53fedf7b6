package protocol

// Subsystem identifies a part of the server whose state changed, as
// reported by idle-mode "changed:" lines.
type Subsystem string

const (
	SubsystemDatabase       Subsystem = "database"
	SubsystemUpdate         Subsystem = "update"
	SubsystemStoredPlaylist Subsystem = "stored_playlist"
	SubsystemPlaylist       Subsystem = "playlist"
	SubsystemPlayer         Subsystem = "player"
	SubsystemMixer          Subsystem = "mixer"
	SubsystemOutput         Subsystem = "output"
	SubsystemOptions        Subsystem = "options"
	SubsystemPartition      Subsystem = "partition"
	SubsystemSticker        Subsystem = "sticker"
	SubsystemSubscription   Subsystem = "subscription"
	SubsystemMessage        Subsystem = "message"
	SubsystemNeighbor       Subsystem = "neighbor"
	SubsystemMount          Subsystem = "mount"
)

// knownSubsystems is the taxonomy the protocol defines. Unknown names
// are still passed through as-is so newer servers keep working.
var knownSubsystems = map[Subsystem]struct{}{
	SubsystemDatabase:       {},
	SubsystemUpdate:         {},
	SubsystemStoredPlaylist: {},
	SubsystemPlaylist:       {},
	SubsystemPlayer:         {},
	SubsystemMixer:          {},
	SubsystemOutput:         {},
	SubsystemOptions:        {},
	SubsystemPartition:      {},
	SubsystemSticker:        {},
	SubsystemSubscription:   {},
	SubsystemMessage:        {},
	SubsystemNeighbor:       {},
	SubsystemMount:          {},
}

func (s Subsystem) String() string {
	return string(s)
}

// Known reports whether the subsystem is part of the documented taxonomy
func (s Subsystem) Known() bool {
	_, ok := knownSubsystems[s]
	return ok
}
