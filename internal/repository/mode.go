package repository

import (
	"fmt"
	"strings"
)

// Mode selects whether stores talk to the remote document store.
type Mode int

const (
	// ModeLive reads and writes through the document facade.
	ModeLive Mode = iota
	// ModeOfflineDefaults never performs I/O: reads return defaults or the
	// last locally saved value, saves only replace the local snapshot.
	ModeOfflineDefaults
)

// ParseMode maps the store.mode config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "live":
		return ModeLive, nil
	case "offline", "offline-defaults":
		return ModeOfflineDefaults, nil
	default:
		return ModeLive, fmt.Errorf("unknown store mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeOfflineDefaults:
		return "offline"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
