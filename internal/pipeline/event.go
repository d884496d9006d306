package pipeline

import (
	"github.com/seedarr/seedarr/pkg/engine"
)

// SyntheticKind tags a notification the daemon manufactures for a state
// change it caused itself.
type SyntheticKind int

// Synthetic event kinds.
const (
	Resumed SyntheticKind = iota + 1
	Paused
	Removed
)

func (k SyntheticKind) String() string {
	switch k {
	case Resumed:
		return "resumed"
	case Paused:
		return "paused"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is what travels over the bus: either an engine alert or a synthetic
// notification about one torrent. Events are immutable values.
type Event struct {
	alert     engine.Alert
	synthetic SyntheticKind
	torrent   engine.Torrent
}

// AlertEvent wraps an engine alert.
func AlertEvent(a engine.Alert) Event {
	return Event{alert: a}
}

// SyntheticEvent builds a synthetic notification for t.
func SyntheticEvent(kind SyntheticKind, t engine.Torrent) Event {
	return Event{synthetic: kind, torrent: t}
}

// Alert returns the wrapped engine alert, if any.
func (e Event) Alert() (engine.Alert, bool) {
	return e.alert, e.alert != nil
}

// Synthetic returns the synthetic kind and affected torrent, if any.
func (e Event) Synthetic() (SyntheticKind, engine.Torrent, bool) {
	return e.synthetic, e.torrent, e.synthetic != 0
}
