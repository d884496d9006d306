package pipeline

import (
	"fmt"

	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
)

// Payload is the transport-ready body of one broadcast.
type Payload map[string]any

// ErrUnsupported is returned by a Serializer for an event it does not know.
var ErrUnsupported = errors.New("unsupported event")

// Serializer maps an event to a payload. A nil payload with a nil error
// means the event is not of interest and is dropped silently.
type Serializer func(ev Event) (Payload, error)

// Chain tries each serializer in order and returns the first that does not
// report ErrUnsupported.
func Chain(serializers ...Serializer) Serializer {
	return func(ev Event) (Payload, error) {
		for _, s := range serializers {
			p, err := s(ev)
			if errors.Is(err, ErrUnsupported) {
				continue
			}
			return p, err
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, describe(ev))
	}
}

// DefaultSerializer handles synthetic events and every engine alert.
func DefaultSerializer() Serializer {
	return Chain(SerializeSynthetic, SerializeAlert)
}

// SerializeSynthetic handles synthetic events.
func SerializeSynthetic(ev Event) (Payload, error) {
	kind, t, ok := ev.Synthetic()
	if !ok {
		return nil, ErrUnsupported
	}
	switch kind {
	case Resumed, Paused, Removed:
		p := Payload{
			"type":      "torrent_" + kind.String(),
			"id":        t.InfoHash,
			"synthetic": true,
		}
		if t.Name != "" {
			p["name"] = t.Name
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: synthetic kind %d", ErrUnsupported, kind)
	}
}

// SerializeAlert handles engine alerts. Engine-side pause, resume and
// remove alerts produce no payload: the daemon announces those itself.
func SerializeAlert(ev Event) (Payload, error) {
	a, ok := ev.Alert()
	if !ok {
		return nil, ErrUnsupported
	}

	switch a := a.(type) {
	case engine.TorrentAdded:
		return withName(Payload{"type": "torrent_added", "id": a.InfoHash}, a.Name), nil
	case engine.TorrentFinished:
		return withName(Payload{"type": "torrent_finished", "id": a.InfoHash}, a.Name), nil
	case engine.MetadataReceived:
		return withName(Payload{"type": "metadata_received", "id": a.InfoHash}, a.Name), nil
	case engine.PeerConnected:
		return Payload{"type": "peer_connected", "id": a.InfoHash, "ip": a.IP}, nil
	case engine.TorrentError:
		return Payload{"type": "torrent_error", "id": a.InfoHash, "message": a.Message}, nil
	case engine.StateUpdate:
		statuses := make([]map[string]any, 0, len(a.Statuses))
		for _, t := range a.Statuses {
			statuses = append(statuses, statusOf(t))
		}
		return Payload{"type": "state_update", "statuses": statuses}, nil
	case engine.TorrentPaused, engine.TorrentResumed, engine.TorrentRemoved:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, a)
	}
}

func withName(p Payload, name string) Payload {
	if name != "" {
		p["name"] = name
	}
	return p
}

func statusOf(t engine.Torrent) map[string]any {
	state := t.State
	if state == "" {
		state = engine.StateUnknown
	}
	return map[string]any{
		"info_hash":     t.InfoHash,
		"name":          t.Name,
		"progress":      t.ProgressPercent(),
		"download_rate": t.DownloadRate,
		"upload_rate":   t.UploadRate,
		"num_peers":     t.NumPeers,
		"num_seeds":     t.NumSeeds,
		"total_size":    t.TotalSize,
		"state":         string(state),
		"paused":        t.Paused,
	}
}

func describe(ev Event) string {
	if a, ok := ev.Alert(); ok {
		return fmt.Sprintf("%T", a)
	}
	if k, _, ok := ev.Synthetic(); ok {
		return "synthetic " + k.String()
	}
	return "empty event"
}
