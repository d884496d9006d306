package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/logging"
)

// WebSocket events answered by Dispatch.
const (
	EventBroadcast     = constants.BroadcastEvent
	EventPause         = "torrent:pause"
	EventResume        = "torrent:resume"
	EventRemove        = "torrent:remove"
	EventFetchMetadata = "torrent:fetch_metadata"
	EventConfirmAdd    = "torrent:confirm_add"
	EventCancelAdd     = "torrent:cancel_add"
	EventGetAll        = "torrent:get_all"
	EventGet           = "torrent:get"
	EventPending       = "torrent:pending"

	EventFiles           = "torrent:files"
	EventPeers           = "torrent:peers"
	EventTrackers        = "torrent:trackers"
	EventAddTrackers     = "torrent:add_trackers"
	EventRemoveTrackers  = "torrent:remove_trackers"
	EventRenameTracker   = "torrent:rename_tracker"
	EventForceReannounce = "torrent:force_reannounce"
)

// commandBody is the union of every event's data fields.
type commandBody struct {
	Event      string `json:"event"`
	InfoHash   string `json:"info_hash"`
	RemoveData bool   `json:"remove_data"`
	Magnet     string `json:"magnet"`
	SavePath   string `json:"save_path"`

	Trackers   []string `json:"trackers"`
	OldTracker string   `json:"old_tracker"`
	NewTracker string   `json:"new_tracker"`
}

// Dispatch implements websocket.Dispatcher.
func (h *Handlers) Dispatch(ctx context.Context, clientID, event string, data json.RawMessage) any {
	var body commandBody
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &body); err != nil {
			return errorReply("Malformed payload for %s", event)
		}
	}
	logging.Ctx(ctx).Debug().Str("event", event).Str("info_hash", body.InfoHash).Msg("Command received")

	switch event {
	case EventBroadcast:
		switch body.Event {
		case "start":
			return h.daemon.StartStreaming(ctx, clientID)
		case "stop":
			return h.daemon.StopStreaming(clientID)
		default:
			return errorReply("Unknown broadcast action %q", body.Event)
		}

	case EventPause:
		return h.command(body.InfoHash, h.daemon.Pause(ctx, body.InfoHash))
	case EventResume:
		return h.command(body.InfoHash, h.daemon.Resume(ctx, body.InfoHash))
	case EventRemove:
		return h.command(body.InfoHash, h.daemon.Remove(ctx, body.InfoHash, body.RemoveData))
	case EventFetchMetadata:
		return h.command("", h.daemon.FetchMetadata(ctx, body.Magnet, body.SavePath))
	case EventConfirmAdd:
		return h.command(body.InfoHash, h.daemon.ConfirmAdd(ctx, body.InfoHash))
	case EventCancelAdd:
		return h.command(body.InfoHash, h.daemon.CancelAdd(ctx, body.InfoHash))

	case EventFiles:
		return h.daemon.Files(ctx, body.InfoHash)
	case EventPeers:
		return h.daemon.Peers(ctx, body.InfoHash)
	case EventTrackers:
		return h.daemon.Trackers(ctx, body.InfoHash)
	case EventAddTrackers:
		return h.daemon.AddTrackers(ctx, body.InfoHash, body.Trackers)
	case EventRemoveTrackers:
		return h.daemon.RemoveTrackers(ctx, body.InfoHash, body.Trackers)
	case EventRenameTracker:
		return h.daemon.RenameTracker(ctx, body.InfoHash, body.OldTracker, body.NewTracker)
	case EventForceReannounce:
		return h.daemon.ForceReannounce(ctx, body.InfoHash, body.Trackers)

	case EventGetAll:
		list, err := h.torrents(ctx)
		if err != nil {
			return errorReply("Failed to list torrents: %v", err)
		}
		return seedarr.Reply{Status: seedarr.StatusSuccess, Message: "Torrents fetched", Data: list}
	case EventGet:
		t, err := h.torrent(ctx, body.InfoHash)
		if err != nil {
			return errorReply("Failed to get torrent: %v", err)
		}
		return seedarr.Reply{Status: seedarr.StatusSuccess, Message: "Torrent fetched", Data: t}
	case EventPending:
		return seedarr.Reply{Status: seedarr.StatusSuccess, Message: "Pending torrents fetched", Data: h.daemon.Pending()}
	}

	return errorReply("Unknown event %s", event)
}

func (h *Handlers) command(hash string, r seedarr.Reply) seedarr.Reply {
	h.invalidate(hash, r)
	return r
}

func errorReply(format string, args ...any) seedarr.Reply {
	return seedarr.Reply{Status: seedarr.StatusError, Message: fmt.Sprintf(format, args...)}
}
