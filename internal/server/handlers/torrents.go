package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/internal/server/response"
	"github.com/seedarr/seedarr/pkg/engine"
)

// HandleListTorrents handles GET /api/v1/torrents.
// @Summary List torrents
// @Description List every torrent known to the engine
// @Tags torrents
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents [get].
func (h *Handlers) HandleListTorrents(w http.ResponseWriter, r *http.Request) {
	list, err := h.torrents(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"torrents": list,
		"count":    len(list),
	})
}

// HandleGetTorrent handles GET /api/v1/torrents/{hash}.
// @Summary Get torrent
// @Description Get a single torrent by info hash
// @Tags torrents
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=engine.Torrent}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash} [get].
func (h *Handlers) HandleGetTorrent(w http.ResponseWriter, r *http.Request) {
	t, err := h.torrent(r.Context(), r.PathValue("hash"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, t)
}

// HandlePause handles POST /api/v1/torrents/{hash}/pause.
// @Summary Pause torrent
// @Tags torrents
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/pause [post].
func (h *Handlers) HandlePause(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	h.reply(w, hash, h.daemon.Pause(r.Context(), hash))
}

// HandleResume handles POST /api/v1/torrents/{hash}/resume.
// @Summary Resume torrent
// @Tags torrents
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/resume [post].
func (h *Handlers) HandleResume(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	h.reply(w, hash, h.daemon.Resume(r.Context(), hash))
}

// HandleRemove handles DELETE /api/v1/torrents/{hash}.
// @Summary Remove torrent
// @Tags torrents
// @Produce json
// @Param hash path string true "Info hash"
// @Param delete_data query boolean false "Also delete downloaded data"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash} [delete].
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	deleteData, _ := strconv.ParseBool(r.URL.Query().Get("delete_data"))
	h.reply(w, hash, h.daemon.Remove(r.Context(), hash, deleteData))
}

// MagnetRequest is the body of POST /api/v1/magnets.
type MagnetRequest struct {
	Magnet   string `json:"magnet"`
	SavePath string `json:"save_path,omitempty"`
}

// HandleStageMagnet handles POST /api/v1/magnets.
// @Summary Stage a magnet
// @Description Add a magnet paused, wait for its metadata and stage it for confirmation
// @Tags pending
// @Accept json
// @Produce json
// @Param request body MagnetRequest true "Magnet to stage"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/magnets [post].
func (h *Handlers) HandleStageMagnet(w http.ResponseWriter, r *http.Request) {
	var req MagnetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	h.reply(w, "", h.daemon.FetchMetadata(r.Context(), req.Magnet, req.SavePath))
}

// HandleListPending handles GET /api/v1/pending.
// @Summary List staged torrents
// @Tags pending
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Security ApiKeyAuth
// @Router /api/v1/pending [get].
func (h *Handlers) HandleListPending(w http.ResponseWriter, _ *http.Request) {
	pending := h.daemon.Pending()
	response.OK(w, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}

// HandleConfirm handles POST /api/v1/pending/{hash}/confirm.
// @Summary Confirm a staged torrent
// @Tags pending
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/pending/{hash}/confirm [post].
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	h.reply(w, hash, h.daemon.ConfirmAdd(r.Context(), hash))
}

// HandleCancel handles DELETE /api/v1/pending/{hash}.
// @Summary Discard a staged torrent
// @Tags pending
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/pending/{hash} [delete].
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	h.reply(w, hash, h.daemon.CancelAdd(r.Context(), hash))
}

// reply writes a command reply. Failed commands become 422 with the reply
// message; anything else is wrapped as data. A command that may have
// changed a torrent drops its cached copies.
func (h *Handlers) reply(w http.ResponseWriter, hash string, r seedarr.Reply) {
	h.invalidate(hash, r)
	if !r.OK() {
		if r.Message == "Daemon is not running" || r.Message == "Daemon is shutting down" {
			response.ServiceUnavailable(w, r.Message)
			return
		}
		response.JSON(w, http.StatusUnprocessableEntity, response.Fail("COMMAND_FAILED", r.Message, ""))
		return
	}
	response.OK(w, r)
}

func (h *Handlers) invalidate(hash string, r seedarr.Reply) {
	if r.Status != seedarr.StatusSuccess {
		return
	}
	if norm, ok := engine.NormalizeInfoHash(hash); ok {
		hash = norm
	}
	h.cache.Invalidate(hash)
}

// torrents returns the listing, from cache when fresh.
func (h *Handlers) torrents(ctx context.Context) ([]engine.Torrent, error) {
	if list, ok := h.cache.Torrents(); ok {
		return list, nil
	}
	list, err := h.daemon.List(ctx)
	if err != nil {
		return nil, err
	}
	h.cache.SetTorrents(list)
	return list, nil
}

// torrent returns one torrent, from cache when fresh.
func (h *Handlers) torrent(ctx context.Context, hash string) (engine.Torrent, error) {
	if norm, ok := engine.NormalizeInfoHash(hash); ok {
		if t, ok := h.cache.Torrent(norm); ok {
			return t, nil
		}
	}
	t, err := h.daemon.Get(ctx, hash)
	if err != nil {
		return engine.Torrent{}, err
	}
	h.cache.SetTorrent(t)
	return t, nil
}
