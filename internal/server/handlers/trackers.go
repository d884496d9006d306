package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/seedarr/seedarr/internal/server/response"
)

// TrackersRequest is the body of the tracker list endpoints.
type TrackersRequest struct {
	Trackers []string `json:"trackers"`
}

// RenameTrackerRequest is the body of PUT /api/v1/torrents/{hash}/trackers.
type RenameTrackerRequest struct {
	OldTracker string `json:"old_tracker"`
	NewTracker string `json:"new_tracker"`
}

// HandleFiles handles GET /api/v1/torrents/{hash}/files.
// @Summary List torrent files
// @Tags torrents
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/files [get].
func (h *Handlers) HandleFiles(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "", h.daemon.Files(r.Context(), r.PathValue("hash")))
}

// HandlePeers handles GET /api/v1/torrents/{hash}/peers.
// @Summary List connected peers
// @Tags torrents
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/peers [get].
func (h *Handlers) HandlePeers(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "", h.daemon.Peers(r.Context(), r.PathValue("hash")))
}

// HandleTrackers handles GET /api/v1/torrents/{hash}/trackers.
// @Summary List trackers
// @Tags trackers
// @Produce json
// @Param hash path string true "Info hash"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/trackers [get].
func (h *Handlers) HandleTrackers(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "", h.daemon.Trackers(r.Context(), r.PathValue("hash")))
}

// HandleAddTrackers handles POST /api/v1/torrents/{hash}/trackers.
// @Summary Add trackers
// @Tags trackers
// @Accept json
// @Produce json
// @Param hash path string true "Info hash"
// @Param request body TrackersRequest true "Tracker URLs"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/trackers [post].
func (h *Handlers) HandleAddTrackers(w http.ResponseWriter, r *http.Request) {
	var req TrackersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	h.reply(w, "", h.daemon.AddTrackers(r.Context(), r.PathValue("hash"), req.Trackers))
}

// HandleRemoveTrackers handles DELETE /api/v1/torrents/{hash}/trackers.
// @Summary Remove trackers
// @Tags trackers
// @Produce json
// @Param hash path string true "Info hash"
// @Param url query []string true "Tracker URLs to remove" collectionFormat(multi)
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/trackers [delete].
func (h *Handlers) HandleRemoveTrackers(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "", h.daemon.RemoveTrackers(r.Context(), r.PathValue("hash"), r.URL.Query()["url"]))
}

// HandleRenameTracker handles PUT /api/v1/torrents/{hash}/trackers.
// @Summary Rename a tracker
// @Description Replace one tracker URL, keeping its tier, and reannounce
// @Tags trackers
// @Accept json
// @Produce json
// @Param hash path string true "Info hash"
// @Param request body RenameTrackerRequest true "Old and new tracker URL"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/trackers [put].
func (h *Handlers) HandleRenameTracker(w http.ResponseWriter, r *http.Request) {
	var req RenameTrackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	h.reply(w, "", h.daemon.RenameTracker(r.Context(), r.PathValue("hash"), req.OldTracker, req.NewTracker))
}

// HandleReannounce handles POST /api/v1/torrents/{hash}/reannounce.
// @Summary Force a reannounce
// @Tags trackers
// @Accept json
// @Produce json
// @Param hash path string true "Info hash"
// @Param request body TrackersRequest true "Trackers to announce to"
// @Success 200 {object} response.Response{data=seedarr.Reply}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/torrents/{hash}/reannounce [post].
func (h *Handlers) HandleReannounce(w http.ResponseWriter, r *http.Request) {
	var req TrackersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	h.reply(w, "", h.daemon.ForceReannounce(r.Context(), r.PathValue("hash"), req.Trackers))
}
