package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/cloudsync"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
)

// SyncHandler is the receiving side of the sync protocol.
type SyncHandler struct {
	*BaseHandler
	applier *cloudsync.Applier
	store   storage.Collections
}

func NewSyncHandler(base *BaseHandler, applier *cloudsync.Applier, store storage.Collections) *SyncHandler {
	return &SyncHandler{BaseHandler: base, applier: applier, store: store}
}

// Push handles POST /v1/sync: replays a pushed queue against the
// store and reports per-item results.
func (h *SyncHandler) Push(c *gin.Context) {
	var req cloudsync.PushRequest
	if !h.BindJSON(c, &req) {
		return
	}
	results := h.applier.Apply(c.Request.Context(), h.Owner(c), req.Queue)
	h.OK(c, cloudsync.PushResponse{Results: results})
}

// Get handles GET /v1/sync. With ?action=pull it returns the full
// document set; otherwise a status summary with per-store counts.
func (h *SyncHandler) Get(c *gin.Context) {
	owner := h.Owner(c)
	if c.Query("action") == "pull" {
		ds, err := h.store.ReadAll(c.Request.Context(), owner)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, ds)
		return
	}

	counts, err := h.store.Counts(c.Request.Context(), owner)
	if err != nil {
		h.Error(c, err)
		return
	}
	database := make([]cloudsync.StoreCount, 0, len(counts))
	for _, collection := range document.All() {
		database = append(database, cloudsync.StoreCount{Store: collection, Count: counts[collection]})
	}
	h.OK(c, cloudsync.StatusResponse{Status: "ok", Database: database})
}

// Head handles HEAD /v1/sync, the connectivity probe target.
func (h *SyncHandler) Head(c *gin.Context) {
	c.Status(http.StatusOK)
}
