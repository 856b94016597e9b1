package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/backup"
	"whiskeyballet/internal/core/apperror"
)

// BackupHandler serves snapshot export and restore.
type BackupHandler struct {
	*BaseHandler
	service *backup.Service
}

func NewBackupHandler(base *BaseHandler, service *backup.Service) *BackupHandler {
	return &BackupHandler{BaseHandler: base, service: service}
}

// Export handles GET /v1/backup?compress=true
func (h *BackupHandler) Export(c *gin.Context) {
	owner := h.Owner(c)
	compress := strings.EqualFold(c.Query("compress"), "true")

	var (
		raw []byte
		err error
	)
	if compress {
		raw, err = h.service.ExportCompressed(c.Request.Context(), owner)
	} else {
		raw, err = h.service.Export(c.Request.Context(), owner)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	name := "backup-" + time.Now().UTC().Format("2006-01-02") + ".json"
	contentType := "application/json"
	if compress {
		name += ".zst"
		contentType = "application/zstd"
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, raw)
}

// Restore handles POST /v1/backup/restore with the snapshot as body.
func (h *BackupHandler) Restore(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		h.Error(c, apperror.NewMalformed("empty snapshot body"))
		return
	}
	if err := h.service.Restore(c.Request.Context(), h.Owner(c), raw); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "snapshot restored")
}

// LastBackup handles GET /v1/backup/last
func (h *BackupHandler) LastBackup(c *gin.Context) {
	at, err := h.service.LastBackupDate(c.Request.Context(), h.Owner(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	if at.IsZero() {
		h.OK(c, gin.H{"lastBackupDate": nil})
		return
	}
	h.OK(c, gin.H{"lastBackupDate": at})
}
