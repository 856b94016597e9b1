package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/domain/settings"
)

// SettingsHandler serves the tenant configuration singleton.
type SettingsHandler struct {
	*BaseHandler
	service *settings.Service
}

func NewSettingsHandler(base *BaseHandler, service *settings.Service) *SettingsHandler {
	return &SettingsHandler{BaseHandler: base, service: service}
}

// Get handles GET /v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), h.Owner(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cfg)
}

// Update handles PUT /v1/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var cfg settings.Settings
	if !h.BindJSON(c, &cfg) {
		return
	}
	if err := h.service.Update(c.Request.Context(), h.Owner(c), cfg); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "settings updated")
}
