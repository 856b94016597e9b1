package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/domain/auth"
	"whiskeyballet/internal/http/v1/dto"
)

// AuthHandler serves login and user registration.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Register handles POST /v1/auth/register. Admin only; the new user
// joins the caller's tenant.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}
	user := &auth.User{
		ID:       req.Email,
		AdminID:  h.Owner(c),
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		BranchID: req.BranchID,
	}
	if err := h.service.Register(c.Request.Context(), user, req.Password); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "user registered")
}
