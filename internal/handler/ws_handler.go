package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type socketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, identity *models.Identity) error
}

// WebsocketHandler upgrades authenticated clients to the notification stream.
type WebsocketHandler struct {
	auth   middleware.Authenticator
	hub    socketServer
	logger *zap.Logger
}

// NewWebsocketHandler constructs WebsocketHandler.
func NewWebsocketHandler(auth middleware.Authenticator, hub socketServer, logger *zap.Logger) *WebsocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebsocketHandler{auth: auth, hub: hub, logger: logger}
}

// Connect godoc
// @Summary Open the notification websocket
// @Description Browsers cannot set headers on upgrade, so the token may be passed as a query parameter
// @Tags Notifications
// @Param token query string false "Access token"
// @Success 101
// @Failure 401 {object} response.Envelope
// @Router /ws [get]
func (h *WebsocketHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		var err error
		token, err = middleware.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			return
		}
	}

	identity, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	middleware.SetIdentity(c, identity)

	if err := h.hub.Serve(c.Writer, c.Request, identity); err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("user_id", identity.ID()), zap.Error(err))
	}
}
