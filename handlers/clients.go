package handlers

import (
	"net/http"

	"mytelmed/services/clients"
	"mytelmed/utils"

	"github.com/gin-gonic/gin"
)

type ClientsHandler struct {
	Hub *clients.Hub
}

func NewClientsHandler(hub *clients.Hub) *ClientsHandler {
	return &ClientsHandler{Hub: hub}
}

// WebSocketHandler attaches a portal tab to the hub. The tab's current URL comes in the "url" query parameter.
func (h *ClientsHandler) WebSocketHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "User ID not found in context", "")
		return
	}
	h.Hub.ServeWS(c, userID, c.Query("url"))
}
