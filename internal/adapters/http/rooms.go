package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dkeye/imposter/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type roomHandlers struct {
	game      Game
	publicURL string
}

func (h *roomHandlers) info(c *gin.Context) {
	summary, ok := h.game.Room(c.Request.Context(), domain.ParseRoomCode(c.Param("code")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// qr renders a PNG of the join link for the room.
func (h *roomHandlers) qr(c *gin.Context) {
	code := domain.ParseRoomCode(c.Param("code"))
	if _, ok := h.game.Room(c.Request.Context(), code); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound})
		return
	}

	png, err := qrcode.Encode(joinLink(h.publicURL, code), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(code)).Msg("qr encode")
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.AsError(err)})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func joinLink(publicURL string, code domain.RoomCode) string {
	return strings.TrimRight(publicURL, "/") + "/?room=" + url.QueryEscape(string(code))
}
