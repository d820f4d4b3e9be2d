package http

import (
	"net/http"
	"strconv"
	"time"
	"zeptrion-bridge/internal/domain/model"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Hub       string    `json:"hub,omitempty"`
	Channels  int       `json:"channels"`
	Timestamp time.Time `json:"timestamp"`
}

type ChannelResponse struct {
	model.Channel
	Label        string `json:"label"`
	Controllable bool   `json:"controllable"`
}

type ScanResponse struct {
	Channel int    `json:"channel"`
	Value   string `json:"value"`
}

type RSSIResponse struct {
	DBm int `json:"dbm"`
}

func channelResponse(ch model.Channel) ChannelResponse {
	return ChannelResponse{Channel: ch, Label: ch.Label(), Controllable: ch.Controllable()}
}

// channelID parses the :id path parameter, writing a 400 when it is not a channel number.
func channelID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "channel id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(c *gin.Context) {
	ident, err := s.coordinator.Identity()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Timestamp: time.Now()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Hub:       ident.SerialNumber,
		Channels:  len(s.coordinator.Channels()),
		Timestamp: time.Now(),
	})
}

func (s *Server) handleHub(c *gin.Context) {
	ident, err := s.coordinator.Identity()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ident)
}

func (s *Server) handleRSSI(c *gin.Context) {
	dbm, err := s.coordinator.SignalStrength(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RSSIResponse{DBm: dbm})
}

func (s *Server) handleChannels(c *gin.Context) {
	channels := s.coordinator.Channels()
	resp := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		resp = append(resp, channelResponse(ch))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleChannel(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	ch, err := s.coordinator.Channel(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, channelResponse(ch))
}

func (s *Server) handleStatus(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	snap, err := s.coordinator.StatusOf(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleScan(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	v, err := s.coordinator.Scan(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ScanResponse{Channel: id, Value: v})
}

// handleCommand handles POST /bridge/v1/channels/:id/commands with a body like
// {"command": "step_down", "arg": 1500}.
func (s *Server) handleCommand(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd, err := s.validator.Decode(body, int(s.coordinator.StepDuration()/time.Millisecond))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ack, err := s.coordinator.Dispatch(c.Request.Context(), id, cmd)
	if err != nil {
		s.logger.Warn().Err(err).Int("channel", id).Str("command", cmd.String()).Msg("Command rejected")
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}
