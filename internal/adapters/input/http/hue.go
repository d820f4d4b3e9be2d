package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"zeptrion-bridge/internal/adapters/input/hue"
	"zeptrion-bridge/internal/domain/model"

	"github.com/amimof/huego"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const descriptionXML = `<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion>
<major>1</major>
<minor>0</minor>
</specVersion>
<URLBase>http://%[1]s:%[2]d/</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>Philips hue (%[1]s)</friendlyName>
<manufacturer>Royal Philips Electronics</manufacturer>
<manufacturerURL>http://www.philips.com</manufacturerURL>
<modelDescription>Philips hue Personal Wireless Lighting</modelDescription>
<modelName>Philips hue bridge 2012</modelName>
<modelNumber>929000226503</modelNumber>
<modelURL>http://www.meethue.com</modelURL>
<serialNumber>%[3]s</serialNumber>
<UDN>uuid:%[4]s</UDN>
<presentationURL>admin</presentationURL>
</device>
</root>`

// Hue error types from the Hue API v1.
const (
	hueErrUnavailable = 3
	hueErrParameter   = 7
	hueErrInternal    = 901
)

func hueError(c *gin.Context, status, kind int, address, description string) {
	c.JSON(status, []gin.H{{
		"error": gin.H{"type": kind, "address": address, "description": description},
	}})
}

// bridgeUUID is derived from the hub serial once the hub is known, from the local IP before.
func (s *Server) bridgeUUID() uuid.UUID {
	if ident, err := s.coordinator.Identity(); err == nil && ident.SerialNumber != "" {
		return hue.BridgeUUID(ident.SerialNumber)
	}
	return hue.BridgeUUID(s.ip)
}

func (s *Server) handleDescription(c *gin.Context) {
	u := s.bridgeUUID()
	c.Data(http.StatusOK, "text/xml; charset=utf-8",
		[]byte(fmt.Sprintf(descriptionXML, s.ip, s.port, hue.SerialNumber(u), u.String())))
}

// handleRegister accepts every link request; the bridge does not enforce the link button.
func (s *Server) handleRegister(c *gin.Context) {
	username := strings.ReplaceAll(uuid.NewString(), "-", "")
	c.JSON(http.StatusOK, []gin.H{{"success": gin.H{"username": username}}})
}

func (s *Server) lights(ctx context.Context) ([]hue.Light, error) {
	cfg, err := s.config.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	return hue.Resolve(cfg.VirtualDevices, s.coordinator.Channels())
}

func (s *Server) huegoLight(l hue.Light) *huego.Light {
	snap, err := s.coordinator.StatusOf(l.Channel.ID)
	if err != nil {
		snap = model.MotionSnapshot{ChannelID: l.Channel.ID}
	}
	return l.Huego(snap)
}

func (s *Server) lightMap(ctx context.Context) (map[string]*huego.Light, error) {
	lights, err := s.lights(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*huego.Light, len(lights))
	for _, l := range lights {
		out[l.HueID] = s.huegoLight(l)
	}
	return out, nil
}

func (s *Server) hueConfig() gin.H {
	u := s.bridgeUUID()
	return gin.H{
		"name":       "Philips hue",
		"swversion":  "01003542",
		"apiversion": "1.11.0",
		"mac":        hue.MAC(u),
		"bridgeid":   hue.BridgeID(u),
		"modelid":    "BSB001",
		"ipaddress":  s.ip,
	}
}

func (s *Server) handleFullState(c *gin.Context) {
	lights, err := s.lightMap(c.Request.Context())
	if err != nil {
		hueError(c, http.StatusInternalServerError, hueErrInternal, "/", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lights": lights,
		"groups": gin.H{},
		"config": s.hueConfig(),
	})
}

func (s *Server) handleHueConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.hueConfig())
}

func (s *Server) handleGetLights(c *gin.Context) {
	lights, err := s.lightMap(c.Request.Context())
	if err != nil {
		hueError(c, http.StatusInternalServerError, hueErrInternal, "/lights", err.Error())
		return
	}
	c.JSON(http.StatusOK, lights)
}

func (s *Server) findLight(c *gin.Context) (hue.Light, bool) {
	id := c.Param("id")
	address := "/lights/" + id
	lights, err := s.lights(c.Request.Context())
	if err != nil {
		hueError(c, http.StatusInternalServerError, hueErrInternal, address, err.Error())
		return hue.Light{}, false
	}
	l, ok := hue.Find(lights, id)
	if !ok {
		hueError(c, http.StatusNotFound, hueErrUnavailable, address, fmt.Sprintf("resource, %s, not available", address))
		return hue.Light{}, false
	}
	return l, true
}

func (s *Server) handleGetLight(c *gin.Context) {
	l, ok := s.findLight(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.huegoLight(l))
}

func (s *Server) handleSetLightState(c *gin.Context) {
	l, ok := s.findLight(c)
	if !ok {
		return
	}
	address := fmt.Sprintf("/lights/%s/state", l.HueID)

	var update map[string]any
	if err := c.ShouldBindJSON(&update); err != nil {
		hueError(c, http.StatusBadRequest, hueErrParameter, address, err.Error())
		return
	}

	var change hue.Change
	if v, ok := update["on"].(bool); ok {
		change.On = &v
	}
	if v, ok := update["bri"].(float64); ok {
		change.Bri = &v
	}

	cmds, err := l.Commands(change)
	if err != nil {
		hueError(c, http.StatusBadRequest, hueErrParameter, address, err.Error())
		return
	}
	for _, cmd := range cmds {
		if _, err := s.coordinator.Dispatch(c.Request.Context(), l.Channel.ID, cmd); err != nil {
			s.logger.Warn().Err(err).Str("light", l.HueID).Str("command", cmd.String()).Msg("Hue state change failed")
			status, _ := statusFor(err)
			hueError(c, status, hueErrInternal, address, err.Error())
			return
		}
	}

	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resp := make([]gin.H, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, gin.H{
			"success": gin.H{fmt.Sprintf("%s/%s", address, k): update[k]},
		})
	}
	c.JSON(http.StatusOK, resp)
}
