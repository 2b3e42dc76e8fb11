package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"controlling_roaster/internal/service"
	"controlling_roaster/internal/state"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK          = "ok"
	statusStarted     = "started"
	statusStopped     = "stopped"
	statusEngaged     = "engaged"
	statusDisengaged  = "disengaged"
	statusSetpointsOK = "setpoints_staged"

	errStartRoaster    = "failed to start roaster"
	errStopRoaster     = "failed to stop roaster"
	errNotRunning      = "roaster loop is not running"
	errEmptySetpoints  = "at least one set-point is required"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and the current state snapshot.
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string) {
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"state":  h.services.Roaster.State(),
	})
}

// controlError maps a control-plane error to a response.
func (h *Handler) controlError(c *gin.Context, logKey string, err error) {
	if errors.Is(err, service.ErrNotRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": errNotRunning})
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, "control request failed", logKey, err)
}

// StartRequest overrides the configured serial settings for one run. Zero
// fields keep the configured value.
type StartRequest struct {
	// Serial device, e.g. /dev/ttyUSB0, COM4 or "sim"
	Port     string `json:"port,omitempty" example:"/dev/ttyUSB0"`
	BaudRate int    `json:"baud_rate,omitempty" example:"115200"`
	ByteSize int    `json:"byte_size,omitempty" example:"8"`
	// N, O or E
	Parity   string `json:"parity,omitempty" example:"N"`
	StopBits int    `json:"stop_bits,omitempty" example:"1"`
	// Read timeout in milliseconds
	TimeoutMs int `json:"timeout_ms,omitempty" example:"1000"`
	// Tick interval in milliseconds, 1-1000
	IntervalMs int `json:"interval_ms,omitempty" example:"500"`
}

func (r StartRequest) apply(p service.StartParams) service.StartParams {
	if r.Port != "" {
		p.Port.Name = r.Port
	}
	if r.BaudRate != 0 {
		p.Port.BaudRate = r.BaudRate
	}
	if r.ByteSize != 0 {
		p.Port.ByteSize = r.ByteSize
	}
	if r.Parity != "" {
		p.Port.Parity = r.Parity
	}
	if r.StopBits != 0 {
		p.Port.StopBits = r.StopBits
	}
	if r.TimeoutMs != 0 {
		p.Port.Timeout = time.Duration(r.TimeoutMs) * time.Millisecond
	}
	if r.IntervalMs != 0 {
		p.Interval = time.Duration(r.IntervalMs) * time.Millisecond
	}
	return p
}

// SetpointsRequest is an exported model for Swagger docs of the setpoints payload.
type SetpointsRequest struct {
	// Heater power 0-100
	Heater *int `json:"heater,omitempty" example:"60"`
	// Fan 0-100, sent to the device in steps of 10
	Fan *int `json:"fan,omitempty" example:"40"`
	// Main fan 0-100, sent to the device in steps of 10
	MainFan      *int  `json:"main_fan,omitempty" example:"30"`
	Solenoid     *bool `json:"solenoid,omitempty" example:"false"`
	DrumMotor    *bool `json:"drum_motor,omitempty" example:"true"`
	CoolingMotor *bool `json:"cooling_motor,omitempty" example:"false"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start the control loop
// @Description  Stops any running loop and starts a new one. Omitted fields use the configured serial settings.
// @Tags         roaster
// @Accept       json
// @Produce      json
// @Param        body  body   StartRequest  false  "Serial overrides"
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/roaster/start [post]
// @Security     BearerAuth
func (h *Handler) startRoaster(c *gin.Context) {
	var req StartRequest
	// chunked bodies report no length; an empty body means the defaults
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	params := req.apply(h.defaults)

	if err := h.services.Roaster.Start(c.Request.Context(), params); err != nil {
		if errors.Is(err, service.ErrInvalidInterval) || errors.Is(err, service.ErrInvalidSerial) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errStartRoaster, "roaster_start_failed", err,
			"port", params.Port.Name)
		return
	}
	h.respondWithStatusAndState(c, statusStarted)
}

// @Summary      Stop the control loop
// @Tags         roaster
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/roaster/stop [post]
// @Security     BearerAuth
func (h *Handler) stopRoaster(c *gin.Context) {
	if err := h.services.Roaster.Stop(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errStopRoaster, "roaster_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped)
}

// @Summary      Engage external control
// @Description  Staged set-points are sent on every tick until disengaged.
// @Tags         roaster
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/roaster/engage [post]
// @Security     BearerAuth
func (h *Handler) engageControl(c *gin.Context) {
	if err := h.services.Roaster.EngageControl(c.Request.Context()); err != nil {
		h.controlError(c, "roaster_engage_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusEngaged)
}

// @Summary      Disengage external control
// @Tags         roaster
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/roaster/disengage [post]
// @Security     BearerAuth
func (h *Handler) disengageControl(c *gin.Context) {
	if err := h.services.Roaster.DisengageControl(c.Request.Context()); err != nil {
		h.controlError(c, "roaster_disengage_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusDisengaged)
}

// @Summary      Stage set-points
// @Description  Fans take 0-100 and are rounded to the device's steps of 10. Values take effect while control is engaged.
// @Tags         roaster
// @Accept       json
// @Produce      json
// @Param        body  body   SetpointsRequest  true  "Set-points"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/roaster/setpoints [post]
// @Security     BearerAuth
func (h *Handler) requestSetpoints(c *gin.Context) {
	var req SetpointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	sr := state.SetpointRequest(req)
	if sr.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmptySetpoints})
		return
	}
	if err := h.services.Roaster.RequestSetpoints(c.Request.Context(), sr); err != nil {
		h.controlError(c, "roaster_setpoints_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusSetpointsOK)
}

// @Summary      Latest reading
// @Description  BT and ET in °C, heater and main fan in 0-100. Unavailable values are null.
// @Tags         roaster
// @Produce      json
// @Success      200  {object}  models.Reading
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/roaster/reading [get]
// @Security     BearerAuth
func (h *Handler) getReading(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Roaster.Reading())
}

// @Summary      Roaster state
// @Tags         roaster
// @Produce      json
// @Success      200  {object}  models.RoasterState
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/roaster/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Roaster.State())
}
