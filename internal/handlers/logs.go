package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"controlling_roaster/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeOrder  = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var queryTimeLayouts = []string{time.RFC3339, layoutDateTime, layoutDate}

// logsQuery is the query string of GET /api/v1/logs.
type logsQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
	Type string `form:"type"`
}

// filter parses the query into a service filter. A date-only 'to' covers
// that whole day.
func (q logsQuery) filter() (service.LogFilter, string) {
	var f service.LogFilter
	if q.From != "" {
		t, err := parseQueryTime(q.From)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = t
	}
	if q.To != "" {
		t, err := parseQueryTime(q.To)
		if err != nil {
			return f, errToInvalid
		}
		if !strings.ContainsAny(q.To, "T ") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRangeOrder
	}
	f.Type = strings.ToUpper(strings.TrimSpace(q.Type))
	return f, ""
}

// @Summary      List logs
// @Description  Audit events of the control plane and the safety interlock. Dates accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' is inclusive of that day.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2026-03-01)
// @Param        to    query   string  false  "End of range; date-only means end of day"  example(2026-03-31)
// @Param        type  query   string  false  "Event type"  Enums(START,STOP,ENGAGE,DISENGAGE,SETPOINTS,SAFETY_CUTOFF,SAFETY_CLEARED)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	var q logsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, msg := q.filter()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	switch {
	case errors.Is(err, service.ErrUnknownEventType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// parseQueryTime tries each accepted layout and returns UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}
