package builtin

import (
	"time"

	"persona/internal/capability"
)

const defaultTimezone = "Europe/Istanbul"

// CurrentTime reports the current wall-clock time in a requested
// timezone. now is injectable for tests.
type CurrentTime struct {
	capability.Base
	now func() time.Time
}

func NewCurrentTime() *CurrentTime {
	return &CurrentTime{
		Base: capability.NewBase(
			"get_current_time",
			"Returns the current date and time. Args: timezone (optional IANA name, default Europe/Istanbul), format (optional Go layout).",
		),
		now: time.Now,
	}
}

func (c *CurrentTime) Execute(args map[string]any) capability.Result {
	tz := defaultTimezone
	if v, ok := args["timezone"].(string); ok && v != "" {
		tz = v
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return capability.Errorf("unknown timezone '%s'", tz)
	}

	layout := "2006-01-02 15:04:05"
	if v, ok := args["format"].(string); ok && v != "" {
		layout = v
	}

	t := c.now().In(loc)
	return capability.Result{
		"current_time": t.Format(layout),
		"timezone":     tz,
		"timestamp":    t.Unix(),
		"iso_format":   t.Format(time.RFC3339),
	}
}
