package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementCookEvents = "cook_events"
	measurementStoveState = "stove_state"
)

// CookEvent is one slot completion or ejection, flattened for storage.
type CookEvent struct {
	StoveID  string
	Kind     string // cooked, burnt, ejected
	Slot     int
	Input    string
	RecipeID string
	Result   string
	Count    int
}

// WriteCookEvent records a slot completion or ejection.
//
//	client.WriteCookEvent(influxdb.CookEvent{StoveID: "stv-1a2b3c4d", Kind: "cooked", Input: "cod", Result: "cooked_cod", Count: 1})
func (c *Client) WriteCookEvent(ev CookEvent) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"slot":  ev.Slot,
		"input": ev.Input,
		"count": ev.Count,
	}
	if ev.RecipeID != "" {
		fields["recipe_id"] = ev.RecipeID
	}
	if ev.Result != "" {
		fields["result"] = ev.Result
	}

	c.writeAPI.WritePoint(write.NewPoint(
		measurementCookEvents,
		map[string]string{
			"stove_id": ev.StoveID,
			"kind":     ev.Kind,
		},
		fields,
		time.Now(),
	))
}

// WriteStoveState records a gauge sample of one stove: whether it is lit,
// how many slots hold an item and the mean cooking progress (0..1) of the
// occupied slots.
func (c *Client) WriteStoveState(stoveID string, lit bool, occupied int, progress float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		measurementStoveState,
		map[string]string{"stove_id": stoveID},
		map[string]interface{}{
			"lit":      lit,
			"occupied": occupied,
			"progress": progress,
		},
		time.Now(),
	))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point at the given timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
