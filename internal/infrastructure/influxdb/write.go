package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteAuthEvent records an authentication event outcome.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Event and outcome are low-cardinality tags so dashboards can group
// login failure rates, registration volume and so on.
//
// Example:
//
//	client.WriteAuthEvent("login", "success")
//	client.WriteAuthEvent("login", "invalid_credentials")
func (c *Client) WriteAuthEvent(event string, outcome string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"auth_events",
		map[string]string{
			"event":   event,
			"outcome": outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTokenEvent records a one-time token lifecycle event.
//
// Parameters:
//   - tokenType: RESET or VERIFICATION
//   - phase: issued, consumed, expired, rejected
func (c *Client) WriteTokenEvent(tokenType string, phase string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"token_events",
		map[string]string{
			"type":  tokenType,
			"phase": phase,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRequestMetric records HTTP request latency for a route.
//
// The route tag should be the chi route pattern, not the raw URL, to keep
// tag cardinality bounded.
func (c *Client) WriteRequestMetric(route string, method string, status int, durationMs float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"http_requests",
		map[string]string{
			"route":  route,
			"method": method,
		},
		map[string]interface{}{
			"status":      status,
			"duration_ms": durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
