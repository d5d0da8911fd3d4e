package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// statusCode maps a spot status to a numeric series value so status
// history can be graphed directly.
func statusCode(status string) int {
	switch status {
	case "AVAILABLE":
		return 0
	case "RESERVED":
		return 1
	case "OCCUPIED":
		return 2
	default:
		return -1
	}
}

// WriteSpotStatus records a spot status transition.
//
// This is the primary telemetry feed: every reservation, arrival,
// release and expiry lands here. The write is non-blocking; data is
// batched and sent asynchronously.
//
// Example:
//
//	client.WriteSpotStatus(3, 42, "OCCUPIED")
func (c *Client) WriteSpotStatus(lotID, nodeID int64, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"spot_status",
		map[string]string{
			"lot_id":  strconv.FormatInt(lotID, 10),
			"node_id": strconv.FormatInt(nodeID, 10),
		},
		map[string]interface{}{
			"status": status,
			"code":   statusCode(status),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLotOccupancy records a lot occupancy snapshot.
//
// Called after each status transition so dashboards can chart fill
// level over time without aggregating spot_status series.
//
// Parameters:
//   - lotID: Lot identifier
//   - occupied: Spots currently OCCUPIED
//   - total: Total parking spots in the lot
func (c *Client) WriteLotOccupancy(lotID int64, occupied, total int) {
	if !c.IsConnected() {
		return
	}

	var pct float64
	if total > 0 {
		pct = float64(occupied) / float64(total) * 100
	}

	point := write.NewPoint(
		"lot_occupancy",
		map[string]string{
			"lot_id": strconv.FormatInt(lotID, 10),
		},
		map[string]interface{}{
			"occupied":   occupied,
			"total":      total,
			"percentage": pct,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCarbonSaving records the CO2 and money saved by one guided route.
//
// Parameters:
//   - lotID: Lot the route was computed for
//   - co2SavedG: Grams of CO2 saved versus the unguided baseline
//   - moneySavedUSD: Equivalent monetary saving
func (c *Client) WriteCarbonSaving(lotID int64, co2SavedG, moneySavedUSD float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"carbon_savings",
		map[string]string{
			"lot_id": strconv.FormatInt(lotID, 10),
		},
		map[string]interface{}{
			"co2_saved_g":     co2SavedG,
			"money_saved_usd": moneySavedUSD,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
