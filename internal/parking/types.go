package parking

import (
	"time"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// Lot is a parking lot's inventory record.
type Lot struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	WidthM    float64   `json:"width"`
	HeightM   float64   `json:"height"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// LotSummary is a lot's identity plus live spot counts.
type LotSummary struct {
	LotID               int64   `json:"lot_id"`
	LotName             string  `json:"lot_name"`
	Location            string  `json:"location"`
	Longitude           float64 `json:"longitude"`
	Latitude            float64 `json:"latitude"`
	TotalSpots          int     `json:"total_spots"`
	NumOccupied         int     `json:"num_occupied"`
	NumAvailable        int     `json:"num_available"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
}

// MultiLotSummary wraps summaries for every lot.
type MultiLotSummary struct {
	LotsSummary []LotSummary `json:"lots_summary"`
}

// GridDimensions describes a lot's node grid extent.
type GridDimensions struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// LotNodes is the full node listing for a lot, with grid dimensions
// derived from the node coordinate extents.
type LotNodes struct {
	LotID      int64          `json:"lot_id"`
	Dimensions GridDimensions `json:"dimensions"`
	Nodes      []graph.Node   `json:"nodes"`
}

// RoadEdge is one ROAD-to-ROAD edge in listing order.
type RoadEdge struct {
	FromNodeID    int64            `json:"from_node_id"`
	ToNodeID      int64            `json:"to_node_id"`
	LengthM       float64          `json:"length_m"`
	Weight        float64          `json:"weight"`
	Status        graph.EdgeStatus `json:"status"`
	Bidirectional bool             `json:"bidirectional"`
}

// StatusResult is the outcome of a spot status transition.
type StatusResult struct {
	Message   string     `json:"message"`
	LotID     int64      `json:"lot_id"`
	NodeID    int64      `json:"node_id"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
}
