package graph

import "time"

// NodeType classifies a point in the lot topology.
type NodeType string

// Node types.
const (
	NodeTypeParkingSpot NodeType = "PARKING_SPOT"
	NodeTypeRoad        NodeType = "ROAD"
	NodeTypeCarEntrance NodeType = "CAR_ENTRANCE"
	NodeTypeCarExit     NodeType = "CAR_EXIT"
	NodeTypeHumanExit   NodeType = "HUMAN_EXIT"
	NodeTypeWall        NodeType = "WALL"
)

// NodeStatus is the lifecycle state of a node (meaningful for parking spots).
type NodeStatus string

// Node statuses.
const (
	StatusAvailable    NodeStatus = "AVAILABLE"
	StatusOccupied     NodeStatus = "OCCUPIED"
	StatusReserved     NodeStatus = "RESERVED"
	StatusOutOfService NodeStatus = "OUT_OF_SERVICE"
)

// EdgeStatus is the routing state of an edge.
type EdgeStatus string

// Edge statuses.
const (
	EdgeOpen   EdgeStatus = "OPEN"
	EdgeClosed EdgeStatus = "CLOSED"
)

// ValidNodeType reports whether t is a recognised node type.
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeTypeParkingSpot, NodeTypeRoad, NodeTypeCarEntrance,
		NodeTypeCarExit, NodeTypeHumanExit, NodeTypeWall:
		return true
	}
	return false
}

// ValidNodeStatus reports whether s is a recognised node status.
func ValidNodeStatus(s NodeStatus) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReserved, StatusOutOfService:
		return true
	}
	return false
}

// Node is a point in a lot's topology.
//
// Invariant: ExpiresAt is non-nil if and only if Status is RESERVED.
type Node struct {
	ID          int64      `json:"id"`
	LotID       int64      `json:"lot_id"`
	Type        NodeType   `json:"type"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Orientation *float64   `json:"orientation,omitempty"`
	Status      NodeStatus `json:"status"`
	Label       *string    `json:"label,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Edge is a directed weighted connection between two nodes in the same lot.
//
// A bidirectional edge input is materialised as two independent directed
// edges with identical length, weight and status. Updating one direction's
// status does not touch the other; callers keep the pair in sync.
type Edge struct {
	From          int64      `json:"from_node_id"`
	To            int64      `json:"to_node_id"`
	LengthM       float64    `json:"length_m"`
	Weight        float64    `json:"weight"`
	Status        EdgeStatus `json:"status"`
	Bidirectional bool       `json:"bidirectional"`
}
