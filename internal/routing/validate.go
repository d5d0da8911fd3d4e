package routing

import (
	"fmt"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// ValidatePath checks whether an ordered node sequence is currently drivable.
//
// The checks run in order:
//  1. every node ID must exist in the graph;
//  2. every consecutive pair must be connected by a directed edge — a missing
//     edge fails immediately citing the pair, while a non-OPEN edge is
//     recorded as blocked and scanning continues so all blocked edges are
//     reported together;
//  3. if the destination is a PARKING_SPOT it must be AVAILABLE or RESERVED.
func ValidatePath(g *graph.Graph, nodeIDs []int64) Validation {
	if len(nodeIDs) == 0 {
		return Validation{Valid: false, Reason: "Path is empty"}
	}

	for _, id := range nodeIDs {
		if !g.HasNode(id) {
			return Validation{Valid: false, Reason: fmt.Sprintf("Node %d does not exist", id)}
		}
	}

	var blocked [][2]int64
	for i := 0; i < len(nodeIDs)-1; i++ {
		from, to := nodeIDs[i], nodeIDs[i+1]
		e, ok := g.Edge(from, to)
		if !ok {
			return Validation{
				Valid:  false,
				Reason: fmt.Sprintf("No edge between %d and %d", from, to),
			}
		}
		if e.Status != graph.EdgeOpen {
			blocked = append(blocked, [2]int64{from, to})
		}
	}

	if len(blocked) > 0 {
		return Validation{Valid: false, Reason: "Path blocked", BlockedEdges: blocked}
	}

	dest, _ := g.Node(nodeIDs[len(nodeIDs)-1])
	if dest.Type == graph.NodeTypeParkingSpot {
		if dest.Status != graph.StatusAvailable && dest.Status != graph.StatusReserved {
			return Validation{
				Valid:  false,
				Reason: fmt.Sprintf("Destination spot is %s", dest.Status),
			}
		}
	}

	return Validation{Valid: true, Reason: "Path is clear"}
}
