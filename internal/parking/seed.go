package parking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// seedLot is the on-disk JSON layout for one demo lot.
type seedLot struct {
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Nodes     []seedNode `json:"nodes"`
	Edges     []seedEdge `json:"edges"`
}

type seedNode struct {
	ID          int64    `json:"id"`
	Type        string   `json:"type"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Orientation *float64 `json:"orientation"`
	Status      *string  `json:"status"`
	Label       *string  `json:"label"`
}

type seedEdge struct {
	FromNodeID    int64    `json:"from_node_id"`
	ToNodeID      int64    `json:"to_node_id"`
	Bidirectional *bool    `json:"bidirectional"`
	LengthM       *float64 `json:"length_m"`
	Weight        *float64 `json:"weight"`
	Status        *string  `json:"status"`
}

// Seed loads demo lot layouts from JSON files into the database. Node IDs
// within each file start at their own origin; a running offset keeps them
// unique across files. Seeding is skipped entirely when lots already
// exist.
func Seed(ctx context.Context, repo Repository, paths []string, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	count, err := repo.CountLots(ctx)
	if err != nil {
		return fmt.Errorf("checking existing lots: %w", err)
	}
	if count > 0 {
		logger.Info("seed skipped, lots already present", "lots", count)
		return nil
	}

	var offset int64
	for _, path := range paths {
		inserted, err := seedFile(ctx, repo, path, offset, logger)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", path, err)
		}
		offset += inserted
	}
	return nil
}

// seedFile inserts one lot layout and returns the number of nodes added.
func seedFile(ctx context.Context, repo Repository, path string, offset int64, logger Logger) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}

	var layout seedLot
	if err := json.Unmarshal(data, &layout); err != nil {
		return 0, fmt.Errorf("parsing seed file: %w", err)
	}

	lot := Lot{
		Name:      layout.Name,
		Location:  layout.Location,
		WidthM:    layout.Width,
		HeightM:   layout.Height,
		Latitude:  layout.Latitude,
		Longitude: layout.Longitude,
	}
	if err := repo.CreateLot(ctx, &lot); err != nil {
		return 0, err
	}

	coords := make(map[int64][2]float64, len(layout.Nodes))
	for _, n := range layout.Nodes {
		id := n.ID + offset
		status := graph.StatusAvailable
		if n.Status != nil {
			status = graph.NodeStatus(*n.Status)
		}

		node := graph.Node{
			ID:          id,
			LotID:       lot.ID,
			Type:        graph.NodeType(n.Type),
			X:           n.X,
			Y:           n.Y,
			Orientation: n.Orientation,
			Status:      status,
			Label:       n.Label,
		}
		if err := repo.CreateNode(ctx, &node); err != nil {
			return 0, err
		}
		coords[id] = [2]float64{n.X, n.Y}
	}

	skipped := 0
	for _, e := range layout.Edges {
		from := e.FromNodeID + offset
		to := e.ToNodeID + offset

		fc, fromOK := coords[from]
		tc, toOK := coords[to]
		if !fromOK || !toOK {
			logger.Warn("seed edge references missing node, skipping",
				"from", from, "to", to, "file", path)
			skipped++
			continue
		}

		length := math.Hypot(tc[0]-fc[0], tc[1]-fc[1])
		if e.LengthM != nil {
			length = *e.LengthM
		}
		weight := length
		if e.Weight != nil {
			weight = *e.Weight
		}
		status := graph.EdgeOpen
		if e.Status != nil {
			status = graph.EdgeStatus(*e.Status)
		}
		bidirectional := true
		if e.Bidirectional != nil {
			bidirectional = *e.Bidirectional
		}

		edge := graph.Edge{
			From:          from,
			To:            to,
			LengthM:       length,
			Weight:        weight,
			Status:        status,
			Bidirectional: bidirectional,
		}
		if err := repo.CreateEdge(ctx, lot.ID, &edge); err != nil {
			return 0, err
		}
	}

	logger.Info("seeded lot", "name", lot.Name, "lot_id", lot.ID,
		"nodes", len(layout.Nodes), "edges", len(layout.Edges)-skipped, "skipped_edges", skipped)
	return int64(len(layout.Nodes)), nil
}
