package parking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parkpilot/parkpilot-core/internal/infrastructure/mqtt"
)

// SensorReading is the payload in-ground spot sensors publish to
// parkpilot/sensor/{lot_id}/{node_id}.
type SensorReading struct {
	Occupied bool `json:"occupied"`
}

// AttachSensorFeed subscribes the service to live spot sensor readings.
//
// Each reading is applied through the same per-node lock as user
// transitions, so a sensor and an API call racing on one spot resolve
// cleanly. Malformed payloads and readings for unknown nodes are logged
// and dropped; they never fail the subscription.
func AttachSensorFeed(client *mqtt.Client, svc *Service, qos byte, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	topic := mqtt.Topics{}.AllSensorReadings()
	err := client.Subscribe(topic, qos, func(topic string, payload []byte) error {
		lotID, nodeID, err := mqtt.ParseSensorTopic(topic)
		if err != nil {
			logger.Warn("dropping sensor message on malformed topic", "topic", topic, "error", err)
			return nil
		}

		var reading SensorReading
		if err := json.Unmarshal(payload, &reading); err != nil {
			logger.Warn("dropping malformed sensor payload",
				"topic", topic, "error", err)
			return nil
		}

		if err := svc.ApplySensorReading(context.Background(), lotID, nodeID, reading.Occupied); err != nil {
			logger.Warn("applying sensor reading failed",
				"lot_id", lotID, "node_id", nodeID,
				"occupied", reading.Occupied, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to sensor readings: %w", err)
	}

	logger.Info("sensor feed attached", "topic", topic)
	return nil
}
