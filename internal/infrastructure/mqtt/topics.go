package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes for the ParkPilot MQTT hierarchy.
//
// Spot sensors publish occupancy readings to per-node topics; Core
// publishes canonical spot status after processing. The scheme is flat:
// parkpilot/{category}/{lot_id}/{node_id}
const (
	// TopicPrefix is the base for all ParkPilot topics.
	TopicPrefix = "parkpilot"

	// TopicPrefixSensor is the base for inbound sensor readings.
	TopicPrefixSensor = "parkpilot/sensor"

	// TopicPrefixStatus is the base for canonical spot status published by Core.
	TopicPrefixStatus = "parkpilot/status"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "parkpilot/system"
)

// Topics provides builders for ParkPilot MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	readingTopic := topics.SensorReading(3, 42)
//	// Returns: "parkpilot/sensor/3/42"
type Topics struct{}

// SensorReading returns the topic a spot sensor publishes readings to.
//
// Example: parkpilot/sensor/3/42
func (Topics) SensorReading(lotID, nodeID int64) string {
	return fmt.Sprintf("%s/%d/%d", TopicPrefixSensor, lotID, nodeID)
}

// SpotStatus returns the topic for canonical spot status updates.
// This is the authoritative status published by Core after processing
// sensor readings and reservation transitions.
//
// Example: parkpilot/status/3/42
func (Topics) SpotStatus(lotID, nodeID int64) string {
	return fmt.Sprintf("%s/%d/%d", TopicPrefixStatus, lotID, nodeID)
}

// SystemStatus returns the system status topic.
//
// Example: parkpilot/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllSensorReadings returns a pattern matching readings from every spot
// sensor in every lot.
//
// Pattern: parkpilot/sensor/+/+
func (Topics) AllSensorReadings() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixSensor)
}

// LotSensorReadings returns a pattern matching readings from one lot.
//
// Pattern: parkpilot/sensor/3/+
func (Topics) LotSensorReadings(lotID int64) string {
	return fmt.Sprintf("%s/%d/+", TopicPrefixSensor, lotID)
}

// AllSpotStatuses returns a pattern matching all canonical status updates.
//
// Pattern: parkpilot/status/+/+
func (Topics) AllSpotStatuses() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixStatus)
}

// AllTopics returns a pattern matching all ParkPilot topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: parkpilot/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseSensorTopic extracts the lot and node IDs from a sensor reading
// topic. Returns an error for topics outside the sensor hierarchy.
func ParseSensorTopic(topic string) (lotID, nodeID int64, err error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixSensor+"/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q is not a sensor topic", ErrInvalidTopic, topic)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	lotID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad lot id in %q", ErrInvalidTopic, topic)
	}
	nodeID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad node id in %q", ErrInvalidTopic, topic)
	}

	return lotID, nodeID, nil
}
