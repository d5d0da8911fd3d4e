// Package mqtt provides MQTT client connectivity for ParkPilot Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// ParkPilot uses MQTT to ingest occupancy readings from in-ground spot
// sensors and to republish canonical spot status for external consumers
// (signage, gate controllers). The broker (Mosquitto) decouples Core
// from sensor hardware.
//
//	Spot Sensors → MQTT Broker → ParkPilot Core → MQTT Broker → Signage
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all spot sensor readings
//	err = client.Subscribe(mqtt.Topics{}.AllSensorReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish canonical spot status
//	topic := mqtt.Topics{}.SpotStatus(3, 42)
//	client.Publish(topic, []byte(`{"status":"OCCUPIED"}`), 1, true)
package mqtt
