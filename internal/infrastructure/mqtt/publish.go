package mqtt

import (
	"fmt"
	"strings"
)

// maxPayloadSize caps outbound payloads at 1MB.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and blocks until the broker acknowledges
// it (PUBACK for QoS 1) or defaultPublishTimeout passes. Acknowledgment
// means the broker has the message, not that any device received it.
//
// Example:
//
//	topic := mqtt.Topics{}.DeviceSettings("7", mqtt.ClassFan, "kitchen", "3")
//	err := client.Publish(topic, []byte(`{"fanMode":"auto"}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}
