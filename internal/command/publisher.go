package command

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/mqtt"
)

// defaultQoS is at-least-once.
const defaultQoS byte = 1

// Transport is the broker side of the publisher. Publish blocks until the
// broker acknowledges or the publish fails; *mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging surface the publisher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Observer is told the outcome of every publish.
type Observer interface {
	CommandPublished(class string, err error, elapsed time.Duration)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type noopObserver struct{}

func (noopObserver) CommandPublished(string, error, time.Duration) {}

// Target addresses one device's topics.
type Target struct {
	UserID   string
	Location string
	DeviceID string
}

func (t Target) validate() error {
	if err := mqtt.ValidateLevel(t.UserID); err != nil {
		return fmt.Errorf("%w: user id: %v", ErrInvalidTarget, err)
	}
	if err := mqtt.ValidateLevel(t.Location); err != nil {
		return fmt.Errorf("%w: location: %v", ErrInvalidTarget, err)
	}
	if err := mqtt.ValidateLevel(t.DeviceID); err != nil {
		return fmt.Errorf("%w: device id: %v", ErrInvalidTarget, err)
	}
	return nil
}

// IntendedState is the last settings object the broker acknowledged for a
// device. It is what the server asked for, not what the device reported.
type IntendedState struct {
	Class       string          `json:"class"`
	Topic       string          `json:"topic"`
	Settings    json.RawMessage `json:"settings"`
	PublishedAt time.Time       `json:"published_at"`
}

type stateKey struct {
	class    string
	deviceID string
}

// Config holds optional publisher collaborators.
type Config struct {
	QoS      byte
	Logger   Logger
	Observer Observer
}

// Publisher sends settings to devices and remembers the last acknowledged
// settings per device.
type Publisher struct {
	transport Transport
	qos       byte
	logger    Logger
	observer  Observer
	topics    mqtt.Topics
	now       func() time.Time

	mu       sync.RWMutex
	intended map[stateKey]IntendedState
}

// NewPublisher creates a Publisher on transport.
//
// Parameters:
//   - transport: Broker connection, usually *mqtt.Client
//   - cfg: QoS (zero means 1), optional Logger and Observer
//
// Returns:
//   - *Publisher: Publisher with an empty last-intended-state table
func NewPublisher(transport Transport, cfg Config) *Publisher {
	p := &Publisher{
		transport: transport,
		qos:       cfg.QoS,
		logger:    cfg.Logger,
		observer:  cfg.Observer,
		now:       time.Now,
		intended:  make(map[stateKey]IntendedState),
	}
	if p.qos == 0 {
		p.qos = defaultQoS
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	if p.observer == nil {
		p.observer = noopObserver{}
	}
	return p
}

// ClassForKind maps a device kind to its topic class.
func ClassForKind(kind device.Kind) (string, error) {
	switch kind {
	case device.KindFan:
		return mqtt.ClassFan, nil
	case device.KindTemperature:
		return mqtt.ClassTemperature, nil
	case device.KindRFID:
		return mqtt.ClassRFID, nil
	case device.KindCamera:
		return mqtt.ClassCamera, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, kind)
	}
}

// PublishFan sends fan settings.
func (p *Publisher) PublishFan(t Target, s FanSettings) *Ack {
	return p.PublishSettings(mqtt.ClassFan, t, s)
}

// PublishThresholds sends temperature thresholds.
func (p *Publisher) PublishThresholds(t Target, s TemperatureThresholds) *Ack {
	return p.PublishSettings(mqtt.ClassTemperature, t, s)
}

// PublishLock sends a door lock state.
func (p *Publisher) PublishLock(t Target, s LockState) *Ack {
	return p.PublishSettings(mqtt.ClassRFID, t, s)
}

// PublishSettings serializes settings to
// {userId}/{class}/{location}/{deviceId}/settings and records it as the
// device's intended state once acknowledged.
func (p *Publisher) PublishSettings(class string, t Target, settings any) *Ack {
	id := uuid.NewString()
	if err := t.validate(); err != nil {
		return failedAck(id, "", err)
	}
	if err := mqtt.ValidateLevel(class); err != nil {
		return failedAck(id, "", fmt.Errorf("%w: class: %v", ErrInvalidTarget, err))
	}

	topic := p.topics.DeviceSettings(t.UserID, class, t.Location, t.DeviceID)
	key := stateKey{class: class, deviceID: t.DeviceID}
	return p.send(id, class, topic, settings, func(payload []byte, at time.Time) {
		p.mu.Lock()
		p.intended[key] = IntendedState{Class: class, Topic: topic, Settings: payload, PublishedAt: at}
		p.mu.Unlock()
	})
}

// PublishAssignment tells a scanner its owner and location.
func (p *Publisher) PublishAssignment(deviceID string, a Assignment) *Ack {
	id := uuid.NewString()
	if err := mqtt.ValidateLevel(deviceID); err != nil {
		return failedAck(id, "", fmt.Errorf("%w: device id: %v", ErrInvalidTarget, err))
	}
	return p.send(id, "assign", p.topics.RFIDAssignment(deviceID), a, nil)
}

// PublishScanResponse answers a scan on the per-card reply topic.
func (p *Publisher) PublishScanResponse(t Target, cardUID string, authorised bool) *Ack {
	id := uuid.NewString()
	if err := t.validate(); err != nil {
		return failedAck(id, "", err)
	}
	if err := mqtt.ValidateLevel(cardUID); err != nil {
		return failedAck(id, "", fmt.Errorf("%w: card uid: %v", ErrInvalidTarget, err))
	}
	topic := p.topics.RFIDScanResponse(t.UserID, t.Location, t.DeviceID, cardUID)
	return p.send(id, "scan", topic, ScanResponse{Authorised: authorised}, nil)
}

// LastIntended returns the last acknowledged settings for a device.
func (p *Publisher) LastIntended(kind device.Kind, deviceID string) (IntendedState, bool) {
	class, err := ClassForKind(kind)
	if err != nil {
		return IntendedState{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.intended[stateKey{class: class, deviceID: deviceID}]
	return s, ok
}

// send encodes v and publishes it in the background. onAck runs only after
// a successful acknowledgment.
func (p *Publisher) send(id, class, topic string, v any, onAck func(payload []byte, at time.Time)) *Ack {
	payload, err := json.Marshal(v)
	if err != nil {
		return failedAck(id, topic, fmt.Errorf("%w: %v", ErrEncode, err))
	}

	ack := newAck(id, topic)
	start := p.now()
	go func() {
		err := p.transport.Publish(topic, payload, p.qos, false)
		at := p.now()
		p.observer.CommandPublished(class, err, at.Sub(start))

		if err != nil {
			p.logger.Warn("command publish failed", "id", id, "topic", topic, "error", err)
		} else {
			p.logger.Debug("command published", "id", id, "topic", topic)
			if onAck != nil {
				onAck(payload, at)
			}
		}
		ack.resolve(err)
	}()
	return ack
}
