package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/command"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/mqtt"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/keycard"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/topic"
)

// Devices is the device storage the handlers need.
type Devices interface {
	Get(ctx context.Context, kind device.Kind, id string) (*device.Device, error)
	CreateIfAbsent(ctx context.Context, d *device.Device) (bool, error)
	SetLocked(ctx context.Context, id string, locked bool) error
	SetFanState(ctx context.Context, id string, state device.FanState) error
}

// Readings is the append-only telemetry storage.
type Readings interface {
	AppendTemperature(ctx context.Context, r device.TemperatureReading) (int64, error)
	AppendFanReading(ctx context.Context, r device.FanReading) (int64, error)
	AppendCameraCapture(ctx context.Context, c device.CameraCapture) (int64, error)
}

// Keycards resolves tags and records decisions.
type Keycards interface {
	LookupByTag(ctx context.Context, tag string) (*keycard.Keycard, error)
	AppendAccessLog(ctx context.Context, e keycard.AccessLogEntry) (int64, error)
}

// Publisher sends replies to devices; *command.Publisher satisfies it.
type Publisher interface {
	PublishScanResponse(t command.Target, cardUID string, authorised bool) *command.Ack
	PublishAssignment(deviceID string, a command.Assignment) *command.Ack
}

// Recorder mirrors accepted telemetry into a time-series store. Writes are
// buffered and must not block.
type Recorder interface {
	WriteTemperature(deviceID, location string, celsius float64, at time.Time)
	WriteFanState(deviceID, location string, state device.FanState, at time.Time)
	WriteAccessDecision(deviceID, location, tag string, granted bool, at time.Time)
}

// Notifier pushes events to live clients.
type Notifier interface {
	Broadcast(channel string, payload any)
}

// Logger is the logging surface the handlers need.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Deps holds handler collaborators. Recorder, Notifier and Logger are
// optional.
type Deps struct {
	Devices   Devices
	Readings  Readings
	Keycards  Keycards
	Publisher Publisher
	Recorder  Recorder
	Notifier  Notifier
	Logger    Logger
}

// Handlers processes device telemetry. It holds no per-message state, so
// concurrent messages only share the storage and broker handles.
type Handlers struct {
	devices   Devices
	readings  Readings
	keycards  Keycards
	publisher Publisher
	recorder  Recorder
	notifier  Notifier
	logger    Logger
	now       func() time.Time
}

// New creates the telemetry handlers.
//
// Parameters:
//   - deps: Storage, publisher and optional side channels. Devices,
//     Readings, Keycards and Publisher are required; a nil Recorder,
//     Notifier or Logger is replaced by a no-op
//
// Returns:
//   - *Handlers: Handlers ready to be bound with Register
func New(deps Deps) *Handlers {
	h := &Handlers{
		devices:   deps.Devices,
		readings:  deps.Readings,
		keycards:  deps.Keycards,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       time.Now,
	}
	if h.recorder == nil {
		h.recorder = noopRecorder{}
	}
	if h.notifier == nil {
		h.notifier = noopNotifier{}
	}
	if h.logger == nil {
		h.logger = noopLogger{}
	}
	return h
}

// Register binds every handler on r. Order matters only where filters
// overlap; the fan filter is listed before the broader temperature one.
func (h *Handlers) Register(r *topic.Router) error {
	topics := mqtt.Topics{}
	bindings := []struct {
		filter  string
		handler topic.Handler
	}{
		{topics.AllRFIDScans(), h.RFIDScan},
		{topics.RFIDAssignRequests(), h.RFIDAssign},
		{topics.AllFanStates(), h.FanState},
		{topics.AllTemperatureReadings(), h.Temperature},
		{topics.AllCameraAlerts(), h.CameraAlert},
	}
	for _, b := range bindings {
		if err := r.Register(b.filter, b.handler); err != nil {
			return fmt.Errorf("registering %s: %w", b.filter, err)
		}
	}
	return nil
}

// deviceTopic parses the addressed device out of topic.
func deviceTopic(t string) (mqtt.DeviceTopic, error) {
	dt, err := mqtt.ParseDeviceTopic(t)
	if err != nil {
		return mqtt.DeviceTopic{}, fmt.Errorf("%w: %v", ErrInvalidTopic, err)
	}
	return dt, nil
}

type noopRecorder struct{}

func (noopRecorder) WriteTemperature(string, string, float64, time.Time)         {}
func (noopRecorder) WriteFanState(string, string, device.FanState, time.Time)    {}
func (noopRecorder) WriteAccessDecision(string, string, string, bool, time.Time) {}

type noopNotifier struct{}

func (noopNotifier) Broadcast(string, any) {}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
