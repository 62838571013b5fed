package device

import (
	"context"
	"fmt"
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/database"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// TelemetryRepository appends and reads device observations. Appends never
// deduplicate: a redelivered message becomes a second row.
type TelemetryRepository interface {
	AppendTemperature(ctx context.Context, r TemperatureReading) (int64, error)
	AppendFanReading(ctx context.Context, r FanReading) (int64, error)
	AppendCameraCapture(ctx context.Context, c CameraCapture) (int64, error)
	AddTemperatureSettings(ctx context.Context, s TemperatureSettings) error

	ListTemperatureReadings(ctx context.Context, deviceID string, limit int) ([]TemperatureReading, error)
	ListFanReadings(ctx context.Context, deviceID string, limit int) ([]FanReading, error)
	ListCameraCaptures(ctx context.Context, deviceID string, limit int) ([]CameraCapture, error)

	// LatestTemperatureSettings returns ErrDeviceNotFound when no
	// thresholds were ever stored for the device.
	LatestTemperatureSettings(ctx context.Context, deviceID string) (*TemperatureSettings, error)
}

// SQLTelemetryRepository implements TelemetryRepository over the gateway.
type SQLTelemetryRepository struct {
	db  database.Executor
	now func() time.Time
}

// NewSQLTelemetryRepository creates a telemetry repository.
func NewSQLTelemetryRepository(db database.Executor) *SQLTelemetryRepository {
	return &SQLTelemetryRepository{db: db, now: time.Now}
}

func (r *SQLTelemetryRepository) stamp(t time.Time) string {
	if t.IsZero() {
		t = r.now()
	}
	return database.FormatTime(t)
}

// AppendTemperature stores one reading and returns its row id.
func (r *SQLTelemetryRepository) AppendTemperature(ctx context.Context, reading TemperatureReading) (int64, error) {
	res, err := r.db.Execute(ctx,
		`INSERT INTO temperature_readings (device_id, celsius, recorded_at) VALUES (@device_id, @celsius, @recorded_at)`,
		database.Params{
			"device_id":   reading.DeviceID,
			"celsius":     reading.Celsius,
			"recorded_at": r.stamp(reading.RecordedAt),
		})
	if err != nil {
		return 0, fmt.Errorf("inserting temperature reading for %s: %w", reading.DeviceID, err)
	}
	return res.LastInsertID, nil
}

// AppendFanReading stores one fan state report.
func (r *SQLTelemetryRepository) AppendFanReading(ctx context.Context, reading FanReading) (int64, error) {
	res, err := r.db.Execute(ctx, `
		INSERT INTO fan_readings (device_id, fan_on, fan_speed, fan_mode, recorded_at)
		VALUES (@device_id, @fan_on, @fan_speed, @fan_mode, @recorded_at)`,
		database.Params{
			"device_id":   reading.DeviceID,
			"fan_on":      nullBool(reading.State.On),
			"fan_speed":   reading.State.Speed,
			"fan_mode":    string(reading.State.Mode),
			"recorded_at": r.stamp(reading.RecordedAt),
		})
	if err != nil {
		return 0, fmt.Errorf("inserting fan reading for %s: %w", reading.DeviceID, err)
	}
	return res.LastInsertID, nil
}

// AppendCameraCapture stores one image.
func (r *SQLTelemetryRepository) AppendCameraCapture(ctx context.Context, c CameraCapture) (int64, error) {
	res, err := r.db.Execute(ctx,
		`INSERT INTO camera_captures (device_id, image, captured_at) VALUES (@device_id, @image, @captured_at)`,
		database.Params{
			"device_id":   c.DeviceID,
			"image":       c.Image,
			"captured_at": r.stamp(c.CapturedAt),
		})
	if err != nil {
		return 0, fmt.Errorf("inserting camera capture for %s: %w", c.DeviceID, err)
	}
	return res.LastInsertID, nil
}

// AddTemperatureSettings appends a threshold record; the newest one is in force.
func (r *SQLTelemetryRepository) AddTemperatureSettings(ctx context.Context, s TemperatureSettings) error {
	_, err := r.db.Execute(ctx, `
		INSERT INTO temperature_settings (device_id, max_temperature, normal_temperature, min_temperature, created_at)
		VALUES (@device_id, @max, @normal, @min, @created_at)`,
		database.Params{
			"device_id":  s.DeviceID,
			"max":        s.Max,
			"normal":     s.Normal,
			"min":        s.Min,
			"created_at": r.stamp(s.CreatedAt),
		})
	if err != nil {
		return fmt.Errorf("inserting temperature settings for %s: %w", s.DeviceID, err)
	}
	return nil
}

// ListTemperatureReadings returns the newest readings first.
func (r *SQLTelemetryRepository) ListTemperatureReadings(ctx context.Context, deviceID string, limit int) ([]TemperatureReading, error) {
	res, err := r.db.Execute(ctx, `
		SELECT id, device_id, celsius, recorded_at FROM temperature_readings
		WHERE device_id = @device_id ORDER BY id DESC LIMIT @limit`,
		database.Params{"device_id": deviceID, "limit": clampLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("listing temperature readings for %s: %w", deviceID, err)
	}

	out := make([]TemperatureReading, 0, len(res.Rows))
	for _, row := range res.Rows {
		id, err := row.Int64("id")
		if err != nil {
			return nil, err
		}
		celsius, err := row.Float64("celsius")
		if err != nil {
			return nil, err
		}
		at, err := row.Time("recorded_at")
		if err != nil {
			return nil, err
		}
		out = append(out, TemperatureReading{ID: id, DeviceID: row.String("device_id"), Celsius: celsius, RecordedAt: at})
	}
	return out, nil
}

// ListFanReadings returns the newest fan reports first.
func (r *SQLTelemetryRepository) ListFanReadings(ctx context.Context, deviceID string, limit int) ([]FanReading, error) {
	res, err := r.db.Execute(ctx, `
		SELECT id, device_id, fan_on, fan_speed, fan_mode, recorded_at FROM fan_readings
		WHERE device_id = @device_id ORDER BY id DESC LIMIT @limit`,
		database.Params{"device_id": deviceID, "limit": clampLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("listing fan readings for %s: %w", deviceID, err)
	}

	out := make([]FanReading, 0, len(res.Rows))
	for _, row := range res.Rows {
		id, err := row.Int64("id")
		if err != nil {
			return nil, err
		}
		speed, err := row.Int64("fan_speed")
		if err != nil {
			return nil, err
		}
		at, err := row.Time("recorded_at")
		if err != nil {
			return nil, err
		}
		out = append(out, FanReading{
			ID:       id,
			DeviceID: row.String("device_id"),
			State: FanState{
				On:    row.NullBool("fan_on"),
				Speed: int(speed),
				Mode:  FanMode(row.String("fan_mode")),
			},
			RecordedAt: at,
		})
	}
	return out, nil
}

// ListCameraCaptures returns the newest captures first.
func (r *SQLTelemetryRepository) ListCameraCaptures(ctx context.Context, deviceID string, limit int) ([]CameraCapture, error) {
	res, err := r.db.Execute(ctx, `
		SELECT id, device_id, image, captured_at FROM camera_captures
		WHERE device_id = @device_id ORDER BY id DESC LIMIT @limit`,
		database.Params{"device_id": deviceID, "limit": clampLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("listing camera captures for %s: %w", deviceID, err)
	}

	out := make([]CameraCapture, 0, len(res.Rows))
	for _, row := range res.Rows {
		id, err := row.Int64("id")
		if err != nil {
			return nil, err
		}
		at, err := row.Time("captured_at")
		if err != nil {
			return nil, err
		}
		out = append(out, CameraCapture{ID: id, DeviceID: row.String("device_id"), Image: row.Bytes("image"), CapturedAt: at})
	}
	return out, nil
}

// LatestTemperatureSettings returns the thresholds currently in force.
func (r *SQLTelemetryRepository) LatestTemperatureSettings(ctx context.Context, deviceID string) (*TemperatureSettings, error) {
	res, err := r.db.Execute(ctx, `
		SELECT device_id, max_temperature, normal_temperature, min_temperature, created_at
		FROM temperature_settings WHERE device_id = @device_id ORDER BY id DESC LIMIT 1`,
		database.Params{"device_id": deviceID})
	if err != nil {
		return nil, fmt.Errorf("querying temperature settings for %s: %w", deviceID, err)
	}
	if len(res.Rows) == 0 {
		return nil, ErrDeviceNotFound
	}

	row := res.Rows[0]
	s := &TemperatureSettings{DeviceID: row.String("device_id")}
	if s.Max, err = row.Float64("max_temperature"); err != nil {
		return nil, err
	}
	if s.Normal, err = row.Float64("normal_temperature"); err != nil {
		return nil, err
	}
	if s.Min, err = row.Float64("min_temperature"); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = row.Time("created_at"); err != nil {
		return nil, err
	}
	return s, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}
