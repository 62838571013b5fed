package telemetry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
)

// Temperature appends a reading from {userId}/temperatur/{location}/{deviceId}.
// A reading of 0 is valid; only an absent or non-numeric field is rejected.
func (h *Handlers) Temperature(ctx context.Context, t string, payload []byte) error {
	dt, err := deviceTopic(t)
	if err != nil {
		return err
	}

	var p temperaturePayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.Temperature == nil {
		return fmt.Errorf("%w: temperatur", ErrMissingField)
	}

	now := h.now()
	if _, err := h.readings.AppendTemperature(ctx, device.TemperatureReading{
		DeviceID:   dt.DeviceID,
		Celsius:    *p.Temperature,
		RecordedAt: now,
	}); err != nil {
		return fmt.Errorf("storing temperature: %w", err)
	}

	h.recorder.WriteTemperature(dt.DeviceID, dt.Location, *p.Temperature, now)
	h.notifier.Broadcast(ChannelTemperature, TemperatureEvent{
		UserID:     dt.UserID,
		Location:   dt.Location,
		DeviceID:   dt.DeviceID,
		Celsius:    *p.Temperature,
		RecordedAt: now,
	})
	return nil
}

// FanState records a fan report from
// {userId}/temperatur/{location}/{deviceId}/fanState, where deviceId is
// the fan's id. The mode decides the stored on-flag and speed; an unknown
// mode drops the message. The reading is appended and the device's current
// fan state updated as separate steps.
func (h *Handlers) FanState(ctx context.Context, t string, payload []byte) error {
	dt, err := deviceTopic(t)
	if err != nil {
		return err
	}

	var p fanPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.FanOn == nil && p.FanSpeed == nil && p.FanMode == nil {
		return fmt.Errorf("%w: one of fanOn, fanSpeed, fanMode", ErrMissingField)
	}
	if p.FanMode == nil {
		return fmt.Errorf("%w: fanMode absent", ErrInvalidFanMode)
	}

	state, err := device.NormalizeFanState(*p.FanMode, p.FanSpeed)
	if errors.Is(err, device.ErrInvalidFanSpeed) {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFanMode, err)
	}

	now := h.now()
	var errs []error
	if _, err := h.readings.AppendFanReading(ctx, device.FanReading{
		DeviceID:   dt.DeviceID,
		State:      state,
		RecordedAt: now,
	}); err != nil {
		errs = append(errs, fmt.Errorf("storing fan reading: %w", err))
	}
	if err := h.devices.SetFanState(ctx, dt.DeviceID, state); err != nil {
		errs = append(errs, fmt.Errorf("updating fan state: %w", err))
	}

	h.recorder.WriteFanState(dt.DeviceID, dt.Location, state, now)
	h.notifier.Broadcast(ChannelFan, FanEvent{
		UserID:     dt.UserID,
		Location:   dt.Location,
		DeviceID:   dt.DeviceID,
		State:      state,
		RecordedAt: now,
	})
	return errors.Join(errs...)
}

// CameraAlert stores a motion capture from
// {userId}/camera/{location}/{deviceId}/alert. The image is base64 and
// required; the timestamp is optional RFC 3339 and defaults to receipt
// time.
func (h *Handlers) CameraAlert(ctx context.Context, t string, payload []byte) error {
	dt, err := deviceTopic(t)
	if err != nil {
		return err
	}

	var p cameraPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.Image == nil || *p.Image == "" {
		return fmt.Errorf("%w: image", ErrMissingField)
	}
	img, err := base64.StdEncoding.DecodeString(*p.Image)
	if err != nil {
		return fmt.Errorf("%w: image: %v", ErrMalformedPayload, err)
	}
	if len(img) == 0 {
		return fmt.Errorf("%w: image", ErrMissingField)
	}

	at := h.now()
	if p.Timestamp != nil && *p.Timestamp != "" {
		if at, err = time.Parse(time.RFC3339, *p.Timestamp); err != nil {
			return fmt.Errorf("%w: timestamp: %v", ErrMalformedPayload, err)
		}
	}

	id, err := h.readings.AppendCameraCapture(ctx, device.CameraCapture{
		DeviceID:   dt.DeviceID,
		Image:      img,
		CapturedAt: at,
	})
	if err != nil {
		return fmt.Errorf("storing camera capture: %w", err)
	}

	h.notifier.Broadcast(ChannelCapture, CaptureEvent{
		UserID:     dt.UserID,
		Location:   dt.Location,
		DeviceID:   dt.DeviceID,
		CaptureID:  id,
		Bytes:      len(img),
		CapturedAt: at,
	})
	return nil
}
