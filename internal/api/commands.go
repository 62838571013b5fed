package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/command"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/mqtt"
)

type lockCommandRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
	IsLocked *bool  `json:"isLocked" validate:"required"`
}

type thresholdCommandRequest struct {
	DeviceID          string   `json:"deviceId" validate:"required"`
	MaxTemperature    *float64 `json:"maxTemperature" validate:"required"`
	NormalTemperature *float64 `json:"normalTemperature" validate:"required"`
	MinTemperature    *float64 `json:"minTemperature" validate:"required"`
}

type fanCommandRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
	FanMode  string `json:"fanMode" validate:"required"`
}

type assignCommandRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	Location string `json:"location" validate:"required"`
}

// handleLockCommand locks or unlocks a door: POST /keycards/rfid.
func (s *Server) handleLockCommand(w http.ResponseWriter, r *http.Request) {
	var req lockCommandRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	target, ok := s.commandTarget(w, r, device.KindRFID, req.DeviceID)
	if !ok {
		return
	}

	locked := *req.IsLocked
	err := command.DualWrite(r.Context(),
		func(ctx context.Context) error {
			return s.commands.PublishLock(target, command.LockState{IsLocked: locked}).Wait(ctx)
		},
		func(ctx context.Context) error {
			return s.devices.SetLocked(ctx, req.DeviceID, locked)
		},
	)
	s.writeCommandResult(w, r, err, "lock state sent", map[string]any{
		"deviceId": req.DeviceID,
		"isLocked": locked,
	})
}

// handleThresholdCommand sends temperature thresholds:
// POST /temperature/device/setting.
func (s *Server) handleThresholdCommand(w http.ResponseWriter, r *http.Request) {
	var req thresholdCommandRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	settings := device.TemperatureSettings{
		DeviceID: req.DeviceID,
		Max:      *req.MaxTemperature,
		Normal:   *req.NormalTemperature,
		Min:      *req.MinTemperature,
	}
	if err := settings.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	target, ok := s.commandTarget(w, r, device.KindTemperature, req.DeviceID)
	if !ok {
		return
	}

	thresholds := command.TemperatureThresholds{
		MaxTemperature:    settings.Max,
		NormalTemperature: settings.Normal,
		MinTemperature:    settings.Min,
	}
	err := command.DualWrite(r.Context(),
		func(ctx context.Context) error {
			return s.commands.PublishThresholds(target, thresholds).Wait(ctx)
		},
		func(ctx context.Context) error {
			return s.telemetry.AddTemperatureSettings(ctx, settings)
		},
	)
	s.writeCommandResult(w, r, err, "temperature settings sent", thresholds)
}

// handleFanCommand sets a fan's mode: POST /temperature/fan.
func (s *Server) handleFanCommand(w http.ResponseWriter, r *http.Request) {
	var req fanCommandRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if _, err := device.ParseFanMode(req.FanMode); err != nil {
		writeValidationError(w, "fanMode: must be on, off or auto")
		return
	}

	d, ok := s.lookupDevice(w, r, device.KindFan, req.DeviceID)
	if !ok {
		return
	}
	target, ok := targetFor(w, d)
	if !ok {
		return
	}

	// The stored speed survives a mode change.
	var speed *int
	if d.Fan != nil {
		speed = &d.Fan.Speed
	}
	state, err := device.NormalizeFanState(req.FanMode, speed)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	err = command.DualWrite(r.Context(),
		func(ctx context.Context) error {
			return s.commands.PublishFan(target, command.FanSettings{FanMode: string(state.Mode)}).Wait(ctx)
		},
		func(ctx context.Context) error {
			return s.devices.SetFanState(ctx, req.DeviceID, state)
		},
	)
	s.writeCommandResult(w, r, err, "fan mode sent", state)
}

// handleAssignCommand assigns an RFID scanner to an owner and location:
// POST /keycards/rfid/assign.
func (s *Server) handleAssignCommand(w http.ResponseWriter, r *http.Request) {
	var req assignCommandRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := mqtt.ValidateLevel(req.UserID); err != nil {
		writeValidationError(w, "userId: "+err.Error())
		return
	}
	if err := mqtt.ValidateLevel(req.Location); err != nil {
		writeValidationError(w, "location: "+err.Error())
		return
	}

	if _, ok := s.lookupDevice(w, r, device.KindRFID, req.DeviceID); !ok {
		return
	}

	assignment := command.Assignment{UserID: req.UserID, Location: req.Location}
	err := command.DualWrite(r.Context(),
		func(ctx context.Context) error {
			return s.commands.PublishAssignment(req.DeviceID, assignment).Wait(ctx)
		},
		func(ctx context.Context) error {
			return s.devices.Assign(ctx, device.KindRFID, req.DeviceID, req.UserID, req.Location)
		},
	)
	s.writeCommandResult(w, r, err, "assignment sent", assignment)
}

// commandTarget resolves the topic address of an assigned device.
func (s *Server) commandTarget(w http.ResponseWriter, r *http.Request, kind device.Kind, id string) (command.Target, bool) {
	d, ok := s.lookupDevice(w, r, kind, id)
	if !ok {
		return command.Target{}, false
	}
	return targetFor(w, d)
}

func targetFor(w http.ResponseWriter, d *device.Device) (command.Target, bool) {
	if !d.Assigned() {
		writeConflict(w, fmt.Sprintf("%s device %s has no owner and location", d.Kind, d.ID))
		return command.Target{}, false
	}
	return command.Target{UserID: *d.UserID, Location: *d.Location, DeviceID: d.ID}, true
}

// lookupDevice loads a device, writing 400/404/500 on failure.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request, kind device.Kind, id string) (*device.Device, bool) {
	if err := device.ValidateID(id); err != nil {
		writeValidationError(w, err.Error())
		return nil, false
	}
	d, err := s.devices.Get(r.Context(), kind, id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, fmt.Sprintf("%s device %s not found", kind, id))
			return nil, false
		}
		s.logger.Error("device lookup failed", "kind", kind, "device_id", id, "error", err)
		writeInternalError(w, "failed to load device")
		return nil, false
	}
	return d, true
}

// writeCommandResult answers a dual-write command. A partial failure names
// the side that failed; the other side is not rolled back.
func (s *Server) writeCommandResult(w http.ResponseWriter, r *http.Request, err error, message string, data any) {
	if err == nil {
		writeOK(w, http.StatusOK, message, data)
		return
	}

	var dw *command.DualWriteError
	if !errors.As(err, &dw) {
		s.logger.Error("command failed", "path", r.URL.Path, "error", err)
		writeInternalError(w, "command failed")
		return
	}

	s.logger.Error("command partially failed",
		"path", r.URL.Path,
		"publish_error", dw.Publish,
		"store_error", dw.Store,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	switch {
	case dw.Publish != nil && dw.Store != nil:
		writeInternalError(w, "publish and storage both failed")
	case dw.Publish != nil:
		writeInternalError(w, "publish failed; settings were stored")
	default:
		writeInternalError(w, "storage failed; settings were published")
	}
}
