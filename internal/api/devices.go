package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/command"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
)

type createDeviceRequest struct {
	Kind     string  `json:"kind" validate:"required"`
	ID       string  `json:"id" validate:"required"`
	UserID   *string `json:"userId" validate:"omitnil,min=1"`
	Location *string `json:"location" validate:"omitnil,min=1"`
}

// deviceView adds the last command sent to a device.
type deviceView struct {
	*device.Device
	Intended *command.IntendedState `json:"intended,omitempty"`
}

// handleListDevices returns every device across kinds, or one kind with
// ?kind=.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var (
		devices []device.Device
		err     error
	)
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, kerr := device.ParseKind(raw)
		if kerr != nil {
			writeValidationError(w, kerr.Error())
			return
		}
		devices, err = s.devices.ListByKind(r.Context(), kind)
	} else {
		devices, err = s.devices.List(r.Context())
	}
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []device.Device{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns one device and the last settings sent to it.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	d, ok := s.lookupDevice(w, r, kind, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view := deviceView{Device: d}
	if st, found := s.commands.LastIntended(kind, d.ID); found {
		view.Intended = &st
	}
	writeOK(w, http.StatusOK, "", view)
}

// handleCreateDevice provisions a device explicitly.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	kind, err := device.ParseKind(req.Kind)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	d := &device.Device{
		Kind:     kind,
		ID:       req.ID,
		Active:   true,
		UserID:   req.UserID,
		Location: req.Location,
	}
	if err := s.devices.Create(r.Context(), d); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceExists):
			writeConflict(w, fmt.Sprintf("%s device %s already exists", kind, req.ID))
		case errors.Is(err, device.ErrInvalidID):
			writeValidationError(w, err.Error())
		default:
			s.logger.Error("creating device failed", "kind", kind, "device_id", req.ID, "error", err)
			writeInternalError(w, "failed to create device")
		}
		return
	}
	writeOK(w, http.StatusCreated, "device created", d)
}

// handleDeleteDevice removes a device and its telemetry.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := s.devices.Delete(r.Context(), kind, id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, fmt.Sprintf("%s device %s not found", kind, id))
			return
		}
		s.logger.Error("deleting device failed", "kind", kind, "device_id", id, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}
	writeOK(w, http.StatusOK, "device deleted", nil)
}

func kindParam(w http.ResponseWriter, r *http.Request) (device.Kind, bool) {
	kind, err := device.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeValidationError(w, err.Error())
		return "", false
	}
	return kind, true
}
