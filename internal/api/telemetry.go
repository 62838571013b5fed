package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
)

func (s *Server) handleListTemperatureReadings(w http.ResponseWriter, r *http.Request) {
	id, limit, ok := historyParams(w, r)
	if !ok {
		return
	}
	readings, err := s.telemetry.ListTemperatureReadings(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing temperature readings failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to list temperature readings")
		return
	}
	if readings == nil {
		readings = []device.TemperatureReading{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"readings": readings, "count": len(readings)})
}

func (s *Server) handleListFanReadings(w http.ResponseWriter, r *http.Request) {
	id, limit, ok := historyParams(w, r)
	if !ok {
		return
	}
	readings, err := s.telemetry.ListFanReadings(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing fan readings failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to list fan readings")
		return
	}
	if readings == nil {
		readings = []device.FanReading{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"readings": readings, "count": len(readings)})
}

// handleGetTemperatureSettings returns the latest thresholds stored for a
// sensor.
func (s *Server) handleGetTemperatureSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	settings, err := s.telemetry.LatestTemperatureSettings(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "no temperature settings stored for "+id)
			return
		}
		s.logger.Error("loading temperature settings failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to load temperature settings")
		return
	}
	writeOK(w, http.StatusOK, "", settings)
}

func (s *Server) handleListCameraCaptures(w http.ResponseWriter, r *http.Request) {
	id, limit, ok := historyParams(w, r)
	if !ok {
		return
	}
	captures, err := s.telemetry.ListCameraCaptures(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing camera captures failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to list camera captures")
		return
	}
	if captures == nil {
		captures = []device.CameraCapture{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"captures": captures, "count": len(captures)})
}

func historyParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	id := chi.URLParam(r, "id")
	if err := device.ValidateID(id); err != nil {
		writeValidationError(w, err.Error())
		return "", 0, false
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeValidationError(w, err.Error())
		return "", 0, false
	}
	return id, limit, true
}
