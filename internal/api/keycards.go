package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/keycard"
)

type keycardRequest struct {
	RFIDTag   string     `json:"rfidTag" validate:"required,max=64"`
	UserID    string     `json:"userId" validate:"required"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (s *Server) handleListKeycards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.keycards.List(r.Context())
	if err != nil {
		s.logger.Error("listing keycards failed", "error", err)
		writeInternalError(w, "failed to list keycards")
		return
	}
	if cards == nil {
		cards = []keycard.Keycard{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"keycards": cards, "count": len(cards)})
}

func (s *Server) handleGetKeycard(w http.ResponseWriter, r *http.Request) {
	id, ok := keycardID(w, r)
	if !ok {
		return
	}
	card, err := s.keycards.Get(r.Context(), id)
	if err != nil {
		s.writeKeycardError(w, err, "failed to load keycard")
		return
	}
	writeOK(w, http.StatusOK, "", card)
}

func (s *Server) handleCreateKeycard(w http.ResponseWriter, r *http.Request) {
	var req keycardRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	card := &keycard.Keycard{
		RFIDTag:   req.RFIDTag,
		UserID:    req.UserID,
		Status:    req.Status,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.keycards.Create(r.Context(), card); err != nil {
		s.writeKeycardError(w, err, "failed to create keycard")
		return
	}
	writeOK(w, http.StatusCreated, "keycard created", card)
}

// handleUpdateKeycard replaces a keycard's tag, owner, status and expiry.
// The issue date is kept.
func (s *Server) handleUpdateKeycard(w http.ResponseWriter, r *http.Request) {
	id, ok := keycardID(w, r)
	if !ok {
		return
	}
	var req keycardRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	card, err := s.keycards.Get(r.Context(), id)
	if err != nil {
		s.writeKeycardError(w, err, "failed to load keycard")
		return
	}
	card.RFIDTag = req.RFIDTag
	card.UserID = req.UserID
	card.Status = req.Status
	card.ExpiresAt = req.ExpiresAt

	if err := s.keycards.Update(r.Context(), card); err != nil {
		s.writeKeycardError(w, err, "failed to update keycard")
		return
	}
	writeOK(w, http.StatusOK, "keycard updated", card)
}

func (s *Server) handleDeleteKeycard(w http.ResponseWriter, r *http.Request) {
	id, ok := keycardID(w, r)
	if !ok {
		return
	}
	if err := s.keycards.Delete(r.Context(), id); err != nil {
		s.writeKeycardError(w, err, "failed to delete keycard")
		return
	}
	writeOK(w, http.StatusOK, "keycard deleted", nil)
}

func (s *Server) handleListKeycardStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.keycards.ListStatuses(r.Context())
	if err != nil {
		s.logger.Error("listing keycard statuses failed", "error", err)
		writeInternalError(w, "failed to list statuses")
		return
	}
	writeOK(w, http.StatusOK, "", statuses)
}

// handleListAccessLog returns access decisions newest first.
func (s *Server) handleListAccessLog(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	entries, err := s.keycards.ListAccessLog(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing access log failed", "error", err)
		writeInternalError(w, "failed to list access log")
		return
	}
	if entries == nil {
		entries = []keycard.AccessLogEntry{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"entries": entries, "count": len(entries)})
}

func (s *Server) writeKeycardError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, keycard.ErrKeycardNotFound):
		writeNotFound(w, "keycard not found")
	case errors.Is(err, keycard.ErrTagExists):
		writeConflict(w, err.Error())
	case errors.Is(err, keycard.ErrStatusNotFound),
		errors.Is(err, keycard.ErrInvalidTag),
		errors.Is(err, keycard.ErrInvalidUser),
		errors.Is(err, keycard.ErrInvalidExpiry):
		writeValidationError(w, err.Error())
	default:
		s.logger.Error(fallback, "error", err)
		writeInternalError(w, fallback)
	}
}

func keycardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "keycard id must be a positive integer")
		return 0, false
	}
	return id, true
}
