package handlers

import (
	"net/http"

	"last-mile-planner/internal/api/dto"
	"last-mile-planner/internal/session"
)

// Delivery marks do not change the stored plan, so they skip persistence.

func (h *SessionHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	var req dto.DeliveryRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	var res session.DeliveryResult
	err := h.Sessions.View(r.PathValue("id"), func(s *session.Session) error {
		var err error
		res, err = s.MarkDelivered(r.Context(), req.CourierID, req.PackageID)
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *SessionHandler) Fail(w http.ResponseWriter, r *http.Request) {
	var req dto.FailureRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	var res session.DeliveryResult
	err := h.Sessions.View(r.PathValue("id"), func(s *session.Session) error {
		var err error
		res, err = s.MarkFailed(r.Context(), req.CourierID, req.PackageID, req.Reason)
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *SessionHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var res session.ScanResult
	err := h.Sessions.View(r.PathValue("id"), func(s *session.Session) error {
		var err error
		res, err = s.Scan(r.PathValue("barcode"))
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *SessionHandler) Separation(w http.ResponseWriter, r *http.Request) {
	var p session.SeparationProgress
	err := h.Sessions.View(r.PathValue("id"), func(s *session.Session) error {
		var err error
		p, err = s.SeparationProgress()
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	var p session.Progress
	err := h.Sessions.View(r.PathValue("id"), func(s *session.Session) error {
		p = s.Progress()
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}
