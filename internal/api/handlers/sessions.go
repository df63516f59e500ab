package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"last-mile-planner/internal/api/dto"
	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/ports"
	"last-mile-planner/internal/session"
)

type SessionHandler struct {
	Sessions  *session.Manager
	Live      ports.EventStream
	Validator *validator.Validate
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSessionRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, domain.CodeInvalidArgument, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	id, err := h.Sessions.Create(req.SessionID, date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.SessionCreatedResponse{SessionID: id, State: domain.StateDraft.String()})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.ListSessionsResponse{Sessions: h.Sessions.IDs()})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Sessions.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ps)
}

func (h *SessionHandler) SetDepot(w http.ResponseWriter, r *http.Request) {
	var req dto.DepotRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	var ps session.PlannedSession
	err := h.Sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		if err := s.SetDepot(r.Context(), req.Address, *req.Lat, *req.Lng); err != nil {
			return err
		}
		ps = s.Snapshot()
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ps)
}

func (h *SessionHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	in := domain.ImportedBatch{BatchID: req.BatchID, Points: make([]domain.PointInput, 0, len(req.Points))}
	for _, p := range req.Points {
		in.Points = append(in.Points, domain.PointInput{
			PackageID: p.PackageID,
			Address:   p.Address,
			Lat:       p.Lat,
			Lng:       p.Lng,
			Priority:  p.Priority,
			StopID:    p.StopID,
		})
	}

	var b domain.Batch
	err := h.Sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		var err error
		b, err = s.AddBatch(r.Context(), in)
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.BatchResponse{BatchID: b.ID, Points: len(b.Points), UploadedAt: b.UploadedAt})
}

func (h *SessionHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	var report session.GeocodeReport
	err := h.Sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		var err error
		report, err = s.Geocode(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// Plan closes intake on a DRAFT session and re-plans a PLANNED one.
func (h *SessionHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	opts := session.DefaultPlanOptions(req.K)
	if req.EnableStopGrouping != nil {
		opts.EnableStopGrouping = *req.EnableStopGrouping
	}
	opts.RandomizedSeeding = req.RandomizedSeeding
	opts.Seed = req.Seed

	var ps session.PlannedSession
	err := h.Sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		var err error
		if s.State() == domain.StateDraft {
			err = s.CloseIntake(r.Context(), opts)
		} else {
			err = s.Plan(r.Context(), opts)
		}
		if err != nil {
			return err
		}
		ps = s.Snapshot()
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ps)
}

func (h *SessionHandler) Assign(w http.ResponseWriter, r *http.Request) {
	routeID, err := strconv.Atoi(r.PathValue("route"))
	if err != nil || routeID < 1 {
		writeError(w, r, http.StatusBadRequest, domain.CodeInvalidArgument, "route must be a positive integer")
		return
	}
	var req dto.AssignRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	var ps session.PlannedSession
	err = h.Sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		if err := s.Assign(r.Context(), routeID, req.CourierID); err != nil {
			return err
		}
		ps = s.Snapshot()
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ps)
}

func (h *SessionHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	res := dto.AutoAssignResponse{Assignments: []dto.AssignmentResponse{}}
	err := h.Sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		plan, err := s.AutoAssign(r.Context())
		if err != nil {
			return err
		}
		for _, a := range plan {
			res.Assignments = append(res.Assignments, dto.AssignmentResponse{RouteID: a.RouteID, CourierID: a.CourierID})
		}
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	var p session.Progress
	err := h.Sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		if err := s.Close(r.Context()); err != nil {
			return err
		}
		p = s.Progress()
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}
