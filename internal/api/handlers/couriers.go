package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"last-mile-planner/internal/api/dto"
	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/session"
)

type CourierHandler struct {
	Registry  *session.CourierRegistry
	Validator *validator.Validate
}

func courierResponse(c domain.Courier) dto.CourierResponse {
	return dto.CourierResponse{
		CourierID:   c.ID,
		Name:        c.Name,
		IsPartner:   c.IsPartner,
		MaxCapacity: c.MaxCapacity,
		IsActive:    c.IsActive,
		Stats: dto.CourierStatsResponse{
			TotalDeliveries:    c.Stats.TotalDeliveries,
			FailedDeliveries:   c.Stats.FailedDeliveries,
			SuccessRate:        c.Stats.SuccessRate,
			AvgDeliveryMinutes: c.Stats.AvgDeliveryMinutes,
		},
	}
}

func (h *CourierHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.Registry.List()
	res := dto.ListCouriersResponse{Couriers: make([]dto.CourierResponse, 0, len(list))}
	for _, c := range list {
		res.Couriers = append(res.Couriers, courierResponse(c))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *CourierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCourierRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	c, err := domain.NewCourier(req.CourierID, req.Name, req.IsPartner, req.MaxCapacity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Registry.Add(c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, courierResponse(c))
}

func (h *CourierHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req dto.SetActiveRequest
	if !decode(w, r, h.Validator, &req) {
		return
	}

	id := r.PathValue("id")
	if err := h.Registry.SetActive(id, *req.Active); err != nil {
		writeDomainError(w, r, err)
		return
	}
	c, err := h.Registry.Get(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, courierResponse(c))
}
