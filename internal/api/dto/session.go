package dto

import "time"

type CreateSessionRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type SessionCreatedResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type ListSessionsResponse struct {
	Sessions []string `json:"sessions"`
}

type DepotRequest struct {
	Address string   `json:"address" validate:"required,max=300"`
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type PointRequest struct {
	PackageID string   `json:"package_id" validate:"required,max=64"`
	Address   string   `json:"address" validate:"max=300"`
	Lat       *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng       *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Priority  string   `json:"priority"`
	StopID    *int     `json:"stop_id" validate:"omitempty,gte=0"`
}

type BatchRequest struct {
	BatchID string         `json:"batch_id" validate:"required,max=64"`
	Points  []PointRequest `json:"points" validate:"required,min=1,dive"`
}

type BatchResponse struct {
	BatchID    string    `json:"batch_id"`
	Points     int       `json:"points"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PlanRequest closes intake (geocoding first) in DRAFT and re-plans in PLANNED.
type PlanRequest struct {
	K                  int   `json:"k" validate:"gte=1,lte=100"`
	EnableStopGrouping *bool `json:"enable_stop_grouping"`
	RandomizedSeeding  bool  `json:"randomized_seeding"`
	Seed               int64 `json:"seed"`
}

type AssignRequest struct {
	CourierID string `json:"courier_id" validate:"required"`
}

type AssignmentResponse struct {
	RouteID   int    `json:"route_id"`
	CourierID string `json:"courier_id"`
}

type AutoAssignResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
}

type DeliveryRequest struct {
	CourierID string `json:"courier_id" validate:"required"`
	PackageID string `json:"package_id" validate:"required"`
}

type FailureRequest struct {
	CourierID string `json:"courier_id" validate:"required"`
	PackageID string `json:"package_id" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=200"`
}
