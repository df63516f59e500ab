package dto

type CreateCourierRequest struct {
	CourierID   string `json:"courier_id" validate:"required,max=64"`
	Name        string `json:"name" validate:"max=120"`
	IsPartner   bool   `json:"is_partner"`
	MaxCapacity int    `json:"max_capacity" validate:"gte=0"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type CourierStatsResponse struct {
	TotalDeliveries    int     `json:"total_deliveries"`
	FailedDeliveries   int     `json:"failed_deliveries"`
	SuccessRate        float64 `json:"success_rate"`
	AvgDeliveryMinutes float64 `json:"avg_delivery_minutes"`
}

type CourierResponse struct {
	CourierID   string               `json:"courier_id"`
	Name        string               `json:"name"`
	IsPartner   bool                 `json:"is_partner"`
	MaxCapacity int                  `json:"max_capacity"`
	IsActive    bool                 `json:"is_active"`
	Stats       CourierStatsResponse `json:"stats"`
}

type ListCouriersResponse struct {
	Couriers []CourierResponse `json:"couriers"`
}
