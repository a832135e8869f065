package entities

import "carrental/internal/db"

type DashboardStats struct {
	TotalCars      int          `json:"total_cars"`
	TotalCustomers int          `json:"total_customers"`
	ActiveBookings int          `json:"active_bookings"`
	TotalRevenue   float64      `json:"total_revenue"`
	RecentBookings []db.Booking `json:"recent_bookings"`
	RecentCars     []db.Car     `json:"recent_cars"`
}

type MonthlyRevenue struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type Report struct {
	Revenue  []MonthlyRevenue `json:"revenue"`
	Bookings []StatusCount    `json:"bookings"`
}
