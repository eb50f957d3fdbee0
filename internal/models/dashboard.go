package models

type UserFilter struct {
	Search string
	// Role is "customer", "provider" or empty for everyone.
	Role string
}

type StatusCount struct {
	Status BookingStatus `json:"status"`
	Count  int64         `json:"count"`
}

type CategoryCount struct {
	Category Category `json:"category"`
	Count    int64    `json:"count"`
}

type DashboardStats struct {
	TotalUsers         int64           `json:"total_users"`
	TotalCustomers     int64           `json:"total_customers"`
	TotalProviders     int64           `json:"total_providers"`
	TotalServices      int64           `json:"total_services"`
	TotalBookings      int64           `json:"total_bookings"`
	PendingBookings    int64           `json:"pending_bookings"`
	AcceptedBookings   int64           `json:"accepted_bookings"`
	CompletedBookings  int64           `json:"completed_bookings"`
	RecentBookings     []Booking       `json:"recent_bookings"`
	BookingsByStatus   []StatusCount   `json:"bookings_by_status"`
	ServicesByCategory []CategoryCount `json:"services_by_category"`
}
