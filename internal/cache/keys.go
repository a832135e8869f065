package cache

const (
	AdminCars       = "admin-cars"
	PublicCars      = "public-cars"
	FeaturedCars    = "featured-cars"
	AdminBookings   = "admin-bookings"
	AdminUsers      = "admin-users"
	AdminDashboard  = "admin-dashboard"
	ReportsRevenue  = "admin-reports-revenue"
	ReportsBookings = "admin-reports-bookings"
)

func Car(id string) string            { return "car:" + id }
func MyBookings(userID string) string { return "my-bookings:" + userID }
func Profile(userID string) string    { return "profile:" + userID }
func OAuthState(state string) string  { return "oauth-state:" + state }

// FleetKeys are the lists that show cars.
func FleetKeys(carIDs ...string) []string {
	keys := []string{AdminCars, PublicCars, FeaturedCars, AdminDashboard}
	for _, id := range carIDs {
		keys = append(keys, Car(id))
	}
	return keys
}

// BookingKeys are the lists that show bookings of the given users.
func BookingKeys(userIDs ...string) []string {
	keys := []string{AdminBookings, AdminDashboard, ReportsBookings}
	for _, id := range userIDs {
		keys = append(keys, MyBookings(id))
	}
	return keys
}
