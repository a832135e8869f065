package filter

import "carrental/internal/db"

type Bookings struct {
	Search string
	Status string
}

// Apply matches Search against the booking id, the customer's name and the car model.
func (f Bookings) Apply(bookings []db.Booking) []db.Booking {
	return Apply(bookings,
		Search(f.Search,
			func(b db.Booking) string { return b.ID },
			func(b db.Booking) string {
				if b.User == nil {
					return ""
				}
				return b.User.FullName
			},
			func(b db.Booking) string {
				if b.Car == nil {
					return ""
				}
				return b.Car.Model
			},
		),
		Equal(f.Status, func(b db.Booking) string { return b.Status }),
	)
}

type Users struct {
	Search string
	Role   string
}

func (f Users) Apply(profiles []db.Profile) []db.Profile {
	return Apply(profiles,
		Search(f.Search,
			func(p db.Profile) string { return p.FullName },
			func(p db.Profile) string { return p.Email },
		),
		Equal(f.Role, func(p db.Profile) string { return p.Role }),
	)
}
