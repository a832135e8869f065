package entities

type BookingEmailData struct {
	AppName            string
	UserName           string
	BookingID          string
	CarName            string
	StartDateFormatted string
	EndDateFormatted   string
	TotalPrice         string
	Status             string
	Reason             string
	CurrentYear        int
}
