package entities

type CarRequest struct {
	Brand              string   `json:"brand"`
	Model              string   `json:"model"`
	Year               int      `json:"year"`
	PricePerDay        float64  `json:"price_per_day"`
	Type               string   `json:"type"`
	FuelType           string   `json:"fuel_type"`
	Transmission       string   `json:"transmission"`
	Seats              int      `json:"seats"`
	Images             []string `json:"images"`
	Features           []string `json:"features"`
	Rating             float64  `json:"rating"`
	Status             string   `json:"status"`
	RegistrationNumber string   `json:"registration_number"`
	Description        string   `json:"description"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type BulkDeleteResponse struct {
	Deleted []string `json:"deleted"`
}

type SeedRequest struct {
	Count int `json:"count"`
}
