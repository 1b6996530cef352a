package models

// CarAvailable is the only car status that accepts new test drives.
const CarAvailable = "available"

// Car is the minimal catalog view needed by booking intake.
type Car struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	Price  int64  `json:"price"`
	Status string `json:"status"`
}
