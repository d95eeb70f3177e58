package models

// Registrant is one submitted identity plus profession. Profession is free
// text and may hold several comma-separated values.
type Registrant struct {
	Name       string
	Surname    string
	Phone      string
	Email      string
	Profession string
}

// ProfessionCount is one row of the frequency report.
type ProfessionCount struct {
	Profession string
	Count      int
}
