package reports

import "time"

// Report represents an engagement report filed for a client within an
// organization. Rating is a small integer score.
type Report struct {
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateReportRequest represents request to create a report. The report is
// linked to one organization and to the client and creator users.
type CreateReportRequest struct {
	Org    string `json:"org"`
	Client string `json:"client"`
	Report Report `json:"report"`
}

// UpdateReportRequest represents request to update a report
type UpdateReportRequest struct {
	Rating *int    `json:"rating,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}
