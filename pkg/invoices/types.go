package invoices

import "time"

// Invoice represents a billing invoice. Value is in cents.
type Invoice struct {
	ID        string    `json:"id"`
	Paid      bool      `json:"paid"`
	Value     int64     `json:"value"`
	StartAt   time.Time `json:"startAt"`
	EndAt     time.Time `json:"endAt"`
	DueAt     time.Time `json:"dueAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInvoiceRequest represents request to create an invoice. The invoice
// is linked to one organization and to the client and creator users.
type CreateInvoiceRequest struct {
	Org     string  `json:"org"`
	Client  string  `json:"client"`
	Invoice Invoice `json:"invoice"`
}

// UpdateInvoiceRequest represents request to update an invoice
type UpdateInvoiceRequest struct {
	Paid    *bool      `json:"paid,omitempty"`
	Value   *int64     `json:"value,omitempty"`
	StartAt *time.Time `json:"startAt,omitempty"`
	EndAt   *time.Time `json:"endAt,omitempty"`
	DueAt   *time.Time `json:"dueAt,omitempty"`
}
