package messagequeue

import "time"

// CustomerCreatedPayload is the schema for customers.created messages.
type CustomerCreatedPayload struct {
	EmployeeID int64     `json:"employee_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomersResetPayload is the schema for customers.reset messages.
type CustomersResetPayload struct {
	Removed int       `json:"removed"`
	ResetAt time.Time `json:"reset_at"`
}
