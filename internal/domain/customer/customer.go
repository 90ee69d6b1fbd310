// Package customer defines the Customer domain entity.
package customer

// Client-visible messages produced by the customer service.
const (
	MsgNotFound       = "No customer with that id"
	MsgInternal       = "Internal server error"
	MsgCreated        = "Created successfully"
	MsgDuplicateID    = "Database not configured to allow duplicate id's"
	MsgFailedToCreate = "Failed to add new entity"
)

// Customer is the payload stored for each employee.
type Customer struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Address    string `json:"address"`
	EmployeeID int64  `json:"employeeId"`
}

// CreatedResponse is the acknowledgement body returned after a create.
type CreatedResponse struct {
	Message string `json:"message"`
}
