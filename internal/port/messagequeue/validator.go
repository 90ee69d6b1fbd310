package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Other subjects under the customers
// prefix only need to be valid JSON; anything else is rejected.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target any
	switch {
	case subject == SubjectCustomerCreated:
		var p struct {
			EmployeeID *int64 `json:"employee_id"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.EmployeeID == nil {
			return fmt.Errorf("schema validation failed for %s: employee_id is required", subject)
		}
		target = &CustomerCreatedPayload{}
	case subject == SubjectCustomersReset:
		target = &CustomersResetPayload{}
	case strings.HasPrefix(subject, SubjectPrefix+"."):
		return nil
	default:
		return fmt.Errorf("subject %s is outside the %s stream", subject, SubjectPrefix)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
