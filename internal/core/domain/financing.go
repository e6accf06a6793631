package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// InvoiceStatus is a custom type for our invoice status ENUM
type InvoiceStatus string

const (
	InvoiceAvailable InvoiceStatus = "available" // Available for financing
	InvoiceFinanced  InvoiceStatus = "financed"
)

// EntityID is an entity identifier. It accepts both JSON numbers and
// strings, since callers send `{ "invoiceId": 1 }`.
type EntityID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entity id must be a string or number: %w", err)
	}
	*id = EntityID(n.String())
	return nil
}

func (id EntityID) String() string { return string(id) }

// FinancingRequest is the payload carried by every event of the financing job.
type FinancingRequest struct {
	InvoiceID EntityID `json:"invoiceId" validate:"required"`
}

var validate = validator.New()

// ParseFinancingRequest decodes and validates an event payload.
func ParseFinancingRequest(payload string) (*FinancingRequest, error) {
	var req FinancingRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &req, nil
}
