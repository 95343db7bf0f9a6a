// Package monitor validates incoming order requests against a JSON schema
// before they reach binding, so malformed payloads are rejected with the
// offending fields named.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// orderRequestSchema describes the process-order request body. Business
// rules (positive amount, registered gateway) stay in the billing service;
// the schema only pins the fields it knows about, so clients may send
// extra fields and they are ignored, same as the JSON binder.
const orderRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "OrderRequest",
	"type": "object",
	"required": ["orderNumber", "userId", "payableAmount", "paymentGateway"],
	"properties": {
		"orderNumber":    {"type": "string"},
		"userId":         {"type": "string"},
		"payableAmount":  {"type": ["number", "string"]},
		"paymentGateway": {"type": "string"},
		"description":    {"type": "string"}
	}
}`

// ContractMonitor validates incoming requests against the order schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles the embedded order-request schema.
func NewContractMonitor() (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(orderRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("error compiling order request schema: %w", err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate validates the given request body against the schema.
// It returns true if valid, or false and a list of validation errors.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}

	if result.Valid() {
		return true, nil, nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, errs, nil
}

// FormatErrors formats a slice of validation error strings into a single string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
