package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractMonitor_ValidBody(t *testing.T) {
	cm, err := NewContractMonitor()
	require.NoError(t, err)

	valid, errs, err := cm.Validate([]byte(`{
		"orderNumber": "ORD1",
		"userId": "U1",
		"payableAmount": 100.00,
		"paymentGateway": "Stripe",
		"description": "widgets"
	}`))
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, errs)
}

func TestContractMonitor_AmountAsString(t *testing.T) {
	cm, err := NewContractMonitor()
	require.NoError(t, err)

	valid, _, err := cm.Validate([]byte(`{
		"orderNumber": "ORD1",
		"userId": "U1",
		"payableAmount": "100.00",
		"paymentGateway": "Stripe"
	}`))
	require.NoError(t, err)
	assert.True(t, valid, "decimal amounts may arrive as JSON strings")
}

func TestContractMonitor_MissingRequiredFields(t *testing.T) {
	cm, err := NewContractMonitor()
	require.NoError(t, err)

	valid, errs, err := cm.Validate([]byte(`{"orderNumber": "ORD1"}`))
	require.NoError(t, err)
	assert.False(t, valid)
	assert.NotEmpty(t, errs)

	combined := FormatErrors(errs)
	assert.Contains(t, combined, "userId")
	assert.Contains(t, combined, "payableAmount")
	assert.Contains(t, combined, "paymentGateway")
}

func TestContractMonitor_UnknownFieldIgnored(t *testing.T) {
	cm, err := NewContractMonitor()
	require.NoError(t, err)

	valid, errs, err := cm.Validate([]byte(`{
		"orderNumber": "ORD1",
		"userId": "U1",
		"payableAmount": 10,
		"paymentGateway": "Stripe",
		"surprise": true
	}`))
	require.NoError(t, err)
	assert.True(t, valid, "unknown fields are tolerated, same as the JSON binder")
	assert.Empty(t, errs)
}

func TestContractMonitor_MalformedJSON(t *testing.T) {
	cm, err := NewContractMonitor()
	require.NoError(t, err)

	_, _, err = cm.Validate([]byte(`{not json`))
	assert.Error(t, err)
}

func TestFormatErrors_Empty(t *testing.T) {
	assert.Equal(t, "", FormatErrors(nil))
}
