package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_KindClassification(t *testing.T) {
	err := E(KindValidation, "order number is required")
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(err, KindNotFound))
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestError_WrappedCauseSurvives(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindStorage, cause, "failed to commit receipt transaction")

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindStorage))
	assert.Contains(t, err.Error(), "failed to commit receipt transaction")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestError_KindSurvivesFurtherWrapping(t *testing.T) {
	inner := E(KindNotFound, "receipt for order ORD1 not found")
	outer := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsKind(outer, KindNotFound))

	var be *Error
	require.ErrorAs(t, outer, &be)
	assert.Equal(t, "receipt for order ORD1 not found", be.Message)
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	assert.False(t, IsKind(errors.New("plain"), KindValidation))
}

func TestErrorKind_Strings(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "invalid_argument", KindInvalidArgument.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "payment_processing", KindPaymentProcessing.String())
	assert.Equal(t, "storage", KindStorage.String())
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "unknown", ErrorKind(0).String())
}
