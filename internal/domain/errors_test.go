package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := NewError(KindCapacity, "conference.add", "limit of %d endpoints reached", MaxEndpoints)

	assert.ErrorIs(t, err, ErrCapacity)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "conference.add: CapacityError: limit of 100 endpoints reached", err.Error())
	assert.Equal(t, KindCapacity, KindOf(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("missing host")
	err := WrapError(KindValidation, "callSIP", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "missing host")
}

func TestValidateCustomData(t *testing.T) {
	assert.NoError(t, ValidateCustomData("customData", ""))
	assert.NoError(t, ValidateCustomData("customData", strings.Repeat("x", MaxCustomDataLen)))

	err := ValidateCustomData("customData", strings.Repeat("x", MaxCustomDataLen+1))
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, ValidateCustomData("customData", "\xff\xfe"), ErrValidation)
	assert.NoError(t, ValidateCustomData("customData", "заказ №42"))
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "UnsupportedOperationError", KindUnsupported.String())
	assert.Equal(t, "TimeoutError", ErrTimeout.Kind.String())
	assert.Equal(t, CodeUnsupportedConference, ErrUnsupported.Code)
}
