package gatewayerrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := errors.New("socket closed")
	err := gatewayerrors.Wrap(gatewayerrors.TypeInitialization, "session start failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[INITIALIZATION] session start failed: socket closed", err.Error())
}

func TestTypeOfSurvivesWrapping(t *testing.T) {
	inner := gatewayerrors.New(gatewayerrors.TypeNotConnected, "transport down")
	outer := fmt.Errorf("send text: %w", inner)

	assert.Equal(t, gatewayerrors.TypeNotConnected, gatewayerrors.TypeOf(outer))
	assert.True(t, gatewayerrors.IsNotConnected(outer))
	assert.False(t, gatewayerrors.IsNotFound(outer))
}

func TestTypeOfUntypedError(t *testing.T) {
	assert.Equal(t, gatewayerrors.TypeInternal, gatewayerrors.TypeOf(errors.New("boom")))
}

func TestTypeToHTTPStatus(t *testing.T) {
	tests := []struct {
		errType gatewayerrors.Type
		want    int
	}{
		{gatewayerrors.TypeNotFound, http.StatusNotFound},
		{gatewayerrors.TypeNotConnected, http.StatusConflict},
		{gatewayerrors.TypeConflict, http.StatusConflict},
		{gatewayerrors.TypeValidation, http.StatusBadRequest},
		{gatewayerrors.TypeInitialization, http.StatusBadGateway},
		{gatewayerrors.TypeInternal, http.StatusInternalServerError},
		{gatewayerrors.Type("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gatewayerrors.TypeToHTTPStatus(tt.errType), string(tt.errType))
	}
}
