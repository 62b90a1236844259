package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchErrorKeepsMessageAndCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := FetchError("HTTP error! status: 500", cause)

	assert.Equal(t, "FETCH_ERROR", err.Code)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Equal(t, "HTTP error! status: 500", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestClonedErrorsMatchByCode(t *testing.T) {
	cloned := Clone(ErrValidation, "term is required")
	wrapped := fmt.Errorf("handler: %w", cloned)

	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}
