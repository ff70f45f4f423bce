package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(BadRequest("x")))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(fmt.Errorf("wrap: %w", Unauthorized("x"))))
	assert.Equal(t, http.StatusForbidden, StatusOf(Forbidden("x")))
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound("x")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestWithDetailsCopies(t *testing.T) {
	base := BadRequest("duplicate location")
	withD := base.WithDetails(map[string]any{"postId": 7})
	assert.Nil(t, base.Details)
	assert.Equal(t, "duplicate location", withD.Error())
	assert.NotNil(t, withD.Details)
}
