package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrForbidden, "You are not authorized to login to PVP College!")

	assert.True(t, errors.Is(cloned, ErrForbidden))
	assert.False(t, errors.Is(cloned, ErrNotFound))
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}

func TestWithRedirectDoesNotMutateSentinel(t *testing.T) {
	redirected := WithRedirect(ErrAuthRequired, "/")

	assert.Equal(t, "/", redirected.Redirect)
	assert.Empty(t, ErrAuthRequired.Redirect)
	assert.True(t, errors.Is(fmt.Errorf("gate: %w", redirected), ErrAuthRequired))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
	assert.Nil(t, FromError(nil))
}
