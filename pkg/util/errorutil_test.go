package util_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, apperrors.ToDomainError(nil))
	})

	t.Run("domain error preserved through wrapping", func(t *testing.T) {
		original := apperrors.NewConflict("taken", nil)
		wrapped := fmt.Errorf("creating role: %w", original)
		domainErr := apperrors.ToDomainError(wrapped)
		require.NotNil(t, domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
		assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
	})

	t.Run("no rows becomes not found", func(t *testing.T) {
		domainErr := apperrors.ToDomainError(pgx.ErrNoRows)
		require.NotNil(t, domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		domainErr := apperrors.ToDomainError(errors.New("boom"))
		require.NotNil(t, domainErr)
		assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
		assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)
	})
}

func TestConstraintHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	foreign := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})

	assert.True(t, apperrors.IsUniqueViolation(unique))
	assert.False(t, apperrors.IsUniqueViolation(foreign))
	assert.True(t, apperrors.IsForeignKeyViolation(foreign))
	assert.False(t, apperrors.IsForeignKeyViolation(errors.New("boom")))
}

func TestCredentialErrorsShareStatusAndMessage(t *testing.T) {
	unknown := apperrors.ToDomainError(apperrors.NewInvalidCredentials())
	wrong := apperrors.ToDomainError(apperrors.NewInvalidCredentials())

	assert.Equal(t, unknown.Message, wrong.Message)
	assert.Equal(t, http.StatusUnauthorized, unknown.HTTPStatus)
}
