package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yigit/machzor/internal/app/models/dto"
	"github.com/yigit/machzor/internal/pkg/apperrors"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// handleError runs HandleAPIError against a fresh test context and decodes
// the response body.
func handleError(t *testing.T, err error) (int, dto.APIResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	HandleAPIError(c, err)

	var body dto.APIResponse
	decodeErr := json.Unmarshal(rec.Body.Bytes(), &body)
	assert.NoError(t, decodeErr)
	return rec.Code, body
}

func TestHandleAPIErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   dto.ErrorCode
	}{
		{"student not found", apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"import run not found", apperrors.ErrImportRunNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"user not found", apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"invalid credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
		{"expired token", apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
		{"invalid token", apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"revoked token", apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"token not found", apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound},
		{"duplicate id number", apperrors.ErrDuplicateIDNumber, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{"email already exists", apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{"invalid id number", apperrors.ErrInvalidIDNumber, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"invalid cycle", apperrors.ErrInvalidCycle, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"invalid status", apperrors.ErrInvalidStatus, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"studying requires active cycle", apperrors.ErrStudyingInactiveCycle, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"grade on inactive cycle", apperrors.ErrGradeOnInactiveCycle, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"empty roster", apperrors.ErrEmptyRoster, http.StatusBadRequest, dto.ErrorCodeImportFailed},
		{"unsupported roster", apperrors.ErrUnsupportedRoster, http.StatusBadRequest, dto.ErrorCodeImportFailed},
		{"unknown error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := handleError(t, tt.err)

			assert.Equal(t, tt.wantStatus, status)
			if assert.NotNil(t, body.Error) {
				assert.Equal(t, tt.wantCode, body.Error.Code)
				assert.NotEmpty(t, body.Error.Message)
			}
		})
	}
}

func TestHandleAPIErrorWrappedSentinel(t *testing.T) {
	// Services wrap sentinels with row context; the mapping must survive it.
	err := fmt.Errorf("row 3: %w", apperrors.ErrInvalidIDNumber)

	status, body := handleError(t, err)

	assert.Equal(t, http.StatusBadRequest, status)
	if assert.NotNil(t, body.Error) {
		assert.Equal(t, dto.ErrorCodeValidationFailed, body.Error.Code)
		assert.Contains(t, fmt.Sprint(body.Error.Details), "row 3")
	}
}

func TestHandleAPIErrorValidationDetails(t *testing.T) {
	status, body := handleError(t, apperrors.ErrInvalidGender)

	assert.Equal(t, http.StatusBadRequest, status)
	if assert.NotNil(t, body.Error) {
		assert.Equal(t, dto.ErrorCodeValidationFailed, body.Error.Code)
		assert.Equal(t, apperrors.ErrInvalidGender.Error(), body.Error.Details)
	}
}

func TestHandleAPIErrorTimestamp(t *testing.T) {
	before := time.Now()
	_, body := handleError(t, apperrors.ErrStudentNotFound)

	assert.False(t, body.Timestamp.IsZero())
	assert.WithinDuration(t, before, body.Timestamp, 5*time.Second)
}

func TestHandleAPIErrorInternalHidesCause(t *testing.T) {
	_, body := handleError(t, errors.New("pq: deadlock detected"))

	if assert.NotNil(t, body.Error) {
		assert.Equal(t, dto.ErrorCodeInternalServer, body.Error.Code)
		assert.NotContains(t, body.Error.Message, "deadlock")
	}
}
