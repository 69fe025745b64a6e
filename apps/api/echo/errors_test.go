package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/apps/shared"
	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/messaging"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
)

type recordingLogger struct {
	errors []string
	args   [][]interface{}
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}
func (l *recordingLogger) Error(msg string, args ...interface{}) {
	l.errors = append(l.errors, msg)
	l.args = append(l.args, args)
}

func TestResolveError(t *testing.T) {
	translator := shared.NewTranslator()
	validate := shared.NewValidator(translator)
	vErr := (&property.NewProperty{Name: "Maple", Type: "castle", Address: "1 Main St", City: "Austin"}).Validate(validate)
	require.Error(t, vErr)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
	}{
		{
			name:     "http error",
			err:      errHttpForbidden,
			wantCode: http.StatusForbidden,
			wantBody: "permission denied",
		},
		{
			name:     "wrapped internal http error",
			err:      errors.Wrap(echo.NewHTTPError(http.StatusBadRequest).SetInternal(errRefreshExpired), "refreshing"),
			wantCode: http.StatusForbidden,
			wantBody: "refresh has expired",
		},
		{
			name:     "struct validation",
			err:      vErr,
			wantCode: http.StatusBadRequest,
			wantBody: map[string]string{"type": "must be one of: residential, commercial, mixed"},
		},
		{
			name:     "field error",
			err:      core.NewFieldError("period", "must be a period of the form YYYY-MM"),
			wantCode: http.StatusBadRequest,
			wantBody: map[string]string{"period": "must be a period of the form YYYY-MM"},
		},
		{
			name:     "validation without fields",
			err:      core.NewValidationError(tenant.ErrUnitNotVacant),
			wantCode: http.StatusBadRequest,
			wantBody: "the unit is not vacant",
		},
		{
			name:     "not found",
			err:      errors.Wrap(tenant.ErrNotFound, "getting tenant"),
			wantCode: http.StatusNotFound,
			wantBody: tenant.ErrNotFound.Error(),
		},
		{
			name:     "not a participant",
			err:      errors.Wrap(messaging.ErrNotParticipant, "posting message"),
			wantCode: http.StatusForbidden,
			wantBody: messaging.ErrNotParticipant.Error(),
		},
		{
			name:     "bad period",
			err:      core.ErrInvalidPeriod,
			wantCode: http.StatusBadRequest,
			wantBody: core.ErrInvalidPeriod.Error(),
		},
		{
			name:     "anything else",
			err:      errors.New("connection reset"),
			wantCode: http.StatusInternalServerError,
			wantBody: "Internal Server Error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolveError(tt.err, translator)
			assert.Equal(t, tt.wantCode, res.code)
			assert.Equal(t, tt.wantBody, res.body)
		})
	}
}

func TestAppHTTPErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	shutdowns := 0
	handler := newAppHTTPErrorHandler(logger, shared.NewTranslator(), func() { shutdowns++ })
	e := echo.New()

	serve := func(method string, err error) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler(err, e.NewContext(httptest.NewRequest(method, "/api/v1/tenants", nil), rec))
		return rec
	}

	rec := serve(http.MethodGet, tenant.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "`+tenant.ErrNotFound.Error()+`"}`, rec.Body.String())
	assert.Empty(t, logger.errors, "client errors are not reported")

	rec = serve(http.MethodGet, errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Internal Server Error"}`, rec.Body.String())
	require.Len(t, logger.errors, 1)
	var extras map[string]interface{}
	for _, arg := range logger.args[0] {
		if m, ok := arg.(map[string]interface{}); ok {
			extras = m
		}
	}
	assert.Equal(t, http.MethodGet, extras["method"])
	assert.Equal(t, "/api/v1/tenants", extras["uri"])
	assert.Zero(t, shutdowns)

	rec = serve(http.MethodHead, core.NewShutdownError("integrity check failed"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 1, shutdowns)

	e.Debug = true
	rec = serve(http.MethodPost, errors.New("disk full"))
	assert.JSONEq(t, `{"error": "disk full"}`, rec.Body.String())
}
