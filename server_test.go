package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/middlewares"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"bitbucket.org/mmdatafocus/realapp_backend/workflow"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func useMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	prev := config.GetDB()
	config.SetDB(gdb)
	t.Cleanup(func() { config.SetDB(prev) })
	return mock
}

func serve(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var bizHeader = map[string]string{middlewares.HeaderBusinessId: "biz-1"}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{pricing.NewValidationError(pricing.ErrNoMilestoneSelected, ""), http.StatusBadRequest},
		{fmt.Errorf("%w name", utils.ErrorDuplicate), http.StatusBadRequest},
		{utils.ErrorInvalidInput, http.StatusBadRequest},
		{utils.ErrorBusinessRequired, http.StatusBadRequest},
		{utils.ErrorRecordNotFound, http.StatusNotFound},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{workflow.ErrIdempotencyInProgress, http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/units/1", nil)

		respondError(c, tc.err)

		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/units/1", nil)

	respondError(c, errors.New("dial tcp 10.0.0.5:3306: connection refused"))

	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), "internal error")
}

func TestReadinessGate(t *testing.T) {
	config.SetDB(nil)
	r := newRouter(config.GetLogger())

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/api/projects", "", bizHeader).Code)
}

func TestRouter_RequiresBusinessHeader(t *testing.T) {
	useMockDB(t)
	r := newRouter(config.GetLogger())

	w := serve(r, http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, w.Header().Get(middlewares.HeaderCorrelationId))
}

func TestRouter_ListProjects(t *testing.T) {
	mock := useMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `projects` WHERE business_id = \\?").
		WithArgs("biz-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "name"}).AddRow(1, "biz-1", "Green Meadows"))
	r := newRouter(config.GetLogger())

	w := serve(r, http.MethodGet, "/api/projects", "", bizHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Green Meadows")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_GetUnitNotFound(t *testing.T) {
	mock := useMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `units`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id"}))
	r := newRouter(config.GetLogger())

	w := serve(r, http.MethodGet, "/api/units/42", "", bizHeader)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_BadRequests(t *testing.T) {
	useMockDB(t)
	r := newRouter(config.GetLogger())

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/units/abc", "", bizHeader).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/blocks?project_id=x", "", bizHeader).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/booking-orders/3/invoices", "{", bizHeader).Code)

	w := serve(r, http.MethodPost, "/api/booking-orders/3/invoices", `{"selected":[10],"mode":"weekly"}`, bizHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), pricing.ErrInvalidInvoiceMode.Error())
}

func TestRouter_UnknownRoute(t *testing.T) {
	useMockDB(t)
	r := newRouter(config.GetLogger())

	w := serve(r, http.MethodGet, "/api/nothing-here", "", bizHeader)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")
}

func TestCorsConfig(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := corsConfig()
	require.NotNil(t, cfg.AllowOriginFunc)
	assert.False(t, cfg.AllowOriginFunc("https://evil.example"))
	assert.NoError(t, cfg.Validate())

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	cfg = corsConfig()
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)

	t.Setenv("GO_ENV", "development")
	cfg = corsConfig()
	assert.True(t, cfg.AllowAllOrigins)
	assert.False(t, cfg.AllowCredentials)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim("  "))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a ,, b ,"))
}
