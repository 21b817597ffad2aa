package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	wrapped := fmt.Errorf("usecase: %w", UnprocessableError("training diverged").WithError(errors.New("nan")))
	require.NoError(t, AppErrorResponse(c, wrapped))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnprocessableEntity, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_UNPROCESSABLE", body.Data[0].Code)
}

func TestAppErrorResponseUnknownError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type sampleRequest struct {
	Symbol string `query:"symbol" validate:"required"`
	Days   int    `query:"days" default:"5" validate:"gte=1,lte=30"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?symbol=AAPL", nil), httptest.NewRecorder())
	var ok sampleRequest
	assert.Nil(t, ReadAndValidateRequest(c, &ok))
	assert.Equal(t, 5, ok.Days)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?days=40", nil), httptest.NewRecorder())
	var bad sampleRequest
	errs, isList := ReadAndValidateRequest(c, &bad).([]ValidationError)
	require.True(t, isList)
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{"ERR_REQUIRED", "ERR_LTE"}, codes)
}

type symbolRequest struct {
	Symbol string `query:"symbol" validate:"required,symbol"`
}

func TestSymbolValidation(t *testing.T) {
	e := echo.New()
	for _, sym := range []string{"AAPL", "BRK.B", "%5EGSPC", "EUR/USD"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?symbol="+sym, nil), httptest.NewRecorder())
		var req symbolRequest
		assert.Nil(t, ReadAndValidateRequest(c, &req), sym)
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?symbol=a%20b", nil), httptest.NewRecorder())
	var req symbolRequest
	errs, ok := ReadAndValidateRequest(c, &req).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_SYMBOL", errs[0].Code)
	assert.Equal(t, "symbol", errs[0].Field)
	assert.Equal(t, "symbol must be a ticker symbol", errs[0].Message)
}
