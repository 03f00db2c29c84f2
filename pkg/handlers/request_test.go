package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func decodeInto(dst any, body string) (*httptest.ResponseRecorder, bool) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	return rec, decodeRequest(rec, req, dst, zap.NewNop())
}

func TestDecodeRequest_Valid(t *testing.T) {
	var req CreateProjectRequest
	_, ok := decodeInto(&req, `{"name":"Checkout","tags":["frontend"]}`)

	assert.True(t, ok)
	assert.Equal(t, "Checkout", req.Name)
	assert.Equal(t, []string{"frontend"}, req.Tags)
}

func TestDecodeRequest_MalformedBody(t *testing.T) {
	var req CreateProjectRequest
	rec, ok := decodeInto(&req, `{"name":`)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec)["error"])
}

func TestDecodeRequest_ValidationMessagesUseJSONNames(t *testing.T) {
	var req CreateServiceRequest
	rec, ok := decodeInto(&req, `{"type":"EC2","category":"Quantum"}`)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "validation_error", body["error"])
	assert.Contains(t, body["message"], "category must be one of [Compute Storage Databases Networking]")
	assert.Contains(t, body["message"], "cloudProvider is required")
}

func TestDecodeRequest_RunEndBeforeStart(t *testing.T) {
	var req CreateRunRequest
	rec, ok := decodeInto(&req,
		`{"runNumber":1,"startTime":"2024-03-01T10:00:00Z","endTime":"2024-03-01T09:00:00Z"}`)

	assert.False(t, ok)
	assert.Contains(t, decodeError(t, rec)["message"], "endTime must not be before startTime")
}

func TestDecodeRequest_NumbersStayExact(t *testing.T) {
	var req MetricValueRequest
	_, ok := decodeInto(&req, `{"metricDefinitionId":3,"value":9007199254740993}`)

	assert.True(t, ok)
	assert.Equal(t, json.Number("9007199254740993"), req.Value)
}
