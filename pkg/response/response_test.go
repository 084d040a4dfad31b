package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessError(t *testing.T) {
	rec := httptest.NewRecorder()

	BusinessError(rec, http.StatusConflict, "Confirmed Statement Line", "cannot delete", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "Confirmed Statement Line", got.Title)
	assert.Equal(t, "cannot delete", got.Message)
	assert.Nil(t, got.Data)
}

func TestJSONOmitsEmptyError(t *testing.T) {
	rec := httptest.NewRecorder()

	JSON(rec, http.StatusOK, map[string]int{"applied": 2})

	assert.JSONEq(t, `{"status":"success","data":{"applied":2}}`, rec.Body.String())
}
