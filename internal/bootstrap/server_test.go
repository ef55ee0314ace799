package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSeed = `
experiences:
  - id: exp-kayak
    title: Harbour kayak
    category: water
    price_cents: 1000
    capacity: 3
slots:
  - id: slot-1
    experience_id: exp-kayak
    starts_at: 2035-06-01T17:00:00Z
    duration_minutes: 120
promos:
  - code: SAVE10
    type: percentage
    value: "10"
    per_user_limit: 1
    valid_from: 2020-01-01T00:00:00Z
    valid_until: 2040-01-01T00:00:00Z
`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(testSeed), 0o600))

	cfg := config.Default()
	cfg.Database.SeedFile = seedPath

	svcs, err := NewServices(context.Background(), &cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Close() })

	return NewRouter(&cfg, zap.NewNop(), Handlers{Catalog: svcs.Catalog, Promos: svcs.Promos, Bookings: svcs.Bookings})
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	w := do(newTestRouter(t), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_BookingLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, "POST", "/api/v1/promos/validate", `{"code":"save10","userEmail":"ana@example.com","orderValue":2000,"experienceId":"exp-kayak"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"discountAmount":200`)

	w = do(router, "POST", "/api/v1/bookings", `{
		"experienceId": "exp-kayak",
		"timeSlotId": "slot-1",
		"customer": {"name": "Ana", "email": "Ana@Example.com"},
		"numberOfGuests": 2,
		"promoCode": "SAVE10"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		BookingReference string `json:"bookingReference"`
		Pricing          struct {
			FinalAmount int64 `json:"finalAmount"`
		} `json:"pricing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1980), created.Pricing.FinalAmount)

	w = do(router, "GET", "/api/v1/experiences/exp-kayak/slots", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"availableSpots":1`)

	w = do(router, "POST", "/api/v1/bookings", `{
		"experienceId": "exp-kayak",
		"timeSlotId": "slot-1",
		"customer": {"name": "Bo", "email": "bo@example.com"},
		"numberOfGuests": 2
	}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "InsufficientCapacity")

	w = do(router, "GET", "/api/v1/bookings?email=ana@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.BookingReference)

	w = do(router, "POST", "/api/v1/bookings/"+created.BookingReference+"/cancel", `{"reason":"rain"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"cancelled"`)

	w = do(router, "DELETE", "/api/v1/bookings/"+created.BookingReference, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "AlreadyCancelled")

	w = do(router, "GET", "/api/v1/experiences/exp-kayak/slots", "")
	assert.Contains(t, w.Body.String(), `"availableSpots":3`)
}

func TestRouter_UnknownExperience(t *testing.T) {
	w := do(newTestRouter(t), "GET", "/api/v1/experiences/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"not_found"`)
}

func TestNewServices_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "mongo"
	_, err := NewServices(context.Background(), &cfg, zap.NewNop())
	assert.Error(t, err)
}
