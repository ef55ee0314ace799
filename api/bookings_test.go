package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, in booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookingsByEmail(ctx context.Context, in booking.ListBookingsInput) (*booking.BookingPage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.BookingPage), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, in booking.CancelBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CompleteFinishedBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == "" {
		c.Request = httptest.NewRequest(method, target, nil)
	} else {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, w
}

func sampleBooking() *domain.Booking {
	at := time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)
	return &domain.Booking{
		ID:              "b-1",
		Reference:       "TRV-MH0XK1S0-7QK2ZD",
		ExperienceID:    "exp-1",
		ExperienceTitle: "Sunset kayak",
		TimeSlotID:      "slot-1",
		SlotStartsAt:    at.Add(72 * time.Hour),
		SlotEndsAt:      at.Add(75 * time.Hour),
		Customer:        domain.Customer{Name: "Ana", Email: "ana@example.com"},
		NumberOfGuests:  2,
		Pricing: domain.Pricing{
			BasePrice: 1000, TotalAmount: 2000, DiscountAmount: 200, TaxAmount: 180, FinalAmount: 1980, Currency: "USD",
		},
		AppliedPromo: &domain.AppliedPromo{
			Code: "WELCOME10", DiscountType: domain.DiscountPercentage, DiscountValue: decimal.NewFromInt(10), DiscountAmount: 200,
		},
		Status:    domain.BookingStatusConfirmed,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/bookings", `{
		"experienceId": "exp-1",
		"timeSlotId": "slot-1",
		"customer": {"name": "Ana", "email": "ana@example.com"},
		"numberOfGuests": 2,
		"promoCode": "WELCOME10"
	}`)

	input := booking.CreateBookingInput{
		ExperienceID:   "exp-1",
		TimeSlotID:     "slot-1",
		Customer:       booking.CustomerInput{Name: "Ana", Email: "ana@example.com"},
		NumberOfGuests: 2,
		PromoCode:      "WELCOME10",
	}
	mockService.On("CreateBooking", c.Request.Context(), input).Return(sampleBooking(), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TRV-MH0XK1S0-7QK2ZD", resp.BookingReference)
	assert.Equal(t, int64(1980), resp.Pricing.FinalAmount)
	assert.Equal(t, "confirmed", resp.Status)
	require.NotNil(t, resp.AppliedPromo)
	assert.Equal(t, "10", resp.AppliedPromo.DiscountValue)
	assert.Nil(t, resp.Cancellation)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_InvalidBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/bookings", `{"numberOfGuests": "two"`)

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decodeError(t, w).Code)
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_create_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperror.Validation("customer.email is required"), http.StatusBadRequest, "ValidationError"},
		{"not found", apperror.NotFound("time slot not found"), http.StatusNotFound, "NotFound"},
		{"capacity", apperror.New(apperror.CodeInsufficientCapacity, "only 1 spot left"), http.StatusConflict, "InsufficientCapacity"},
		{"promo", apperror.PromoInvalid("promo code expired", "order value too low"), http.StatusUnprocessableEntity, "PromoInvalid"},
		{"internal", apperror.Internal(errors.New("boom")), http.StatusInternalServerError, "InternalError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewBookingHandler(mockService)
			c, w := newTestContext("POST", "/api/v1/bookings", `{"experienceId":"exp-1"}`)

			mockService.On("CreateBooking", c.Request.Context(), mock.Anything).Return(nil, tt.err)

			handler.create(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, string(apperror.KindOf(tt.err)), resp.Kind)
			assert.NotEmpty(t, resp.Messages)
		})
	}
}

func TestBookingHandler_create_PromoReasonsListed(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/bookings", `{"experienceId":"exp-1"}`)

	mockService.On("CreateBooking", c.Request.Context(), mock.Anything).
		Return(nil, apperror.PromoInvalid("a", "b", "c"))

	handler.create(c)

	assert.Equal(t, []string{"a", "b", "c"}, decodeError(t, w).Messages)
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/api/v1/bookings/TRV-MH0XK1S0-7QK2ZD", "")
	c.Params = gin.Params{{Key: "reference", Value: "TRV-MH0XK1S0-7QK2ZD"}}

	mockService.On("GetBookingByReference", c.Request.Context(), "TRV-MH0XK1S0-7QK2ZD").Return(sampleBooking(), nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Sunset kayak", resp.ExperienceTitle)
	assert.Equal(t, "2026-11-05T10:00:00Z", resp.SlotStartsAt)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_get_NotFound(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/api/v1/bookings/TRV-NOPE", "")
	c.Params = gin.Params{{Key: "reference", Value: "TRV-NOPE"}}

	mockService.On("GetBookingByReference", c.Request.Context(), "TRV-NOPE").
		Return(nil, apperror.NotFound("booking TRV-NOPE not found"))

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandler_list(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/api/v1/bookings?email=ana@example.com&page=2&pageSize=5&status=confirmed", "")

	input := booking.ListBookingsInput{Email: "ana@example.com", Page: 2, PageSize: 5, Status: "confirmed"}
	page := &booking.BookingPage{Bookings: []domain.Booking{*sampleBooking()}, Page: 2, PageSize: 5, Total: 6, TotalPages: 2}
	mockService.On("ListBookingsByEmail", c.Request.Context(), input).Return(page, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp bookingListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Bookings, 1)
	assert.Equal(t, 6, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_list_Defaults(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/api/v1/bookings?email=ana@example.com", "")

	input := booking.ListBookingsInput{Email: "ana@example.com", Page: 1, PageSize: defaultPageSize}
	mockService.On("ListBookingsByEmail", c.Request.Context(), input).
		Return(&booking.BookingPage{Page: 1, PageSize: defaultPageSize}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bookings":[]`)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_list_BadPage(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/api/v1/bookings?email=ana@example.com&page=first", "")

	handler.list(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"page must be an integer"}, decodeError(t, w).Messages)
	mockService.AssertNotCalled(t, "ListBookingsByEmail", mock.Anything, mock.Anything)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/bookings/TRV-MH0XK1S0-7QK2ZD/cancel", `{"reason":"plans changed"}`)
	c.Params = gin.Params{{Key: "reference", Value: "TRV-MH0XK1S0-7QK2ZD"}}

	cancelled := sampleBooking()
	cancelled.Status = domain.BookingStatusCancelled
	cancelled.Cancellation = &domain.CancellationDetails{
		Reason: "plans changed", CancelledBy: "customer", CancelledAt: cancelled.CreatedAt.Add(time.Hour), RefundAmount: 1980,
	}
	input := booking.CancelBookingInput{Reference: "TRV-MH0XK1S0-7QK2ZD", Reason: "plans changed"}
	mockService.On("CancelBooking", c.Request.Context(), input).Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cancelled", resp.Status)
	require.NotNil(t, resp.Cancellation)
	assert.Equal(t, int64(1980), resp.Cancellation.RefundAmount)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_NoBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("DELETE", "/api/v1/bookings/TRV-MH0XK1S0-7QK2ZD", "")
	c.Params = gin.Params{{Key: "reference", Value: "TRV-MH0XK1S0-7QK2ZD"}}

	input := booking.CancelBookingInput{Reference: "TRV-MH0XK1S0-7QK2ZD"}
	mockService.On("CancelBooking", c.Request.Context(), input).
		Return(nil, apperror.New(apperror.CodeAlreadyCancelled, "booking is already cancelled"))

	handler.cancel(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "AlreadyCancelled", decodeError(t, w).Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_ChunkedBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/bookings/TRV-MH0XK1S0-7QK2ZD/cancel", `{"reason":"storm","cancelledBy":"operator"}`)
	c.Request.ContentLength = -1
	c.Request.TransferEncoding = []string{"chunked"}
	c.Params = gin.Params{{Key: "reference", Value: "TRV-MH0XK1S0-7QK2ZD"}}

	input := booking.CancelBookingInput{Reference: "TRV-MH0XK1S0-7QK2ZD", Reason: "storm", CancelledBy: "operator"}
	mockService.On("CancelBooking", c.Request.Context(), input).Return(sampleBooking(), nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_EmptyChunkedBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/bookings/TRV-MH0XK1S0-7QK2ZD/cancel", "")
	c.Request.Body = io.NopCloser(strings.NewReader(""))
	c.Request.ContentLength = -1
	c.Params = gin.Params{{Key: "reference", Value: "TRV-MH0XK1S0-7QK2ZD"}}

	input := booking.CancelBookingInput{Reference: "TRV-MH0XK1S0-7QK2ZD"}
	mockService.On("CancelBooking", c.Request.Context(), input).Return(sampleBooking(), nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_MalformedBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/bookings/TRV-MH0XK1S0-7QK2ZD/cancel", `{"reason":`)
	c.Params = gin.Params{{Key: "reference", Value: "TRV-MH0XK1S0-7QK2ZD"}}

	handler.cancel(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_Routes(t *testing.T) {
	mockService := &MockBookingUseCase{}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewBookingHandler(mockService).Register(router.Group("/api/v1/bookings"))

	mockService.On("GetBookingByReference", mock.Anything, "TRV-X").
		Return(nil, apperror.NotFound("booking TRV-X not found"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/bookings/TRV-X", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockService.AssertExpectations(t)
}
