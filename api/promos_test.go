package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/promo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPromoValidator struct {
	mock.Mock
}

func (m *MockPromoValidator) ValidatePromo(ctx context.Context, in promo.PreviewInput) (*promo.Preview, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promo.Preview), args.Error(1)
}

func TestPromoHandler_validate(t *testing.T) {
	mockService := &MockPromoValidator{}
	handler := NewPromoHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/promos/validate", `{"code":"WELCOME10","userEmail":"ana@example.com","orderValue":2000,"experienceId":"exp-1"}`)

	input := promo.PreviewInput{Code: "WELCOME10", Email: "ana@example.com", OrderValue: 2000, ExperienceID: "exp-1"}
	preview := &promo.Preview{Code: "WELCOME10", DiscountType: domain.DiscountPercentage, OrderValue: 2000, DiscountAmount: 200, FinalAmount: 1800}
	mockService.On("ValidatePromo", c.Request.Context(), input).Return(preview, nil)

	handler.validate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp promoPreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, int64(200), resp.DiscountAmount)
	assert.Equal(t, int64(1800), resp.FinalAmount)

	mockService.AssertExpectations(t)
}

func TestPromoHandler_validate_Rejected(t *testing.T) {
	mockService := &MockPromoValidator{}
	handler := NewPromoHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/promos/validate", `{"code":"OLD","userEmail":"ana@example.com","orderValue":10}`)

	mockService.On("ValidatePromo", c.Request.Context(), mock.Anything).
		Return(nil, apperror.PromoInvalid("promo code is not active", "order value 10 is below the minimum of 500"))

	handler.validate(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "PromoInvalid", resp.Code)
	assert.Len(t, resp.Messages, 2)
}

func TestPromoHandler_validate_BadBody(t *testing.T) {
	mockService := &MockPromoValidator{}
	handler := NewPromoHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/promos/validate", `not json`)

	handler.validate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "ValidatePromo", mock.Anything, mock.Anything)
}
