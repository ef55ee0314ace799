package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/service/promo"
	"github.com/gin-gonic/gin"
)

type PromoValidator interface {
	ValidatePromo(ctx context.Context, in promo.PreviewInput) (*promo.Preview, error)
}

type PromoHandler struct {
	service PromoValidator
}

type promoPreviewResponse struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	DiscountType   string `json:"discountType"`
	OrderValue     int64  `json:"orderValue"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalAmount    int64  `json:"finalAmount"`
}

func NewPromoHandler(service PromoValidator) *PromoHandler {
	return &PromoHandler{service: service}
}

func (h *PromoHandler) Register(router *gin.RouterGroup) {
	router.POST("/validate", h.validate)
}

func (h *PromoHandler) validate(c *gin.Context) {
	var in promo.PreviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	preview, err := h.service.ValidatePromo(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, promoPreviewResponse{
		Valid:          true,
		Code:           preview.Code,
		DiscountType:   string(preview.DiscountType),
		OrderValue:     preview.OrderValue,
		DiscountAmount: preview.DiscountAmount,
		FinalAmount:    preview.FinalAmount,
	})
}
