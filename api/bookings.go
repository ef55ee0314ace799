package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

const defaultPageSize = 10

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	ExperienceID   string          `json:"experienceId"`
	TimeSlotID     string          `json:"timeSlotId"`
	Customer       customerPayload `json:"customer"`
	NumberOfGuests int             `json:"numberOfGuests"`
	PromoCode      string          `json:"promoCode,omitempty"`
}

type customerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type cancelBookingRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelledBy"`
}

type pricingResponse struct {
	BasePrice      int64  `json:"basePrice"`
	TotalAmount    int64  `json:"totalAmount"`
	DiscountAmount int64  `json:"discountAmount"`
	TaxAmount      int64  `json:"taxAmount"`
	FinalAmount    int64  `json:"finalAmount"`
	Currency       string `json:"currency"`
}

type appliedPromoResponse struct {
	Code           string `json:"code"`
	DiscountType   string `json:"discountType"`
	DiscountValue  string `json:"discountValue"`
	DiscountAmount int64  `json:"discountAmount"`
}

type cancellationResponse struct {
	Reason       string `json:"reason"`
	CancelledBy  string `json:"cancelledBy"`
	CancelledAt  string `json:"cancelledAt"`
	RefundAmount int64  `json:"refundAmount"`
}

type bookingResponse struct {
	ID               string                `json:"id"`
	BookingReference string                `json:"bookingReference"`
	ExperienceID     string                `json:"experienceId"`
	ExperienceTitle  string                `json:"experienceTitle"`
	TimeSlotID       string                `json:"timeSlotId"`
	SlotStartsAt     string                `json:"slotStartsAt"`
	SlotEndsAt       string                `json:"slotEndsAt"`
	Customer         customerPayload       `json:"customer"`
	NumberOfGuests   int                   `json:"numberOfGuests"`
	Pricing          pricingResponse       `json:"pricing"`
	AppliedPromo     *appliedPromoResponse `json:"appliedPromoCode,omitempty"`
	Status           string                `json:"status"`
	Cancellation     *cancellationResponse `json:"cancellationDetails,omitempty"`
	CreatedAt        string                `json:"createdAt"`
	UpdatedAt        string                `json:"updatedAt"`
}

type bookingListResponse struct {
	Bookings   []bookingResponse `json:"bookings"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:reference", h.get)
	router.POST("/:reference/cancel", h.cancel)
	router.DELETE("/:reference", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		ExperienceID: req.ExperienceID,
		TimeSlotID:   req.TimeSlotID,
		Customer: booking.CustomerInput{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
			Notes: req.Customer.Notes,
		},
		NumberOfGuests: req.NumberOfGuests,
		PromoCode:      req.PromoCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBookingByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) list(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		respondBadRequest(c, "page must be an integer")
		return
	}
	pageSize, err := queryInt(c, "pageSize", defaultPageSize)
	if err != nil {
		respondBadRequest(c, "pageSize must be an integer")
		return
	}

	result, err := h.service.ListBookingsByEmail(c.Request.Context(), booking.ListBookingsInput{
		Email:    c.Query("email"),
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := bookingListResponse{
		Bookings:   make([]bookingResponse, 0, len(result.Bookings)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}
	for i := range result.Bookings {
		resp.Bookings = append(resp.Bookings, toBookingResponse(&result.Bookings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// cancel accepts an optional JSON body with the reason. Chunked bodies have
// ContentLength -1, so only a known-empty body skips binding.
func (h *BookingHandler) cancel(c *gin.Context) {
	var req cancelBookingRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	b, err := h.service.CancelBooking(c.Request.Context(), booking.CancelBookingInput{
		Reference:   c.Param("reference"),
		Reason:      req.Reason,
		CancelledBy: req.CancelledBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:               b.ID,
		BookingReference: b.Reference,
		ExperienceID:     b.ExperienceID,
		ExperienceTitle:  b.ExperienceTitle,
		TimeSlotID:       b.TimeSlotID,
		SlotStartsAt:     formatTime(b.SlotStartsAt),
		SlotEndsAt:       formatTime(b.SlotEndsAt),
		Customer: customerPayload{
			Name:  b.Customer.Name,
			Email: b.Customer.Email,
			Phone: b.Customer.Phone,
			Notes: b.Customer.Notes,
		},
		NumberOfGuests: b.NumberOfGuests,
		Pricing: pricingResponse{
			BasePrice:      b.Pricing.BasePrice,
			TotalAmount:    b.Pricing.TotalAmount,
			DiscountAmount: b.Pricing.DiscountAmount,
			TaxAmount:      b.Pricing.TaxAmount,
			FinalAmount:    b.Pricing.FinalAmount,
			Currency:       b.Pricing.Currency,
		},
		Status:    string(b.Status),
		CreatedAt: formatTime(b.CreatedAt),
		UpdatedAt: formatTime(b.UpdatedAt),
	}
	if p := b.AppliedPromo; p != nil {
		resp.AppliedPromo = &appliedPromoResponse{
			Code:           p.Code,
			DiscountType:   string(p.DiscountType),
			DiscountValue:  p.DiscountValue.String(),
			DiscountAmount: p.DiscountAmount,
		}
	}
	if cd := b.Cancellation; cd != nil {
		resp.Cancellation = &cancellationResponse{
			Reason:       cd.Reason,
			CancelledBy:  cd.CancelledBy,
			CancelledAt:  formatTime(cd.CancelledAt),
			RefundAmount: cd.RefundAmount,
		}
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
