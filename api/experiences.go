package api

import (
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/service/catalog"
	"github.com/gin-gonic/gin"
)

type ExperienceHandler struct {
	service catalog.CatalogUseCase
}

type experienceResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	PriceCents      int64  `json:"priceCents"`
	Currency        string `json:"currency"`
	DefaultCapacity int    `json:"defaultCapacity"`
}

type slotResponse struct {
	ID                   string `json:"id"`
	StartsAt             string `json:"startsAt"`
	EndsAt               string `json:"endsAt"`
	TotalCapacity        int    `json:"totalCapacity"`
	BookedCount          int    `json:"bookedCount"`
	AvailableSpots       int    `json:"availableSpots"`
	FullyBooked          bool   `json:"fullyBooked"`
	Bookable             bool   `json:"bookable"`
	PriceCents           *int64 `json:"priceCents,omitempty"`
	SpecialPriceCents    *int64 `json:"specialPriceCents,omitempty"`
	CancellationDeadline string `json:"cancellationDeadline"`
}

func NewExperienceHandler(service catalog.CatalogUseCase) *ExperienceHandler {
	return &ExperienceHandler{service: service}
}

func (h *ExperienceHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.get)
	router.GET("/:id/slots", h.slots)
}

func (h *ExperienceHandler) get(c *gin.Context) {
	exp, err := h.service.GetExperience(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, experienceResponse{
		ID:              exp.ID,
		Title:           exp.Title,
		Category:        exp.Category,
		PriceCents:      exp.PriceCents,
		Currency:        exp.Currency,
		DefaultCapacity: exp.DefaultCapacity,
	})
}

func (h *ExperienceHandler) slots(c *gin.Context) {
	views, err := h.service.ListSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]slotResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, slotResponse{
			ID:                   v.Slot.ID,
			StartsAt:             formatTime(v.Slot.StartsAt),
			EndsAt:               formatTime(v.Slot.EndsAt),
			TotalCapacity:        v.Availability.TotalCapacity,
			BookedCount:          v.Availability.BookedCount,
			AvailableSpots:       v.Availability.AvailableSpots,
			FullyBooked:          v.Availability.FullyBooked,
			Bookable:             v.Availability.Bookable,
			PriceCents:           v.Slot.PriceCents,
			SpecialPriceCents:    v.Slot.SpecialPriceCents,
			CancellationDeadline: formatTime(v.Slot.CancellationDeadline),
		})
	}
	c.JSON(http.StatusOK, gin.H{"slots": resp})
}
