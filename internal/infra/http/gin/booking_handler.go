package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homeease/internal/app/commands"
	"homeease/internal/app/dto"
	BookingApp "homeease/internal/app/handlers/booking"
	"homeease/internal/app/queries"
	domainuser "homeease/internal/domain/user"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type bookingLineRequest struct {
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

type createBookingRequest struct {
	LineItems     []bookingLineRequest `json:"line_items"`
	Date          time.Time            `json:"date"`
	Slot          string               `json:"slot"`
	CustomerName  string               `json:"customer_name"`
	Phone         string               `json:"phone"`
	Email         string               `json:"email"`
	AddressLine1  string               `json:"address_line1"`
	AddressLine2  string               `json:"address_line2"`
	City          string               `json:"city"`
	State         string               `json:"state"`
	Pincode       string               `json:"pincode"`
	PromoCode     string               `json:"promo_code"`
	PaymentMethod string               `json:"payment_method"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lines := make([]BookingApp.LineItemInput, 0, len(req.LineItems))
	for _, line := range req.LineItems {
		lines = append(lines, BookingApp.LineItemInput{ServiceID: line.ServiceID, Quantity: line.Quantity})
	}
	cmd := BookingApp.CreateBookingCommand{
		CommandID:       generateCommandID(),
		CustomerID:      user.ID,
		LineItems:       lines,
		Date:            req.Date,
		Slot:            req.Slot,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		Email:           req.Email,
		AddressLine1:    req.AddressLine1,
		AddressLine2:    req.AddressLine2,
		City:            req.City,
		State:           req.State,
		Pincode:         req.Pincode,
		PromoCode:       req.PromoCode,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[BookingApp.CreateBookingCommand, *BookingApp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[BookingApp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, BookingApp.GetBookingQuery{
		BookingID: c.Param("id"),
		Actor:     user.actor(),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[BookingApp.ListCustomerBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, BookingApp.ListCustomerBookingsQuery{
		CustomerID: user.ID,
		Status:     c.Query("status"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListForProvider(c *gin.Context) {
	user, ok := requireRole(c, string(domainuser.RoleProvider))
	if !ok {
		return
	}
	result, err := queries.Ask[BookingApp.ListProviderBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, BookingApp.ListProviderBookingsQuery{
		ProviderID: user.ID,
		Status:     c.Query("status"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h BookingHandler) SetStatus(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := BookingApp.SetBookingStatusCommand{
		BookingID: c.Param("id"),
		Target:    req.Status,
		Reason:    req.Reason,
		Actor:     user.actor(),
	}
	result, err := commands.Dispatch[BookingApp.SetBookingStatusCommand, *BookingApp.SetBookingStatusResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setServiceStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h BookingHandler) SetServiceStatus(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req setServiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := BookingApp.SetServiceStatusCommand{
		BookingID: c.Param("id"),
		Target:    req.Status,
		Notes:     req.Notes,
		Actor:     user.actor(),
	}
	result, err := commands.Dispatch[BookingApp.SetServiceStatusCommand, *BookingApp.SetServiceStatusResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rateBookingRequest struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

func (h BookingHandler) Rate(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req rateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := BookingApp.RateBookingCommand{
		BookingID: c.Param("id"),
		Stars:     req.Stars,
		Comment:   req.Comment,
		Actor:     user.actor(),
	}
	result, err := commands.Dispatch[BookingApp.RateBookingCommand, *BookingApp.RateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
