package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"glampbook/internal/app/commands"
	"glampbook/internal/app/dto"
	bookingapp "glampbook/internal/app/handlers/booking"
	"glampbook/internal/app/queries"
	"glampbook/internal/domain/shared/daterange"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	PropertyID string                 `json:"property_id"`
	CheckIn    string                 `json:"check_in"`
	CheckOut   string                 `json:"check_out"`
	Guests     bookingapp.GuestsInput `json:"guests"`
	Notes      string                 `json:"notes"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	checkIn, err := daterange.ParseDay(req.CheckIn)
	if err != nil {
		badRequest(c, err)
		return
	}
	checkOut, err := daterange.ParseDay(req.CheckOut)
	if err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		PropertyID:      strings.TrimSpace(req.PropertyID),
		UserID:          user.UserID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		Notes:           req.Notes,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.GuestCancelBookingCommand{
		BookingID: strings.TrimSpace(c.Param("id")),
		UserID:    user.UserID,
		Reason:    strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[bookingapp.GuestCancelBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type MeHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h MeHandler) ListBookings(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	query := bookingapp.ListMyBookingsQuery{UserID: user.UserID}
	result, err := queries.Ask[bookingapp.ListMyBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var (
	_ BookingHTTP = BookingHandler{}
	_ MeHTTP      = MeHandler{}
)
