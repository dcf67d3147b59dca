package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"glampbook/internal/app/commands"
	bookingapp "glampbook/internal/app/handlers/booking"
)

// AdminBookingHandler exposes the staff side of the booking lifecycle.
type AdminBookingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type adminCancelRequest struct {
	Reason       string `json:"reason"`
	RefundAmount int64  `json:"refund_amount"`
}

type paymentRequest struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
}

type addOnsRequest struct {
	AddOns []bookingapp.AddOnInput `json:"add_ons"`
}

func (h AdminBookingHandler) Confirm(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{BookingID: bookingID(c)}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminBookingHandler) Complete(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	cmd := bookingapp.CompleteBookingCommand{BookingID: bookingID(c)}
	result, err := commands.Dispatch[bookingapp.CompleteBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminBookingHandler) Reject(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.RejectBookingCommand{BookingID: bookingID(c), Reason: strings.TrimSpace(req.Reason)}
	result, err := commands.Dispatch[bookingapp.RejectBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminBookingHandler) Cancel(c *gin.Context) {
	staff, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req adminCancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:    bookingID(c),
		Reason:       strings.TrimSpace(req.Reason),
		CanceledBy:   staff.UserID,
		RefundAmount: req.RefundAmount,
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminBookingHandler) RecordPayment(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.RecordPaymentCommand{
		BookingID:     bookingID(c),
		Method:        strings.TrimSpace(req.Method),
		TransactionID: strings.TrimSpace(req.TransactionID),
	}
	result, err := commands.Dispatch[bookingapp.RecordPaymentCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminBookingHandler) AttachAddOns(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req addOnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.AttachAddOnsCommand{BookingID: bookingID(c), AddOns: req.AddOns}
	result, err := commands.Dispatch[bookingapp.AttachAddOnsCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminBookingHandler) respond(c *gin.Context, result *bookingapp.BookingActionResult, err error) {
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bookingID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}

var _ AdminBookingHTTP = AdminBookingHandler{}
