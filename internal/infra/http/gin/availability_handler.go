package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"glampbook/internal/app/commands"
	"glampbook/internal/app/dto"
	availabilityapp "glampbook/internal/app/handlers/availability"
	"glampbook/internal/app/queries"
	"glampbook/internal/domain/shared/daterange"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	query := availabilityapp.GetCalendarQuery{
		PropertyID: strings.TrimSpace(c.Param("id")),
		From:       c.Query("from"),
		To:         c.Query("to"),
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	dr, err := daterange.FromKeys(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		PropertyID: strings.TrimSpace(c.Param("id")),
		CheckIn:    dr.CheckIn,
		CheckOut:   dr.CheckOut,
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityCheck](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdminAvailabilityHandler serves the calendar writes. Role checks happen on
// the command bus; the handler only requires an identity.
type AdminAvailabilityHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type dayUpdateRequest struct {
	IsAvailable *bool   `json:"is_available"`
	Price       *int64  `json:"price"`
	MinimumStay *int    `json:"minimum_stay"`
	Notes       *string `json:"notes"`
}

type dayRangeRequest struct {
	Updates map[string]availabilityapp.DayUpdate `json:"updates"`
}

type blockRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

func (h AdminAvailabilityHandler) Initialize(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	cmd := availabilityapp.InitializeCalendarCommand{PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[availabilityapp.InitializeCalendarCommand, *dto.CalendarChange](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminAvailabilityHandler) SetDate(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req dayUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.SetDateStatusCommand{
		PropertyID:  strings.TrimSpace(c.Param("id")),
		Date:        c.Param("date"),
		IsAvailable: req.IsAvailable,
		Price:       req.Price,
		MinimumStay: req.MinimumStay,
		Notes:       req.Notes,
	}
	result, err := commands.Dispatch[availabilityapp.SetDateStatusCommand, *dto.CalendarChange](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminAvailabilityHandler) SetDates(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req dayRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.SetDateRangeStatusCommand{
		PropertyID: strings.TrimSpace(c.Param("id")),
		Updates:    req.Updates,
	}
	result, err := commands.Dispatch[availabilityapp.SetDateRangeStatusCommand, *dto.CalendarChange](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminAvailabilityHandler) AddBlock(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.AddBlockedRangeCommand{
		PropertyID: strings.TrimSpace(c.Param("id")),
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Reason:     strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[availabilityapp.AddBlockedRangeCommand, *dto.CalendarChange](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminAvailabilityHandler) RemoveBlock(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	cmd := availabilityapp.RemoveBlockedRangeCommand{
		PropertyID: strings.TrimSpace(c.Param("id")),
		StartDate:  c.Query("start"),
		EndDate:    c.Query("end"),
	}
	result, err := commands.Dispatch[availabilityapp.RemoveBlockedRangeCommand, *dto.CalendarChange](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h AdminAvailabilityHandler) respond(c *gin.Context, result *dto.CalendarChange, err error) {
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var (
	_ AvailabilityHTTP      = AvailabilityHandler{}
	_ AdminAvailabilityHTTP = AdminAvailabilityHandler{}
)
