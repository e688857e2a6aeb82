package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/cerita/nobat/internal/http/middleware"
	"github.com/cerita/nobat/internal/model"
	"github.com/cerita/nobat/internal/service/booking"
)

// turnReq is the write body for POST /turn and PUT /turn (id only for PUT).
type turnReq struct {
	ID          string `json:"id,omitempty"`
	RefName     string `json:"refname"`
	RefPhone    string `json:"refphone"`
	User        string `json:"user"`
	Description string `json:"description"`
	Date        string `json:"date"` // composite "<jalali-date> <HH:MM>"
}

type dayResponse struct {
	Date  model.DayContext `json:"date"`
	Turns []model.TurnWire `json:"turns"`
}

func listTurnsHandler(svc *booking.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		direction := c.Param("direction")
		cursor := c.Param("date")

		dayCtx, turns, err := svc.List(c.Request().Context(), cursor, direction)
		if err != nil {
			if errors.Is(err, booking.ErrBadDirection) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid direction"})
			}
			if errors.Is(err, booking.ErrBadCursor) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
			}

			c.Logger().Errorf("list turns failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		wires := make([]model.TurnWire, 0, len(turns))
		for _, t := range turns {
			wires = append(wires, t.Wire())
		}
		return c.JSON(http.StatusOK, dayResponse{Date: dayCtx, Turns: wires})
	}
}

func (r turnReq) toInput(c echo.Context) (booking.TurnInput, error) {
	slot, err := model.ParseSlot(r.Date)
	if err != nil {
		return booking.TurnInput{}, err
	}

	// The creating operator is taken from the session, not trusted from
	// the body; only its last 4 chars are kept, as the page always did.
	user := r.User
	if token, ok := middleware.SessionTokenFromCtx(c); ok {
		user = lastN(token, 4)
	}

	return booking.TurnInput{
		RefName:     strings.TrimSpace(r.RefName),
		RefPhone:    strings.TrimSpace(r.RefPhone),
		User:        user,
		Description: strings.TrimSpace(r.Description),
		Slot:        slot,
	}, nil
}

func createTurnHandler(svc *booking.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req turnReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if strings.TrimSpace(req.RefPhone) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "refphone is required"})
		}

		in, err := req.toInput(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
		}

		turn, err := svc.Create(c.Request().Context(), in)
		if err != nil {
			return writeTurnError(c, err)
		}
		return c.JSON(http.StatusCreated, turn.Wire())
	}
}

func updateTurnHandler(svc *booking.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req turnReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.ID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "id is required"})
		}
		if strings.TrimSpace(req.RefPhone) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "refphone is required"})
		}

		in, err := req.toInput(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
		}

		turn, err := svc.Update(c.Request().Context(), req.ID, in)
		if err != nil {
			return writeTurnError(c, err)
		}
		return c.JSON(http.StatusOK, turn.Wire())
	}
}

func deleteTurnHandler(svc *booking.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return writeTurnError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func commentSMSHandler(svc *booking.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.RequestCommentSMS(c.Request().Context(), c.Param("id")); err != nil {
			return writeTurnError(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]any{"queued": true})
	}
}

// writeTurnError maps service sentinels onto the status codes the page's
// error toast relies on. The conflict message travels verbatim.
func writeTurnError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrSlotTaken):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": booking.ErrSlotTaken.Error()})
	case errors.Is(err, booking.ErrTurnNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": booking.ErrTurnNotFound.Error()})
	default:
		log.Errorf("turn operation failed: %v", err)

		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
