package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// ReservationController exposes read-only reservation views to staff.
type ReservationController struct {
	Reservations *services.ReservationService
}

func NewReservationController(reservations *services.ReservationService) *ReservationController {
	return &ReservationController{Reservations: reservations}
}

// GetAllReservations -> optional ?status=PENDING|APPROVED|ACTIVE|FINISHED|CANCELLED
func (rc *ReservationController) GetAllReservations(c *gin.Context) {
	status := models.ReservationStatus(strings.ToUpper(c.Query("status")))
	switch status {
	case "", models.ReservationPending, models.ReservationApproved, models.ReservationActive,
		models.ReservationFinished, models.ReservationCancelled:
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown reservation status"))
		return
	}

	reservations, err := rc.Reservations.List(c.Request.Context(), status)
	if err != nil {
		utils.ErrorLogger.Printf("List reservations: %v", err)
		utils.RespondJSON(c, http.StatusServiceUnavailable, "Reservations are not available right now", nil)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", reservations)
}

func (rc *ReservationController) GetReservationByCode(c *gin.Context) {
	reservation, err := rc.Reservations.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation detail", reservation)
}

// WaitingListController exposes the waiting list to staff.
type WaitingListController struct {
	Waiting *services.WaitingListService
}

func NewWaitingListController(waiting *services.WaitingListService) *WaitingListController {
	return &WaitingListController{Waiting: waiting}
}

func (wc *WaitingListController) GetWaitingList(c *gin.Context) {
	entries, err := wc.Waiting.List(c.Request.Context())
	if err != nil {
		utils.ErrorLogger.Printf("List waiting entries: %v", err)
		utils.RespondJSON(c, http.StatusServiceUnavailable, "Waiting list is not available right now", nil)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiting list", entries)
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	reason, _ := services.Reason(err)
	switch {
	case errors.Is(err, services.ErrStoreUnavailable):
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.RespondJSON(c, http.StatusServiceUnavailable, "not available right now", nil)
	case errors.Is(err, services.ErrValidation):
		utils.RespondJSON(c, http.StatusBadRequest, reason, nil)
	case errors.Is(err, services.ErrNotFound):
		utils.RespondJSON(c, http.StatusNotFound, reason, nil)
	case errors.Is(err, services.ErrUnauthorized):
		utils.RespondJSON(c, http.StatusUnauthorized, reason, nil)
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidState):
		utils.RespondJSON(c, http.StatusConflict, reason, nil)
	default:
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.RespondJSON(c, http.StatusInternalServerError, "internal error", nil)
	}
}
