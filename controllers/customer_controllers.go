package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

type notificationLister interface {
	ListByCustomer(ctx context.Context, customerID uint) ([]models.Notification, error)
}

type CustomerController struct {
	Customers     *services.CustomerService
	Notifications notificationLister
}

func NewCustomerController(customers *services.CustomerService, notifications notificationLister) *CustomerController {
	return &CustomerController{Customers: customers, Notifications: notifications}
}

func (cc *CustomerController) GetCustomerByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("customer_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid customer id"))
		return
	}
	customer, err := cc.Customers.Get(c.Request.Context(), uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer detail", customer)
}

// GetCustomerNotifications -> delivery log for one customer
func (cc *CustomerController) GetCustomerNotifications(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("customer_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid customer id"))
		return
	}
	notifications, err := cc.Notifications.ListByCustomer(c.Request.Context(), uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer notifications", notifications)
}
