package Controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-reservation/models"
)

func TestLogin(t *testing.T) {
	app := setupApp(t)

	code, resp := app.do(t, http.MethodPost, "/login", "", map[string]string{"username": managerUser, "password": managerPassword})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful", resp.Message)

	var data struct {
		Token string      `json:"token"`
		Role  models.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, models.RoleStaffManager, data.Role)
}

func TestLogin_Failures(t *testing.T) {
	app := setupApp(t)

	code, _ := app.do(t, http.MethodPost, "/login", "", map[string]string{"username": managerUser, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = app.do(t, http.MethodPost, "/login", "", map[string]string{"username": "ghost", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := app.do(t, http.MethodPost, "/login", "", map[string]string{"username": managerUser})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Status)
}

func TestGetCustomer(t *testing.T) {
	app := setupApp(t)
	customer := app.addCustomer(t, "+31655550000", models.RoleSubscriber)
	token := app.login(t, staffUser, staffPassword)

	code, resp := app.do(t, http.MethodGet, "/admin/customers/"+strconv.Itoa(int(customer.ID)), token, nil)
	require.Equal(t, http.StatusOK, code)
	var got models.Customer
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, models.RoleSubscriber, got.Role)

	code, _ = app.do(t, http.MethodGet, "/admin/customers/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = app.do(t, http.MethodGet, "/admin/customers/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetCustomerNotifications(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()
	_, err := app.tracker.AddTable(ctx, 2)
	require.NoError(t, err)
	customer := app.addCustomer(t, "+31666660000", models.RoleCasual)

	joined, err := app.waiting.Join(ctx, customer.ID, 2, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, joined.Reservation)
	_, err = app.reservations.CheckIn(ctx, joined.Reservation.Code)
	require.NoError(t, err)
	_, err = app.reservations.Checkout(ctx, joined.Reservation.Code)
	require.NoError(t, err)

	token := app.login(t, managerUser, managerPassword)
	assert.Eventually(t, func() bool {
		code, resp := app.do(t, http.MethodGet, "/admin/customers/"+strconv.Itoa(int(customer.ID))+"/notifications", token, nil)
		if code != http.StatusOK {
			return false
		}
		var list []models.Notification
		return json.Unmarshal(resp.Data, &list) == nil && len(list) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
