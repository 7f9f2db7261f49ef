package Controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-reservation/controllers"
	"github.com/yeremiapane/restaurant-reservation/database"
	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/protocol"
	"github.com/yeremiapane/restaurant-reservation/repository"
	"github.com/yeremiapane/restaurant-reservation/router"
	"github.com/yeremiapane/restaurant-reservation/services"
)

const (
	managerUser     = "manager"
	managerPassword = "manager123"
	staffUser       = "waiter"
	staffPassword   = "waiter123"
)

type testApp struct {
	db           *gorm.DB
	router       *gin.Engine
	hub          *hub.Hub
	reservations *services.ReservationService
	waiting      *services.WaitingListService
	tracker      *services.TableTracker
}

// setupTestDB opens a private SQLite in-memory database with all models migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// setupApp wires the same router main builds, on a fresh database.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	tableRepo := repository.NewTableRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	waitingRepo := repository.NewWaitingRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	floorHub := hub.New(64, nil)
	go floorHub.Run(ctx)

	notifications := services.NewNotificationQueue(16, customerRepo, notificationRepo)
	notifications.Start(ctx)

	credentials := services.NewCredentialStore(map[string]services.StaffAccount{
		managerUser: {Username: managerUser, PasswordHash: hashPassword(t, managerPassword), Role: models.RoleStaffManager},
		staffUser:   {Username: staffUser, PasswordHash: hashPassword(t, staffPassword), Role: models.RoleStaffRepresentative},
	}, []byte("controllers-test-secret"), time.Hour)

	codes := services.NewCodeGenerator(reservationRepo, waitingRepo)
	tracker := services.NewTableTracker(tableRepo, floorHub)
	hours := services.NewHoursService(repository.NewHoursRepository(db), time.UTC)
	customers := services.NewCustomerService(customerRepo)
	reservations := services.NewReservationService(services.ReservationServiceOptions{
		Reservations: reservationRepo,
		Customers:    customerRepo,
		Tracker:      tracker,
		Codes:        codes,
		Hours:        hours,
		Prices:       services.CoverChargePricing{PerGuest: 20},
		Notifier:     notifications,
		Publisher:    floorHub,
		Policy:       services.ReservationPolicy{Location: time.UTC},
	})
	waiting := services.NewWaitingListService(services.WaitingListOptions{
		Entries:   waitingRepo,
		Customers: customerRepo,
		Tracker:   tracker,
		Admitter:  reservations,
		Codes:     codes,
		Notifier:  notifications,
		Publisher: floorHub,
	})
	tracker.SetVacancyHandler(waiting)

	dispatcher := protocol.NewDefaultDispatcher(protocol.Services{
		Reservations: reservations,
		Waiting:      waiting,
		Tables:       tracker,
		Customers:    customers,
		Hours:        hours,
		Credentials:  credentials,
	})
	upgrader := controllers.NewUpgrader([]string{"*"})

	r := router.SetupRouter(router.Deps{
		Verifier:       credentials,
		AllowedOrigins: []string{"*"},
		Protocol:       controllers.NewProtocolController(dispatcher, upgrader, 0, 0),
		Floor:          controllers.NewFloorController(floorHub, upgrader),
		Auth:           controllers.NewAuthController(credentials),
		Tables:         controllers.NewTableController(tracker, tableRepo, floorHub),
		Reservations:   controllers.NewReservationController(reservations),
		Waiting:        controllers.NewWaitingListController(waiting),
		Customers:      controllers.NewCustomerController(customers, notificationRepo),
	})

	return &testApp{
		db:           db,
		router:       r,
		hub:          floorHub,
		reservations: reservations,
		waiting:      waiting,
		tracker:      tracker,
	}
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	code, resp := a.do(t, http.MethodPost, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Token
}

func (a *testApp) addCustomer(t *testing.T, phone string, role models.Role) models.Customer {
	t.Helper()
	c := models.Customer{Phone: &phone, FirstName: "Test", LastName: "Guest", Role: role}
	require.NoError(t, a.db.Create(&c).Error)
	return c
}
