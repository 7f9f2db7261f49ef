package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeremiapane/restaurant-reservation/config"
	"github.com/yeremiapane/restaurant-reservation/database"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger("warn", false)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type envelope struct {
	ID      string                 `json:"id"`
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload"`
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
	seq  int
}

func connect(t *testing.T, server *httptest.Server, path string) *client {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

// ask sends one request and fails the test unless the response has kind want.
func (c *client) ask(kind string, payload interface{}, want string) map[string]interface{} {
	c.t.Helper()
	c.seq++
	id := fmt.Sprintf("req-%d", c.seq)
	require.NoError(c.t, c.conn.WriteJSON(map[string]interface{}{"id": id, "kind": kind, "payload": payload}))
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var resp envelope
	require.NoError(c.t, c.conn.ReadJSON(&resp))
	require.Equal(c.t, id, resp.ID)
	require.Equal(c.t, want, resp.Kind, "%s answered with %v", kind, resp.Payload)
	return resp.Payload
}

func setupIntegration(t *testing.T) *httptest.Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		JWTSecret:          "integration-secret",
		TokenTTL:           time.Hour,
		StaffAccounts:      "admin:" + string(hash) + ":manager",
		Location:           time.UTC,
		CoverCharge:        25,
		CurrencySymbol:     "€",
		CheckInEarlyGrace:  30 * time.Minute,
		CheckInLateGrace:   time.Hour,
		OfferWindow:        15 * time.Minute,
		OfferSweep:         time.Second,
		NotificationBuffer: 32,
	}

	db, err := config.InitDB(cfg.Database)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	ctx, cancel := context.WithCancel(context.Background())
	a, err := newApp(ctx, cfg, db)
	require.NoError(t, err)

	server := httptest.NewServer(a.router)
	t.Cleanup(func() {
		server.Close()
		cancel()
		a.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return server
}

func staffToken(t *testing.T, server *httptest.Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "admin123"})
	resp, err := http.Post(server.URL+"/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Data.Token
}

// TestEndToEndIntegration walks the main flow over the websocket protocol:
// a subscriber books, checks in and pays; the freed table goes to the party
// on the waiting list, who confirms and is seated. A staff dashboard sees it all.
func TestEndToEndIntegration(t *testing.T) {
	server := setupIntegration(t)
	token := staffToken(t, server)

	floor := connect(t, server, "/ws/floor?token="+token)
	staff := connect(t, server, "/ws?token="+token)
	staff.ask("ADD_TABLE", map[string]int{"capacity": 4}, "TABLE")

	// 1. A subscriber books the only table.
	alice := connect(t, server, "/ws")
	profile := alice.ask("REGISTER_CUSTOMER", map[string]string{
		"phone": "+31 6 1111 2222", "first_name": "Alice", "last_name": "Smit",
	}, "CUSTOMER")
	aliceID := profile["id"]
	alice.ask("UPGRADE_SUBSCRIBER", map[string]interface{}{"customer_id": aliceID}, "ERROR")
	staff.ask("UPGRADE_SUBSCRIBER", map[string]interface{}{"customer_id": aliceID}, "CUSTOMER")

	now := time.Now().UTC()
	booking := alice.ask("REQUEST_RESERVATION", map[string]interface{}{
		"customer_id": aliceID,
		"date":        now.Format("2006-01-02"),
		"time":        now.Format("15:04"),
		"party_size":  2,
	}, "RESERVATION_CONFIRMED")
	aliceCode := booking["code"].(string)

	// 2. A second party waits for a table.
	bob := connect(t, server, "/ws")
	bobProfile := bob.ask("IDENTIFY_CUSTOMER", map[string]string{"phone": "+31633334444"}, "CUSTOMER")
	bobID := bobProfile["id"]
	queued := bob.ask("ENTER_WAITING_LIST", map[string]interface{}{"customer_id": bobID, "party_size": 3}, "WAITING_LIST_ADDED")
	assert.Equal(t, "WAITING", queued["result"])
	bobEntry := queued["code"].(string)

	dup := bob.ask("ENTER_WAITING_LIST", map[string]interface{}{"customer_id": bobID, "party_size": 3}, "WAITING_LIST_ADDED")
	assert.Equal(t, "DUPLICATE", dup["result"])

	// Too early to confirm: no table has been offered yet.
	bob.ask("CONFIRM_WAITING_OFFER", map[string]string{"code": bobEntry}, "UPDATE_FAILED")

	// 3. Alice dines and pays with the subscriber discount.
	alice.ask("CHECK_IN_CUSTOMER", map[string]string{"code": aliceCode}, "CHECK_IN_APPROVED")
	bill := alice.ask("GET_BILL", map[string]string{"code": aliceCode}, "BILL")
	assert.EqualValues(t, 50, bill["subtotal"])
	assert.EqualValues(t, 45, bill["total"])
	paid := alice.ask("PAY_BILL", map[string]string{"code": aliceCode}, "UPDATE_SUCCESS")
	assert.EqualValues(t, 45, paid["bill"].(map[string]interface{})["total"])
	alice.ask("CHECK_IN_CUSTOMER", map[string]string{"code": aliceCode}, "CHECK_IN_DENIED")

	// 4. The freed table was offered to Bob, who takes it.
	offer := bob.ask("CONFIRM_WAITING_OFFER", map[string]string{"code": bobEntry}, "WAITING_OFFER_ACCEPTED")
	bobCode := offer["reservation_code"].(string)
	bob.ask("CHECK_IN_CUSTOMER", map[string]string{"code": bobCode}, "CHECK_IN_APPROVED")

	// 5. Staff views reflect the floor.
	require.NoError(t, staff.conn.WriteJSON(map[string]string{"id": "tables", "kind": "GET_TABLES"}))
	var floorState struct {
		Kind    string `json:"kind"`
		Payload []struct {
			Capacity int    `json:"capacity"`
			Status   string `json:"status"`
		} `json:"payload"`
	}
	require.NoError(t, staff.conn.ReadJSON(&floorState))
	require.Equal(t, "TABLES", floorState.Kind)
	require.Len(t, floorState.Payload, 1)
	assert.Equal(t, "OCCUPIED", floorState.Payload[0].Status)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/admin/reservations?status=ACTIVE", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var active struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	require.Len(t, active.Data, 1)
	assert.Equal(t, bobCode, active.Data[0]["code"])

	// The dashboard saw the table change hands.
	seen := map[string]bool{}
	require.NoError(t, floor.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for !seen["waiting_update"] || !seen["table_update"] || !seen["reservation_update"] {
		var event struct {
			Event string `json:"event"`
		}
		require.NoError(t, floor.conn.ReadJSON(&event))
		seen[event.Event] = true
	}
}

func TestHealthAndMetrics(t *testing.T) {
	server := setupIntegration(t)

	resp, err := http.Get(server.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/admin/tables")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
