package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

type tableCounter interface {
	CountByStatus(ctx context.Context) (map[models.TableStatus]int64, error)
}

type TableController struct {
	Tables  *services.TableTracker
	Counter tableCounter
	Hub     services.FloorPublisher
}

func NewTableController(tables *services.TableTracker, counter tableCounter, publisher services.FloorPublisher) *TableController {
	return &TableController{Tables: tables, Counter: counter, Hub: publisher}
}

// GetAllTables -> snapshot of the floor
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.Snapshot(c.Request.Context())
	if err != nil {
		utils.ErrorLogger.Printf("List tables: %v", err)
		utils.RespondJSON(c, http.StatusServiceUnavailable, "Tables are not available right now", nil)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetFloorStats -> table counts per status; also pushed to dashboards
func (tc *TableController) GetFloorStats(c *gin.Context) {
	counts, err := tc.Counter.CountByStatus(c.Request.Context())
	if err != nil {
		utils.ErrorLogger.Printf("Count tables: %v", err)
		utils.RespondJSON(c, http.StatusServiceUnavailable, "Stats are not available right now", nil)
		return
	}

	stats := map[string]int64{
		"available": counts[models.TableAvailable],
		"reserved":  counts[models.TableReserved],
		"occupied":  counts[models.TableOccupied],
	}
	stats["total"] = stats["available"] + stats["reserved"] + stats["occupied"]

	if tc.Hub != nil {
		tc.Hub.Publish(hub.Message{Event: hub.EventDashboardUpdate, Data: stats})
	}
	utils.RespondJSON(c, http.StatusOK, "Floor stats", stats)
}
