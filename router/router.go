package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeremiapane/restaurant-reservation/controllers"
	"github.com/yeremiapane/restaurant-reservation/middlewares"
)

type Deps struct {
	Verifier       middlewares.TokenVerifier
	RateLimiter    *middlewares.RateLimiter
	AllowedOrigins []string

	Protocol     *controllers.ProtocolController
	Floor        *controllers.FloorController
	Auth         *controllers.AuthController
	Tables       *controllers.TableController
	Reservations *controllers.ReservationController
	Waiting      *controllers.WaitingListController
	Customers    *controllers.CustomerController
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.AllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.RateLimit())
	}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/login", d.Auth.Login)

	// Protocol clients may connect anonymously; a staff token upgrades the session.
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(d.Verifier, false), d.Protocol.Serve)
	r.GET("/ws/floor", middlewares.WebSocketAuthMiddleware(d.Verifier, true), d.Floor.Serve)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(d.Verifier), middlewares.RequireStaff())
	{
		admin.GET("/tables", d.Tables.GetAllTables)
		admin.GET("/tables/stats", d.Tables.GetFloorStats)
		admin.GET("/reservations", d.Reservations.GetAllReservations)
		admin.GET("/reservations/:code", d.Reservations.GetReservationByCode)
		admin.GET("/waiting-list", d.Waiting.GetWaitingList)
		admin.GET("/customers/:customer_id", d.Customers.GetCustomerByID)
		admin.GET("/customers/:customer_id/notifications", d.Customers.GetCustomerNotifications)
	}

	return r
}
