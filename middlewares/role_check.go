package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

// RequireStaff lets staff representatives and managers through.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RoleFromContext(c).IsStaff() {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("staff access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RoleFromContext(c).IsManager() {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("manager access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
