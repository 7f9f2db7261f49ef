package protocol

import (
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/restaurant-reservation/models"
)

// Session is the per-connection state. It is owned by the connection's
// serving goroutine and never shared.
type Session struct {
	ID         uuid.UUID
	Role       models.Role
	Username   string
	CustomerID uint
	limiter    *rate.Limiter
}

// NewSession starts a CASUAL session. A zero limit disables rate limiting.
func NewSession(limit rate.Limit, burst int) *Session {
	s := &Session{ID: uuid.New(), Role: models.RoleCasual}
	if limit > 0 {
		s.limiter = rate.NewLimiter(limit, burst)
	}
	return s
}

func (s *Session) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}
