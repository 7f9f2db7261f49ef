package services

import (
	"context"
	"crypto/rand"
	"fmt"
)

const (
	// No 0/O or 1/I so codes survive being read aloud or typed from paper.
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength      = 6
	maxCodeAttempts = 16
)

type codeChecker interface {
	CodeInUse(ctx context.Context, code string) (bool, error)
}

// CodeGenerator issues confirmation codes that are unique across live
// reservations and waiting entries. Callers hold the floor lock so that a
// code cannot be drawn twice between the check and the insert.
type CodeGenerator struct {
	checkers []codeChecker
	draw     func() (string, error)
}

func NewCodeGenerator(reservations ReservationStore, waiting WaitingStore) *CodeGenerator {
	return &CodeGenerator{
		checkers: []codeChecker{reservations, waiting},
		draw:     randomCode,
	}
}

func (g *CodeGenerator) Next(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", fmt.Errorf("draw confirmation code: %w", err)
		}

		taken := false
		for _, c := range g.checkers {
			inUse, err := c.CodeInUse(ctx, code)
			if err != nil {
				return "", err
			}
			if inUse {
				taken = true
				break
			}
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free confirmation code after %d attempts: %w", maxCodeAttempts, ErrConflict)
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// len(codeAlphabet) is 32, so the modulo keeps the draw uniform.
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
