package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

const DefaultOfferSweepInterval = 30 * time.Second

type offerExpirer interface {
	ExpireOffers(ctx context.Context) (int, error)
}

// OfferExpiryJob periodically returns expired table offers to the waiting list.
type OfferExpiryJob struct {
	cron     *cron.Cron
	waiting  offerExpirer
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewOfferExpiryJob(waiting offerExpirer, interval time.Duration) *OfferExpiryJob {
	if interval <= 0 {
		interval = DefaultOfferSweepInterval
	}
	return &OfferExpiryJob{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		waiting:  waiting,
		interval: interval,
	}
}

func (j *OfferExpiryJob) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)
	if _, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), j.RunOnce); err != nil {
		return fmt.Errorf("schedule offer expiry: %w", err)
	}
	j.cron.Start()
	utils.InfoLogger.Printf("Offer expiry sweep scheduled every %s", j.interval)
	return nil
}

// RunOnce performs a single sweep.
func (j *OfferExpiryJob) RunOnce() {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	count, err := j.waiting.ExpireOffers(ctx)
	if err != nil {
		utils.ErrorLogger.Printf("Offer expiry sweep: %v", err)
	}
	if count > 0 {
		utils.InfoLogger.Printf("Expired %d table offers", count)
	}
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (j *OfferExpiryJob) Stop() {
	<-j.cron.Stop().Done()
	if j.cancel != nil {
		j.cancel()
	}
}
