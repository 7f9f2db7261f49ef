package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-reservation/metrics"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const (
	DefaultNotificationBuffer = 128
	deliveryTimeout           = 10 * time.Second
)

// NotificationQueue hands notices to a single delivery worker. Enqueue never
// waits; nothing on the allocation path depends on delivery.
type NotificationQueue struct {
	queue     chan Notice
	customers CustomerStore
	log       NotificationStore
	senders   []Sender
	wg        sync.WaitGroup
}

// NewNotificationQueue tries senders in order and falls back to the log.
func NewNotificationQueue(size int, customers CustomerStore, log NotificationStore, senders ...Sender) *NotificationQueue {
	if size <= 0 {
		size = DefaultNotificationBuffer
	}
	chain := make([]Sender, 0, len(senders)+1)
	for _, s := range senders {
		if s != nil {
			chain = append(chain, s)
		}
	}
	chain = append(chain, LogSender{})

	return &NotificationQueue{
		queue:     make(chan Notice, size),
		customers: customers,
		log:       log,
		senders:   chain,
	}
}

func (q *NotificationQueue) Enqueue(n Notice) bool {
	select {
	case q.queue <- n:
		return true
	default:
		metrics.Notifications.WithLabelValues("queue", "dropped").Inc()
		utils.ErrorLogger.WithError(ErrNotificationFailure).
			WithField("customer_id", n.CustomerID).
			Warn("notification queue full, notice dropped")
		return false
	}
}

// Start launches the worker. It stops when ctx is cancelled after
// delivering whatever is already queued; each delivery is bounded by
// deliveryTimeout rather than by ctx.
func (q *NotificationQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case n := <-q.queue:
				q.deliver(context.WithoutCancel(ctx), n)
			case <-ctx.Done():
				q.drain(context.WithoutCancel(ctx))
				return
			}
		}
	}()
}

// Wait blocks until the worker has stopped.
func (q *NotificationQueue) Wait() {
	q.wg.Wait()
}

func (q *NotificationQueue) drain(ctx context.Context) {
	for {
		select {
		case n := <-q.queue:
			q.deliver(ctx, n)
		default:
			return
		}
	}
}

func (q *NotificationQueue) deliver(ctx context.Context, n Notice) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	to := Contact{Name: "guest"}
	if customer, err := q.customers.GetByID(ctx, n.CustomerID); err == nil {
		to.Name = customer.DisplayName()
		if customer.Phone != nil {
			to.Phone = *customer.Phone
		}
		if customer.Email != nil {
			to.Email = *customer.Email
		}
	} else {
		utils.ErrorLogger.Printf("Notification contact lookup for customer %d failed: %v", n.CustomerID, err)
	}

	sender := q.pick(to)
	err := sender.Send(ctx, to, n.Subject, n.Message)

	record := &models.Notification{
		CustomerID: n.CustomerID,
		Channel:    sender.Channel(),
		Subject:    n.Subject,
		Message:    n.Message,
		Delivered:  err == nil,
	}
	if err != nil {
		record.Error = err.Error()
		metrics.Notifications.WithLabelValues(sender.Channel(), "failed").Inc()
		utils.ErrorLogger.WithError(fmt.Errorf("%w: %v", ErrNotificationFailure, err)).WithFields(logrus.Fields{
			"customer_id": n.CustomerID,
			"channel":     sender.Channel(),
		}).Warn("notification not delivered")
	} else {
		metrics.Notifications.WithLabelValues(sender.Channel(), "sent").Inc()
	}

	if q.log != nil {
		if err := q.log.Create(ctx, record); err != nil {
			utils.ErrorLogger.Printf("Failed to record notification for customer %d: %v", n.CustomerID, err)
		}
	}
}

func (q *NotificationQueue) pick(to Contact) Sender {
	for _, s := range q.senders {
		if s.CanReach(to) {
			return s
		}
	}
	return LogSender{}
}
