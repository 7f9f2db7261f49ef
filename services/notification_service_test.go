package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/repository"
)

type mockSender struct {
	mock.Mock
	channel string
}

func (m *mockSender) Channel() string { return m.channel }

func (m *mockSender) CanReach(to Contact) bool {
	return m.Called(to).Bool(0)
}

func (m *mockSender) Send(ctx context.Context, to Contact, subject, message string) error {
	return m.Called(to, subject, message).Error(0)
}

func notificationsFor(t *testing.T, f *fixture, customerID uint) []models.Notification {
	t.Helper()
	list, err := repository.NewNotificationRepository(f.db).ListByCustomer(f.ctx, customerID)
	require.NoError(t, err)
	return list
}

func runQueue(t *testing.T, q *NotificationQueue, notices ...Notice) {
	t.Helper()
	for _, n := range notices {
		require.True(t, q.Enqueue(n))
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	cancel()
	q.Wait()
}

func TestNotificationQueue_DeliversThroughFirstReachableSender(t *testing.T) {
	f := newFixture(t)
	customer := f.addCustomer(t, models.RoleCasual)

	sms := &mockSender{channel: ChannelSMS}
	sms.On("CanReach", mock.Anything).Return(true)
	sms.On("Send", mock.MatchedBy(func(c Contact) bool { return c.Phone == *customer.Phone }),
		"Your table is ready", "Table 3 is waiting").Return(nil).Once()
	email := &mockSender{channel: ChannelEmail}

	q := NewNotificationQueue(4, f.customerRepo, repository.NewNotificationRepository(f.db), sms, email)
	runQueue(t, q, Notice{CustomerID: customer.ID, Subject: "Your table is ready", Message: "Table 3 is waiting"})

	sms.AssertExpectations(t)
	email.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	sent := notificationsFor(t, f, customer.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, ChannelSMS, sent[0].Channel)
	assert.True(t, sent[0].Delivered)
}

func TestNotificationQueue_FallsBackToLog(t *testing.T) {
	f := newFixture(t)
	customer := f.addCustomer(t, models.RoleCasual)

	email := &mockSender{channel: ChannelEmail}
	email.On("CanReach", mock.Anything).Return(false)

	q := NewNotificationQueue(4, f.customerRepo, repository.NewNotificationRepository(f.db), email)
	runQueue(t, q, Notice{CustomerID: customer.ID, Subject: "Hi", Message: "Hello"})

	sent := notificationsFor(t, f, customer.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, ChannelLog, sent[0].Channel)
	assert.True(t, sent[0].Delivered)
}

func TestNotificationQueue_RecordsFailedDelivery(t *testing.T) {
	f := newFixture(t)
	customer := f.addCustomer(t, models.RoleCasual)

	sms := &mockSender{channel: ChannelSMS}
	sms.On("CanReach", mock.Anything).Return(true)
	sms.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("carrier rejected"))

	q := NewNotificationQueue(4, f.customerRepo, repository.NewNotificationRepository(f.db), sms)
	runQueue(t, q, Notice{CustomerID: customer.ID, Subject: "Hi", Message: "Hello"})

	sent := notificationsFor(t, f, customer.ID)
	require.Len(t, sent, 1)
	assert.False(t, sent[0].Delivered)
	assert.Contains(t, sent[0].Error, "carrier rejected")
}

func TestNotificationQueue_EnqueueNeverBlocks(t *testing.T) {
	f := newFixture(t)
	q := NewNotificationQueue(2, f.customerRepo, nil)

	assert.True(t, q.Enqueue(Notice{CustomerID: 1}))
	assert.True(t, q.Enqueue(Notice{CustomerID: 2}))

	done := make(chan bool)
	go func() { done <- q.Enqueue(Notice{CustomerID: 3}) }()
	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestNotificationQueue_UnknownCustomerStillDelivered(t *testing.T) {
	f := newFixture(t)
	q := NewNotificationQueue(1, f.customerRepo, repository.NewNotificationRepository(f.db))
	runQueue(t, q, Notice{CustomerID: 999, Subject: "Hi", Message: "Hello"})

	sent := notificationsFor(t, f, 999)
	require.Len(t, sent, 1)
	assert.Equal(t, ChannelLog, sent[0].Channel)
}
