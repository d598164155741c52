package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/app/resources"
	"github.com/kumarketplace/marketplace/pkg/mail"
	"github.com/kumarketplace/marketplace/pkg/queue"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, msg *mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func sampleOrder() resources.Order {
	return resources.Order{
		ID:     42,
		Date:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Status: models.StatusProcessing,
		Shipping: resources.Shipping{
			Name: "Jane <b>Doe</b>", Address1: "1 Main St", City: "Lawrence",
			State: "KS", Zip: "66045", Phone: "785-555-0100",
		},
		Subtotal: 39.98, Tax: 3.2, ShippingFee: 5, Total: 48.18,
		Items: []resources.Item{{ID: 1, Title: "Lamp <script>", Price: 19.99, Quantity: 2}},
	}
}

func TestRenderOrderPlaced(t *testing.T) {
	body, err := renderOrderPlaced(sampleOrder())
	require.NoError(t, err)

	assert.Contains(t, body, "New Order #42")
	assert.Contains(t, body, "Jan 15, 2024 10:30 UTC")
	assert.Contains(t, body, "$48.18")
	assert.Contains(t, body, "2x Lamp &lt;script&gt; - $19.99")
	assert.Contains(t, body, "Jane &lt;b&gt;Doe&lt;/b&gt;")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "Apt")

	o := sampleOrder()
	o.Shipping.Address2 = "Apt 4"
	body, err = renderOrderPlaced(o)
	require.NoError(t, err)
	assert.Contains(t, body, "Apt 4<br>")
}

func TestHandleSendsToAdmin(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m *mail.Message) bool {
		return m.SubjectLine() == "New Order #42" &&
			assert.ObjectsAreEqual([]string{"admin@example.com"}, m.Recipients())
	})).Return(nil).Once()

	job := &OrderPlaced{Order: sampleOrder(), sender: sender, to: "admin@example.com"}
	require.NoError(t, job.Handle(context.Background()))
	sender.AssertExpectations(t)
}

func TestHandleSkipsWhenMailNotConfigured(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(mail.ErrNotConfigured)

	job := &OrderPlaced{Order: sampleOrder(), sender: sender, to: "admin@example.com"}
	assert.NoError(t, job.Handle(context.Background()))
}

func TestHandleSkipsWithoutRecipient(t *testing.T) {
	sender := new(mockSender)

	job := &OrderPlaced{Order: sampleOrder(), sender: sender}
	assert.NoError(t, job.Handle(context.Background()))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleReturnsSendError(t *testing.T) {
	boom := errors.New("connection refused")
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(boom)

	job := &OrderPlaced{Order: sampleOrder(), sender: sender, to: "admin@example.com"}
	err := job.Handle(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, queue.ErrPermanent)
}

func TestQueueNotifierDeliversThroughWorkers(t *testing.T) {
	sent := make(chan *mail.Message, 1)
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent <- args.Get(1).(*mail.Message) }).
		Return(nil)

	q := queue.NewManager(queue.NewMemoryDriver(), queue.Options{Backoff: time.Millisecond})
	Register(q, sender, "admin@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		q.Wait()
	}()
	q.Start(ctx, 1)

	order := models.Order{
		ID: 7, Status: models.StatusProcessing, OrderDate: time.Now(),
		ShippingName: "Jane", ShippingCity: "Lawrence",
		Items: []models.OrderItem{{ID: 1, ProductTitle: "Lamp", Quantity: 1}},
	}
	require.NoError(t, NewQueueNotifier(q).OrderPlaced(ctx, order))

	select {
	case msg := <-sent:
		assert.Equal(t, "New Order #7", msg.SubjectLine())
		assert.Contains(t, msg.Content(), "1x Lamp")
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
}
