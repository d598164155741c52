// Package jobs holds the background jobs run by the queue workers.
package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/app/resources"
	"github.com/kumarketplace/marketplace/pkg/logger"
	"github.com/kumarketplace/marketplace/pkg/mail"
	"github.com/kumarketplace/marketplace/pkg/metrics"
	"github.com/kumarketplace/marketplace/pkg/queue"
)

const OrderPlacedName = "order.placed"

// Sender delivers a built message. *mail.Mailer satisfies it.
type Sender interface {
	Send(ctx context.Context, m *mail.Message) error
}

// OrderPlaced emails the store admin about a new order. The order snapshot
// travels in the payload so the worker needs no database access.
type OrderPlaced struct {
	Order resources.Order `json:"order"`

	sender Sender
	to     string
}

func (j *OrderPlaced) JobName() string { return OrderPlacedName }

func (j *OrderPlaced) Handle(ctx context.Context) error {
	log := logger.WithCtx(ctx).With("order_id", j.Order.ID)

	if j.sender == nil || j.to == "" {
		metrics.Notifications.WithLabelValues("skipped").Inc()
		log.Warn("order notification skipped, no admin address")
		return nil
	}

	body, err := renderOrderPlaced(j.Order)
	if err != nil {
		metrics.Notifications.WithLabelValues("error").Inc()
		return fmt.Errorf("render order email: %v: %w", err, queue.ErrPermanent)
	}

	msg := mail.NewMessage().
		To(j.to).
		Subject(fmt.Sprintf("New Order #%d", j.Order.ID)).
		Body(body)

	err = j.sender.Send(ctx, msg)
	switch {
	case errors.Is(err, mail.ErrNotConfigured):
		metrics.Notifications.WithLabelValues("skipped").Inc()
		log.Warn("order notification skipped, mail not configured")
		return nil
	case err != nil:
		metrics.Notifications.WithLabelValues("error").Inc()
		return fmt.Errorf("send order email: %w", err)
	}

	metrics.Notifications.WithLabelValues("sent").Inc()
	log.Info("order notification sent", "to", j.to)
	return nil
}

// Register makes OrderPlaced runnable on q, delivering through sender to
// adminEmail.
func Register(q *queue.Manager, sender Sender, adminEmail string) {
	q.Register(OrderPlacedName, func() queue.Job {
		return &OrderPlaced{sender: sender, to: adminEmail}
	})
}

// QueueNotifier hands placed orders to the queue.
type QueueNotifier struct {
	q *queue.Manager
}

func NewQueueNotifier(q *queue.Manager) *QueueNotifier {
	return &QueueNotifier{q: q}
}

func (n *QueueNotifier) OrderPlaced(ctx context.Context, order models.Order) error {
	return n.q.Dispatch(ctx, &OrderPlaced{Order: resources.NewOrder(order)})
}

var orderPlacedTmpl = template.Must(template.New("order_placed").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date":  func(t time.Time) string { return t.Format("Jan 2, 2006 15:04 MST") },
}).Parse(`<h2>New Order #{{.ID}}</h2>
<p><strong>Date:</strong> {{date .Date}}<br>
<strong>Status:</strong> {{.Status}}<br>
<strong>Total:</strong> ${{money .Total}}</p>
<h3>Items</h3>
<ul>
{{- range .Items}}
  <li>{{.Quantity}}x {{.Title}} - ${{money .Price}}</li>
{{- end}}
</ul>
<h3>Shipping</h3>
<p>{{.Shipping.Name}}<br>
{{.Shipping.Address1}}<br>
{{- with .Shipping.Address2}}
{{.}}<br>
{{- end}}
{{.Shipping.City}}, {{.Shipping.State}} {{.Shipping.Zip}}<br>
{{.Shipping.Phone}}</p>
`))

func renderOrderPlaced(o resources.Order) (string, error) {
	var buf bytes.Buffer
	if err := orderPlacedTmpl.Execute(&buf, o); err != nil {
		return "", err
	}
	return buf.String(), nil
}
