package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-reminder/internal/logging"
	"rent-reminder/internal/mailer"
)

type acker struct {
	mu       sync.Mutex
	acked    []uint64
	rejected []uint64
}

func (a *acker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *acker) Nack(uint64, bool, bool) error { return nil }

func (a *acker) Reject(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected = append(a.rejected, tag)
	return nil
}

func (a *acker) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.rejected)
}

type fakeChannel struct {
	deliveries chan amqp.Delivery
}

func (f *fakeChannel) QueueDeclare(string, bool, bool, bool, bool, amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{}, nil
}
func (f *fakeChannel) QueueInspect(string) (amqp.Queue, error) { return amqp.Queue{}, nil }
func (f *fakeChannel) Publish(string, string, bool, bool, amqp.Publishing) error {
	return nil
}
func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}
func (f *fakeChannel) Qos(int, int, bool) error { return nil }
func (f *fakeChannel) Close() error             { return nil }

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if msg.To == "bounce@example.com" {
		return errors.New("550 no such user")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func TestPoolAcksDeliveredAndRejectsFailed(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 3)}
	ack := &acker{}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"to":"awa@example.com","subject":"s","text":"t"}`)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"to":"bounce@example.com","subject":"s","text":"t"}`)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`not json`)}

	mail := &fakeMailer{}
	pool := NewWorkerPool(ch, mail, 2, time.Second, logging.NewDiscard())
	require.NoError(t, pool.Start(context.Background()))

	require.Eventually(t, func() bool {
		acked, rejected := ack.counts()
		return acked == 1 && rejected == 2
	}, 2*time.Second, 10*time.Millisecond)

	pool.Stop()
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.ElementsMatch(t, []uint64{2, 3}, ack.rejected)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "awa@example.com", mail.sent[0].To)
}

func TestPoolStopsWhenDeliveriesClose(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	pool := NewWorkerPool(ch, &fakeMailer{}, 1, 0, logging.NewDiscard())
	require.NoError(t, pool.Start(context.Background()))
	close(ch.deliveries)

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
}
