package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/notify"
)

const (
	publishBuffer  = 256
	publishTimeout = 5 * time.Second
	dialTimeout    = 5 * time.Second
)

// ErrBufferFull is returned by Notify when the outgoing buffer is full and
// the event was dropped.
var ErrBufferFull = errors.New("rabbitmq: publish buffer full, event dropped")

// Publisher forwards reservation events to RabbitMQ.  It implements
// notify.Sink so it can sit beside the websocket hub in a notify.Multi.
// Each reservation change reaches the sink once per channel; only the copy
// addressed to the lot owner is published, so every change is queued once.
// Map updates carry no reservation and are not published.
//
// Notify only enqueues; Run drains the buffer on its own goroutine.
type Publisher struct {
	url   string
	log   *zap.Logger
	now   func() time.Time
	send  func(ctx context.Context, body []byte) error
	queue chan []byte

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher that dials url lazily on first publish
// and redials after the connection drops.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return newPublisher(url, log, publishBuffer)
}

func newPublisher(url string, log *zap.Logger, buffer int) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		url:   url,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		queue: make(chan []byte, buffer),
	}
	p.send = p.publish
	return p
}

// Notify implements notify.Sink.  It never waits on the broker.
func (p *Publisher) Notify(ctx context.Context, ev notify.Event) error {
	r, ok := ev.Payload.(model.Reservation)
	if !ok || ev.Channel != notify.OwnerChannel(r.LotID) {
		return nil
	}
	body, err := json.Marshal(NewReservationEvent(ev.Name, r, p.now()))
	if err != nil {
		return err
	}
	select {
	case p.queue <- body:
		return nil
	default:
		p.log.Warn("rabbitmq: publish buffer full, dropping event",
			zap.String("event", ev.Name), zap.Uint64("reservation_id", r.ID))
		return ErrBufferFull
	}
}

// Run publishes buffered events until ctx is done, then closes the broker
// connection.  Each publish is bounded by publishTimeout; failures are
// logged and the event is dropped.
func (p *Publisher) Run(ctx context.Context) {
	defer func() { _ = p.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case body := <-p.queue:
			sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := p.send(sendCtx, body); err != nil {
				p.log.Warn("rabbitmq: publish failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// publish writes body to QueueName as a persistent message.
func (p *Publisher) publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		p.reset()
		return err
	}
	return nil
}

// channel returns the open channel, dialing and declaring the queue when
// needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.conn != nil {
		err = p.conn.Close()
		if errors.Is(err, amqp.ErrClosed) {
			err = nil
		}
	}
	p.conn, p.ch = nil, nil
	return err
}

// dial connects with a bounded TCP connect and handshake.
func dial(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
}
