package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/notify"
)

func sample() model.Reservation {
	return model.Reservation{
		ID:            7,
		LotID:         3,
		DriverID:      11,
		VehiclePlate:  "AB123",
		Window:        model.Window{Start: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC)},
		AmountDue:     decimal.NewFromInt(12),
		ExtraCharges:  decimal.NewFromInt(4),
		Status:        model.StatusCompleted,
		PaymentStatus: model.PaymentPaid,
	}
}

func TestPublisherQueuesOwnerCopyOnly(t *testing.T) {
	p := newPublisher("amqp://unused", nil, 8)
	r := sample()
	ctx := context.Background()

	for _, ev := range []notify.Event{
		{Channel: notify.DriverChannel(r.DriverID), Name: "booking:exited", Payload: r},
		{Channel: notify.OwnerChannel(r.LotID), Name: "booking:exited", Payload: r},
		{Channel: notify.MapChannel, Name: "spot:exited", Payload: struct{ LotID uint64 }{3}},
	} {
		if err := p.Notify(ctx, ev); err != nil {
			t.Fatalf("Notify(%s): %v", ev.Channel, err)
		}
	}
	if len(p.queue) != 1 {
		t.Fatalf("queued %d messages, want 1", len(p.queue))
	}
	var got ReservationEvent
	if err := json.Unmarshal(<-p.queue, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Event != "booking:exited" || got.ReservationID != 7 || got.AmountDue != "12.00" || got.EventID == "" {
		t.Fatalf("event = %+v", got)
	}
}

func TestPublisherDropsWhenBufferFull(t *testing.T) {
	p := newPublisher("amqp://unused", nil, 1)
	r := sample()
	ev := notify.Event{Channel: notify.OwnerChannel(r.LotID), Name: "x", Payload: r}
	if err := p.Notify(context.Background(), ev); err != nil {
		t.Fatalf("first Notify: %v", err)
	}
	if err := p.Notify(context.Background(), ev); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("second Notify err = %v, want ErrBufferFull", err)
	}
}

func TestPublisherRunSendsAndSurvivesErrors(t *testing.T) {
	p := newPublisher("amqp://unused", nil, 8)
	sent := make(chan []byte, 8)
	calls := 0
	p.send = func(ctx context.Context, body []byte) error {
		calls++
		if calls == 1 {
			return errors.New("broker down")
		}
		sent <- body
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	r := sample()
	ev := notify.Event{Channel: notify.OwnerChannel(r.LotID), Name: "booking:completed", Payload: r}
	_ = p.Notify(ctx, ev)
	_ = p.Notify(ctx, ev)
	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("second event was not published after the first failed")
	}
	cancel()
	<-done
}

// silentBroker accepts TCP connections and never answers the handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestNotifyDoesNotWaitOnSilentBroker(t *testing.T) {
	p := NewPublisher(silentBroker(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	r := sample()
	ev := notify.Event{Channel: notify.OwnerChannel(r.LotID), Name: "booking:created", Payload: r}
	began := time.Now()
	for i := 0; i < 20; i++ {
		if err := p.Notify(ctx, ev); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	if d := time.Since(began); d > 500*time.Millisecond {
		t.Fatalf("20 notifications took %v", d)
	}
}

func TestConsumerWritesAuditLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsumer("amqp://unused", &buf, nil)
	body, _ := json.Marshal(NewReservationEvent("booking:completed", sample(), time.Date(2026, 6, 1, 11, 20, 0, 0, time.UTC)))

	if err := c.handle(body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[2026-06-01T11:20:00Z] booking:completed", "reservation_id=7", `plate="AB123"`, "amount_due=12.00"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestConsumerRejectsMalformed(t *testing.T) {
	c := NewConsumer("amqp://unused", &bytes.Buffer{}, nil)
	if err := c.handle([]byte("{")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := c.handle([]byte(`{"event":"x"}`)); err == nil {
		t.Fatal("expected incomplete event error")
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		t.Fatal("sleep ignored cancelled context")
	}
}
