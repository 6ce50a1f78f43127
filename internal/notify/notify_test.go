package notify_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iliyamo/parking-slot-reservation/internal/notify"
	"go.uber.org/zap"
)

func TestChannels(t *testing.T) {
	if got := notify.DriverChannel(7); got != "user:7" {
		t.Fatalf("DriverChannel = %q", got)
	}
	if got := notify.OwnerChannel(3); got != "owner:3" {
		t.Fatalf("OwnerChannel = %q", got)
	}
}

func TestMultiTriesEverySink(t *testing.T) {
	boom := errors.New("boom")
	rec := &notify.Recorder{}
	m := notify.Multi{
		notify.SinkFunc(func(context.Context, notify.Event) error { return boom }),
		nil,
		rec,
	}
	err := m.Notify(context.Background(), notify.Event{Channel: notify.MapChannel, Name: "spot:updated"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := len(rec.Events()); n != 1 {
		t.Fatalf("recorder got %d events, want 1", n)
	}
}

func TestRecorderNamed(t *testing.T) {
	rec := &notify.Recorder{}
	_ = rec.Notify(context.Background(), notify.Event{Name: "a"})
	_ = rec.Notify(context.Background(), notify.Event{Name: "b"})
	_ = rec.Notify(context.Background(), notify.Event{Name: "a"})
	if n := len(rec.Named("a")); n != 2 {
		t.Fatalf("Named(a) = %d, want 2", n)
	}
	rec.Reset()
	if n := len(rec.Events()); n != 0 {
		t.Fatalf("after reset %d events", n)
	}
}

func TestHubDeliversToSubscribedChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := notify.NewHub(zap.NewNop())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, []string{notify.DriverChannel(7), notify.MapChannel})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// another driver's event must not arrive
	if err := hub.Notify(ctx, notify.Event{Channel: notify.DriverChannel(8), Name: "booking:created"}); err != nil {
		t.Fatal(err)
	}
	if err := hub.Notify(ctx, notify.Event{Channel: notify.DriverChannel(7), Name: "booking:confirmed"}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got notify.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Name != "booking:confirmed" || got.Channel != "user:7" {
		t.Fatalf("got %+v", got)
	}
}

func TestHubNotifyAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := notify.NewHub(zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if err := hub.Notify(context.Background(), notify.Event{Name: "x"}); !errors.Is(err, notify.ErrHubClosed) {
		t.Fatalf("err = %v, want ErrHubClosed", err)
	}
}
