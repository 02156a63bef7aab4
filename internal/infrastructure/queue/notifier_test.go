package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/core/domain"
)

func collect(t *testing.T, ch <-chan *domain.Identity, n int) []*domain.Identity {
	t.Helper()
	out := make([]*domain.Identity, 0, n)
	for range n {
		select {
		case id := <-ch:
			out = append(out, id)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of %d notifications", len(out), n)
		}
	}
	return out
}

func email(id *domain.Identity) string {
	if id == nil {
		return "<nil>"
	}
	return id.Email
}

func TestNotifier_CurrentFirstThenInOrder(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()
	n.Publish(&domain.Identity{Email: "a@example.com"})

	ch := make(chan *domain.Identity, 16)
	unsubscribe := n.Subscribe(func(id *domain.Identity) { ch <- id })
	defer unsubscribe()

	n.Publish(&domain.Identity{Email: "b@example.com"})
	n.Publish(nil)
	n.Publish(&domain.Identity{Email: "c@example.com"})

	got := collect(t, ch, 4)
	want := []string{"a@example.com", "b@example.com", "<nil>", "c@example.com"}
	for i := range want {
		if email(got[i]) != want[i] {
			t.Errorf("notification %d = %s, want %s", i, email(got[i]), want[i])
		}
	}
}

func TestNotifier_DeliveryIsSerial(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	wg.Add(21)
	n.Subscribe(func(*domain.Identity) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		wg.Done()
	})
	for range 20 {
		n.Publish(&domain.Identity{Email: "x@example.com"})
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent callbacks = %d, want 1", maxActive)
	}
}

func TestNotifier_PublishFromCallbackDoesNotDeadlock(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	ch := make(chan *domain.Identity, 4)
	n.Subscribe(func(id *domain.Identity) {
		if id != nil && id.Email == "intruder@example.com" {
			n.Publish(nil) // forced sign-out from inside the handler
		}
		ch <- id
	})
	n.Publish(&domain.Identity{Email: "intruder@example.com"})

	got := collect(t, ch, 3)
	if email(got[1]) != "intruder@example.com" || got[2] != nil {
		t.Errorf("got %s, %s; want intruder then <nil>", email(got[1]), email(got[2]))
	}
}

func TestNotifier_UnsubscribeStopsDelivery(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	ch := make(chan *domain.Identity, 4)
	unsubscribe := n.Subscribe(func(id *domain.Identity) { ch <- id })
	collect(t, ch, 1)

	unsubscribe()
	unsubscribe()
	n.Publish(&domain.Identity{Email: "late@example.com"})

	select {
	case id := <-ch:
		t.Errorf("received %s after unsubscribe", email(id))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_PanicInCallbackKeepsWorker(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	ch := make(chan *domain.Identity, 4)
	n.Subscribe(func(id *domain.Identity) {
		if id != nil && id.Email == "boom@example.com" {
			panic("boom")
		}
		ch <- id
	})
	n.Publish(&domain.Identity{Email: "boom@example.com"})
	n.Publish(&domain.Identity{Email: "ok@example.com"})

	got := collect(t, ch, 2)
	if email(got[1]) != "ok@example.com" {
		t.Errorf("got %s, want ok@example.com", email(got[1]))
	}
}
