package loop

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestSendDeliversInOrder(t *testing.T) {
	var got []int
	m := New(func(msg int) { got = append(got, msg) })

	for i := 1; i <= 3; i++ {
		if !m.Send(i) {
			t.Fatalf("send %d dropped", i)
		}
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected delivery order %v", got)
	}
}

func TestReentrantSendIsQueued(t *testing.T) {
	var got []string
	var m *Mailbox[string]
	m = New(func(msg string) {
		got = append(got, "start "+msg)
		if msg == "save" {
			m.Send("saved")
		}
		got = append(got, "end "+msg)
	})

	m.Send("save")

	want := []string{"start save", "end save", "start saved", "end saved"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("reentrant send was not deferred: %v", got)
	}
}

func TestConcurrentSendersNeverOverlap(t *testing.T) {
	var active, maxActive, handled int32
	m := New(func(int) {
		n := atomic.AddInt32(&active, 1)
		for {
			prev := atomic.LoadInt32(&maxActive)
			if n <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, n) {
				break
			}
		}
		atomic.AddInt32(&handled, 1)
		atomic.AddInt32(&active, -1)
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Send(i)
			}
		}()
	}
	wg.Wait()
	m.Wait()

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Fatalf("handler ran concurrently, max active %d", got)
	}
	if got := atomic.LoadInt32(&handled); got != 800 {
		t.Fatalf("expected 800 messages handled, got %d", got)
	}
}

func TestCloseDropsLaterMessages(t *testing.T) {
	var buf bytes.Buffer
	var got []int
	m := New(func(msg int) { got = append(got, msg) }, WithLogger(zerolog.New(&buf)), WithName("people"))

	m.Send(1)
	m.Close()
	if m.Send(2) {
		t.Fatalf("expected send after close to report a drop")
	}
	if !m.Closed() {
		t.Fatalf("expected mailbox to report closed")
	}
	if len(got) != 1 {
		t.Fatalf("message delivered after close: %v", got)
	}
	if !strings.Contains(buf.String(), `"mailbox":"people"`) {
		t.Fatalf("expected drop to be logged, got %q", buf.String())
	}
}

func TestCloseDiscardsQueuedMessages(t *testing.T) {
	var got []int
	var m *Mailbox[int]
	m = New(func(msg int) {
		got = append(got, msg)
		if msg == 1 {
			m.Send(2)
			m.Close()
		}
	})

	m.Send(1)
	if len(got) != 1 {
		t.Fatalf("queued message delivered after close: %v", got)
	}
}

func TestHandlerPanicIsLoggedAndDeliveryContinues(t *testing.T) {
	var buf bytes.Buffer
	var got []int
	var m *Mailbox[int]
	m = New(func(msg int) {
		if msg == 1 {
			m.Send(2)
			panic("boom")
		}
		got = append(got, msg)
	}, WithLogger(zerolog.New(&buf)))

	m.Send(1)

	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected delivery to continue after panic, got %v", got)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}

func TestInlineRunnerResultsAreQueued(t *testing.T) {
	var got []string
	var m *Mailbox[string]
	m = New(func(msg string) {
		got = append(got, msg)
		if msg == "load" {
			Inline(func() { m.Send("loaded") })
			got = append(got, "after load")
		}
	})

	m.Send("load")

	if strings.Join(got, ",") != "load,after load,loaded" {
		t.Fatalf("inline task result applied out of order: %v", got)
	}
}

func TestGoRunnerResultsAreDelivered(t *testing.T) {
	done := make(chan string, 1)
	m := New(func(msg string) { done <- msg })

	Go(func() { m.Send("loaded") })

	if got := <-done; got != "loaded" {
		t.Fatalf("unexpected message %q", got)
	}
}
