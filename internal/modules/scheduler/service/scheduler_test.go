package service

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"auto_trader/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeClock отдаёт управляемые каналы вместо таймеров.
type fakeClock struct {
	now time.Time

	mu      sync.Mutex
	waiters []chan time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()
	return ch
}

// fire будит ожидающий канал с индексом i (в порядке создания).
func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	ch := c.waiters[i]
	c.mu.Unlock()
	ch <- c.now
}

func (c *fakeClock) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

type fakeHealth struct {
	mu       sync.Mutex
	ready    bool
	ticks    int
	streamUp bool
}

func (h *fakeHealth) SetReady(v bool) {
	h.mu.Lock()
	h.ready = v
	h.mu.Unlock()
}
func (h *fakeHealth) TouchTick(time.Time) {
	h.mu.Lock()
	h.ticks++
	h.mu.Unlock()
}
func (h *fakeHealth) SetStreamUp(v bool) {
	h.mu.Lock()
	h.streamUp = v
	h.mu.Unlock()
}

func countingJob(ch chan string, name string) Job {
	return func(ctx context.Context) error {
		ch <- name
		return nil
	}
}

func TestRunOnceOrder(t *testing.T) {
	ran := make(chan string, 2)
	s := New(Deps{
		Daily:     countingJob(ran, "daily"),
		Tick:      countingJob(ran, "tick"),
		TickEvery: time.Minute,
		DailyAt:   "00:01",
	})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	close(ran)

	var got []string
	for name := range ran {
		got = append(got, name)
	}
	if len(got) != 2 || got[0] != "daily" || got[1] != "tick" {
		t.Fatalf("порядок джобов = %v", got)
	}
}

func TestRunJobRecoversPanic(t *testing.T) {
	s := New(Deps{
		Daily:     func(ctx context.Context) error { panic("boom") },
		Tick:      func(ctx context.Context) error { return nil },
		TickEvery: time.Minute,
		DailyAt:   "00:01",
	})

	err := s.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("паника должна стать ошибкой, got %v", err)
	}
}

func TestRunForeverCatchUpAndTick(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	health := &fakeHealth{}
	ran := make(chan string, 16)

	s := New(Deps{
		Daily:     countingJob(ran, "daily"),
		Tick:      countingJob(ran, "tick"),
		TickEvery: time.Minute,
		DailyAt:   "00:01",
		Clock:     clock,
		Health:    health,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.RunForever(ctx)
		close(done)
	}()

	// стартовый дневной джоб идёт сразу, без таймера
	if name := <-ran; name != "daily" {
		t.Fatalf("первым должен идти daily, got %s", name)
	}

	// ждём, пока взведутся таймеры daily и tick
	for clock.waiting() < 2 {
		time.Sleep(time.Millisecond)
	}

	clock.fire(1) // тик
	if name := <-ran; name != "tick" {
		t.Fatalf("ожидали tick, got %s", name)
	}

	clock.fire(0) // дневное расписание
	if name := <-ran; name != "daily" {
		t.Fatalf("ожидали daily, got %s", name)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever не остановился по контексту")
	}

	health.mu.Lock()
	defer health.mu.Unlock()
	if health.ticks != 1 {
		t.Fatalf("health ticks = %d, want 1", health.ticks)
	}
	if health.ready {
		t.Fatal("после остановки ready должен сброситься")
	}
}

func TestNextDaily(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   string
		want time.Time
	}{
		{"позже сегодня", "23:15", time.Date(2026, 9, 1, 23, 15, 0, 0, time.UTC)},
		{"уже прошло", "00:01", time.Date(2026, 9, 2, 0, 1, 0, 0, time.UTC)},
		{"кривой формат", "later", time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"вне диапазона", "25:99", time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextDaily(base, tc.at); !got.Equal(tc.want) {
				t.Fatalf("nextDaily(%q) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}
