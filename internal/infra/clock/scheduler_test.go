package clock

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextDaily(t *testing.T) {
	at := 5 * time.Hour
	cases := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"до запуска", time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC), time.Hour},
		{"ровно в момент запуска", time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), 24 * time.Hour},
		{"после запуска", time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC), 22*time.Hour + 30*time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextDaily(tc.now, at); got != tc.want {
				t.Fatalf("ожидали %v, получили %v", tc.want, got)
			}
		})
	}
}

func TestRunOnceDispatches(t *testing.T) {
	done := make(chan struct{})
	s := NewScheduler(func(job Job) { job(context.Background()) }, zerolog.Nop())
	defer s.Stop()
	s.RunOnce(time.Millisecond, func(context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("задача не была выполнена")
	}
}
