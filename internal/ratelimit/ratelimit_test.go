package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestWait_SameHost_EnforcesMinDelay(t *testing.T) {
	limiter := NewHostLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "www.jobly.fi"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "www.jobly.fi"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 20ms for timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentHosts_NoCrossBlocking(t *testing.T) {
	limiter := NewHostLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "www.jobly.fi"); err != nil {
		t.Fatalf("jobly wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "duunitori.fi"); err != nil {
		t.Fatalf("duunitori wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected duunitori wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_ConcurrentWaitersAreSerialized(t *testing.T) {
	limiter := NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx, "www.jobly.fi"); err != nil {
				t.Errorf("wait: %v", err)
			}
		}()
	}
	wg.Wait()

	// Three reservations: 0ms, 50ms, 100ms.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected the third waiter to start after ~100ms, got %v", elapsed)
	}
}

func TestWait_PerHostDelay(t *testing.T) {
	limiter := NewHostLimiterFunc(func(host string) time.Duration {
		if host == "slow.example" {
			return 100 * time.Millisecond
		}
		return 0
	})
	ctx := context.Background()

	for range 3 {
		start := time.Now()
		if err := limiter.Wait(ctx, "fast.example"); err != nil {
			t.Fatalf("fast wait: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("expected no delay for fast host, got %v", elapsed)
		}
	}

	_ = limiter.Wait(ctx, "slow.example")
	start := time.Now()
	_ = limiter.Wait(ctx, "slow.example")
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected slow host delay, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewHostLimiter(5 * time.Second)

	if err := limiter.Wait(context.Background(), "www.jobly.fi"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "www.jobly.fi"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestTransport_WaitsBeforeEachRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(srv.Client().Transport, NewHostLimiter(100*time.Millisecond))}

	start := time.Now()
	for range 2 {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected second request to wait, got %v", elapsed)
	}
}
