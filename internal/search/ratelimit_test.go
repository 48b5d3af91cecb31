package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const ddgResultPage = `<html><body><div class="result results_links"><a class="result__a" href="https://example.com/one">Example One</a> <a class="result__snippet">First snippet</a></div></body></html>`

func TestDuckDuckGoConcurrentSearches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ddgResultPage))
	}))
	defer server.Close()

	provider := NewDuckDuckGoProvider()
	provider.baseURL = server.URL
	provider.limiter = newRateLimiter(time.Millisecond)

	// The fan-out searcher calls one provider from up to 5 goroutines at
	// once; the rate-limit bookkeeping must survive that.
	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = provider.Search(context.Background(), "query", Config{MaxResults: 5})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Concurrent search %d failed: %v", i, err)
		}
	}
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	limiter := newRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.wait(ctx); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}
	if err := limiter.wait(ctx); err != nil {
		t.Fatalf("Second wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected at least one interval between calls, elapsed %v", elapsed)
	}
}

func TestRateLimiterFirstCallIsImmediate(t *testing.T) {
	limiter := newRateLimiter(5 * time.Second)

	start := time.Now()
	if err := limiter.wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected first call to pass without delay, took %v", elapsed)
	}
}

func TestRateLimiterHonorsCancellation(t *testing.T) {
	limiter := newRateLimiter(10 * time.Second)
	if err := limiter.wait(context.Background()); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := limiter.wait(ctx)
	if err == nil {
		t.Fatal("Expected context error from cancelled wait")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected cancelled wait to return promptly, took %v", elapsed)
	}
}
