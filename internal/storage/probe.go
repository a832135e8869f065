package storage

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Prober checks whether image urls still resolve.
type Prober struct {
	Client      *http.Client
	Concurrency int
}

func NewProber() *Prober {
	return &Prober{Client: &http.Client{Timeout: 5 * time.Second}, Concurrency: 8}
}

// Broken HEADs every url and returns the ones that errored or answered non-2xx.
func (p *Prober) Broken(ctx context.Context, urls []string) map[string]bool {
	broken := make(map[string]bool)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for _, url := range urls {
		g.Go(func() error {
			if !p.ok(ctx, url) {
				mu.Lock()
				broken[url] = true
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return broken
}

func (p *Prober) ok(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
