package uptime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/edvin/wpmanager/internal/model"
)

const userAgent = "wpmanager-uptime/1.0"

// Store is the slice of the uptime service the prober needs.
type Store interface {
	DueChecks(ctx context.Context, now time.Time) ([]model.UptimeCheck, error)
	GetCheck(ctx context.Context, id string) (*model.UptimeCheck, error)
	RecordSuccess(ctx context.Context, checkID string, statusCode, responseTimeMS int, now time.Time) error
	RecordFailure(ctx context.Context, checkID string, now time.Time) error
}

// Prober sends HEAD requests to monitored URLs. Any HTTP response counts as
// a reachable site, whatever the status code; only a transport failure is
// recorded as down. Redirects are followed.
type Prober struct {
	store      Store
	httpClient *http.Client
	timeout    time.Duration
	sem        *semaphore.Weighted
	logger     zerolog.Logger
}

func NewProber(store Store, probeTimeout time.Duration, maxConcurrent int64, logger zerolog.Logger) *Prober {
	return &Prober{
		store:      store,
		httpClient: &http.Client{},
		timeout:    probeTimeout,
		sem:        semaphore.NewWeighted(maxConcurrent),
		logger:     logger.With().Str("component", "uptime-prober").Logger(),
	}
}

// ProbeDue probes every check whose interval has elapsed. Probes run
// concurrently under the semaphore bound; the call returns when all finish.
func (p *Prober) ProbeDue(ctx context.Context, now time.Time) error {
	checks, err := p.store.DueChecks(ctx, now)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, check := range checks {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(check model.UptimeCheck) {
			defer wg.Done()
			defer p.sem.Release(1)
			p.probe(ctx, &check)
		}(check)
	}
	wg.Wait()
	return nil
}

// ProbeCheck probes a single check immediately, regardless of its interval
// or active flag, and returns the refreshed row.
func (p *Prober) ProbeCheck(ctx context.Context, checkID string) (*model.UptimeCheck, error) {
	check, err := p.store.GetCheck(ctx, checkID)
	if err != nil {
		return nil, err
	}
	p.probe(ctx, check)
	return p.store.GetCheck(ctx, checkID)
}

func (p *Prober) probe(ctx context.Context, check *model.UptimeCheck) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	statusCode, err := p.head(probeCtx, check.URL)
	elapsed := time.Since(start)
	now := time.Now()

	if err != nil {
		probesTotal.WithLabelValues("failure").Inc()
		p.logger.Warn().Err(err).Str("check", check.ID).Str("url", check.URL).Msg("probe failed")
		if recErr := p.store.RecordFailure(ctx, check.ID, now); recErr != nil {
			p.logger.Error().Err(recErr).Str("check", check.ID).Msg("failed to record probe failure")
		}
		return
	}

	probesTotal.WithLabelValues("success").Inc()
	probeDuration.Observe(elapsed.Seconds())
	if recErr := p.store.RecordSuccess(ctx, check.ID, statusCode, int(elapsed.Milliseconds()), now); recErr != nil {
		p.logger.Error().Err(recErr).Str("check", check.ID).Msg("failed to record probe result")
	}
}

func (p *Prober) head(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
