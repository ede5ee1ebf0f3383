package coindash

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/etnz/coindash/metrics"
)

// MarketProvider fetches a complete market snapshot.
type MarketProvider interface {
	FetchMarket(ctx context.Context) (*Market, error)
}

// RateProvider fetches an exchange rate table.
type RateProvider interface {
	FetchRates(ctx context.Context) (Rates, error)
}

// Refresher pulls snapshots from providers and applies them to a dashboard.
//
// Each refresh takes a sequence number before fetching: a slow fetch that
// completes after a more recent one is discarded by the dashboard.
type Refresher struct {
	Dashboard *Dashboard
	Market    MarketProvider
	Rates     RateProvider // optional

	seq atomic.Uint64
}

// Refresh fetches the rates then the market and applies them. On failure the
// last good snapshot stays in use and the error is returned.
func (r *Refresher) Refresh(ctx context.Context) error {
	var errs []error
	if r.Rates != nil {
		seq := r.seq.Add(1)
		rates, err := r.Rates.FetchRates(ctx)
		if err != nil {
			log.Printf("cannot fetch rates #%d: %v", seq, err)
			metrics.FetchFailures.WithLabelValues("rates").Inc()
			errs = append(errs, fmt.Errorf("rates: %w", err))
		} else {
			r.Dashboard.ApplyRates(seq, rates)
		}
	}
	if r.Market != nil {
		seq := r.seq.Add(1)
		m, err := r.Market.FetchMarket(ctx)
		if err != nil {
			log.Printf("cannot fetch market #%d: %v", seq, err)
			metrics.FetchFailures.WithLabelValues("market").Inc()
			errs = append(errs, fmt.Errorf("market: %w", err))
		} else {
			r.Dashboard.ApplyMarket(seq, m)
		}
	}
	return errors.Join(errs...)
}

// Run refreshes immediately then every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	r.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}
