/*
scheduler.go - Automated expiry sweeper

PURPOSE:
  Periodically freezes extra-hour entries whose expiry date has passed.
  The sweep is one bulk statement in the store; this file only owns the
  ticker loop around it.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps immediately on start, then on every tick
  - Already-terminal entries are never touched, so repeated sweeps are
    harmless

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewExpirySweeper(svc)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: TriggerExpiry endpoint (manual sweep)
  - overtime/service.go: ExpireOverdue
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/overtime-engine/overtime"
)

// ExpirySweeper runs the expiry sweep on a timer.
type ExpirySweeper struct {
	Service       *overtime.Service
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpirySweeper creates a new sweeper.
func NewExpirySweeper(svc *overtime.Service) *ExpirySweeper {
	return &ExpirySweeper{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (es *ExpirySweeper) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)

	go es.run()

	log.Printf("[Sweeper] Started with check interval: %v", es.CheckInterval)
}

// Stop stops the sweeper.
func (es *ExpirySweeper) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (es *ExpirySweeper) run() {
	defer es.wg.Done()

	// Run immediately on start
	es.sweep()

	for {
		select {
		case <-es.ticker.C:
			es.sweep()
		case <-es.stop:
			return
		}
	}
}

func (es *ExpirySweeper) sweep() {
	ctx := context.Background()
	now := time.Now()

	swept, err := es.Service.ExpireOverdue(ctx, now)
	if err != nil {
		log.Printf("[Sweeper] Error expiring entries: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("[Sweeper] Expired %d entries at %v", swept, now.Format(time.RFC3339))
	}
}
