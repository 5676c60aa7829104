package server

import (
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"SingularityDashboard/internal/format"
	"SingularityDashboard/internal/techtree"
)

// Collector gathers server counters.
type Collector struct {
	SessionsActive atomic.Int64
	SessionsTotal  atomic.Int64
	Ticks          atomic.Int64
	TickLatencySum atomic.Int64 // nanoseconds
	TickLatencyMax atomic.Int64
	Loads          atomic.Int64
	Unlocks        atomic.Int64
	Samples        atomic.Int64
	MessagesIn     atomic.Int64
	MessagesOut    atomic.Int64
	Rejected       atomic.Int64
	WSErrors       atomic.Int64

	startTime time.Time
}

// NewCollector creates a collector whose uptime starts now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordTick records how long one Tick dispatch took.
func (c *Collector) RecordTick(latency time.Duration) {
	c.Ticks.Add(1)
	c.TickLatencySum.Add(int64(latency))
	for {
		cur := c.TickLatencyMax.Load()
		if int64(latency) <= cur || c.TickLatencyMax.CompareAndSwap(cur, int64(latency)) {
			return
		}
	}
}

// RecordSession records a session opening (+1) or closing (-1).
func (c *Collector) RecordSession(delta int64) {
	c.SessionsActive.Add(delta)
	if delta > 0 {
		c.SessionsTotal.Add(delta)
	}
}

// RecordMessage records a websocket frame.
func (c *Collector) RecordMessage(incoming bool) {
	if incoming {
		c.MessagesIn.Add(1)
	} else {
		c.MessagesOut.Add(1)
	}
}

type cacheStats interface {
	CacheStats() (hits, misses uint64)
	CacheLen() int
}

// Snapshot returns current metrics as a JSON-ready map.
func (c *Collector) Snapshot(cache cacheStats) map[string]any {
	ticks := c.Ticks.Load()
	var tickAvg float64
	if ticks > 0 {
		tickAvg = float64(c.TickLatencySum.Load()) / float64(ticks) / 1e6
	}
	snap := map[string]any{
		"uptime_seconds": time.Since(c.startTime).Seconds(),
		"sessions": map[string]any{
			"active": c.SessionsActive.Load(),
			"total":  c.SessionsTotal.Load(),
		},
		"engine": map[string]any{
			"ticks":          ticks,
			"avg_tick_ms":    tickAvg,
			"max_tick_ms":    float64(c.TickLatencyMax.Load()) / 1e6,
			"loads":          c.Loads.Load(),
			"unlocks":        c.Unlocks.Load(),
			"samples":        c.Samples.Load(),
			"rejected_input": c.Rejected.Load(),
		},
		"websocket": map[string]any{
			"messages_in":  c.MessagesIn.Load(),
			"messages_out": c.MessagesOut.Load(),
			"errors":       c.WSErrors.Load(),
		},
	}
	if cache != nil {
		hits, misses := cache.CacheStats()
		snap["validation_cache"] = map[string]any{
			"hits":    hits,
			"misses":  misses,
			"entries": cache.CacheLen(),
		}
	}
	return snap
}

// sessionHooks feeds engine transitions into the logger and collector.
type sessionHooks struct {
	logger  *log.Logger
	metrics *Collector
}

func (h sessionHooks) OnLoad(state *techtree.State) {
	h.metrics.Loads.Add(1)
	h.logger.Info("Scenario loaded", "scenario", state.Scenario().ID, "techs", state.Graph().Len())
}

func (h sessionHooks) OnUnlock(state *techtree.State, tech *techtree.Technology) {
	h.metrics.Unlocks.Add(1)
	h.logger.Info("Tech unlocked",
		"tech", tech.ID,
		"cost", format.RP(tech.BaseCost),
		"rate", format.Rate(state.ResearchRate()),
		"unlocked", state.UnlockedCount(),
	)
}

func (h sessionHooks) OnSample(state *techtree.State, sample techtree.RateSample) {
	h.metrics.Samples.Add(1)
	h.logger.Debug("Rate sampled", "elapsed", format.Elapsed(sample.ElapsedSeconds), "rate", sample.ResearchRate)
}
