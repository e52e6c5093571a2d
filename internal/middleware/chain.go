package middleware

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	appLog "planos/internal/log"
)

// Chain executes middlewares in descending Priority() order.
// If priorities are equal, registration order is preserved.
type Chain struct {
	mu  sync.RWMutex
	mws []Middleware

	debugMu sync.Mutex
	debugW  io.Writer
}

type DecisionResult struct {
	MiddlewareID string
	Priority     int
	Decision     Decision
}

const skippedReason = "skipped (ShouldLoad=false)"

func NewChain(mws ...Middleware) *Chain {
	c := &Chain{}
	for _, mw := range mws {
		c.Use(mw)
	}
	return c
}

// SetDebugWriter enables JSONL debug logging for dispatch decisions.
// If w is nil, logging is disabled.
func (c *Chain) SetDebugWriter(w io.Writer) {
	c.debugMu.Lock()
	defer c.debugMu.Unlock()
	c.debugW = w
}

func (c *Chain) Use(mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mws = append(c.mws, mw)
	sort.SliceStable(c.mws, func(i, j int) bool {
		return c.mws[i].Priority() > c.mws[j].Priority()
	})
}

// IDs lists middleware IDs in dispatch order.
func (c *Chain) IDs() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.mws))
	for i, mw := range c.mws {
		out[i] = mw.ID()
	}
	return out
}

// Dispatch runs all middlewares for the given event, stopping early if a
// middleware returns Decision.Cancel. Decisions are applied to e as they
// arrive so later middlewares see replaced text and params.
func (c *Chain) Dispatch(ctx context.Context, e *Event) ([]DecisionResult, error) {
	c.mu.RLock()
	mws := make([]Middleware, len(c.mws))
	copy(mws, c.mws)
	c.mu.RUnlock()

	results := make([]DecisionResult, 0, len(mws))
	for _, mw := range mws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		beforeText := eventText(e)
		if cmw, ok := mw.(ConditionalMiddleware); ok && !cmw.ShouldLoad(ctx, e) {
			skip := Decision{Reason: skippedReason}
			c.debugLog(e, mw.ID(), mw.Priority(), stepTrace{before: beforeText, dec: skip, skipped: true})
			results = append(results, DecisionResult{MiddlewareID: mw.ID(), Priority: mw.Priority(), Decision: skip})
			continue
		}

		start := time.Now()
		dec, err := mw.OnEvent(ctx, e)
		took := time.Since(start)
		if err != nil {
			c.debugLog(e, mw.ID(), mw.Priority(), stepTrace{before: beforeText, dec: Decision{Reason: err.Error()}, failed: true, took: took})
			return nil, fmt.Errorf("middleware %s: %w", mw.ID(), err)
		}

		applyDecisionToEvent(e, dec)
		c.debugLog(e, mw.ID(), mw.Priority(), stepTrace{before: beforeText, dec: dec, took: took})

		results = append(results, DecisionResult{MiddlewareID: mw.ID(), Priority: mw.Priority(), Decision: dec})
		if dec.Cancel {
			appLog.Debug("middleware canceled dispatch", "event", string(e.Name), "middleware", mw.ID(), "reason", dec.Reason)
			break
		}
	}
	return results, nil
}
