// Package metrics provides lock-free counters for one console session:
// bytes and chunks in each direction, plus why the session ended.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a console session.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsTotal atomic.Int64
	bytesIn          atomic.Int64 // console → operator
	bytesOut         atomic.Int64 // operator → console
	chunksIn         atomic.Int64
	chunksOut        atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	connectedAt  time.Time
	closedAt     time.Time
	closeReason  string
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// Connected records a successful connect to the console.
func (c *Collector) Connected() {
	if c == nil {
		return
	}
	c.connectionsTotal.Add(1)
	c.mu.Lock()
	c.connectedAt = time.Now()
	c.mu.Unlock()
}

// Closed records the end of the session.  Only the first reason sticks.
func (c *Collector) Closed(reason string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closedAt.IsZero() {
		return
	}
	c.closedAt = time.Now()
	c.closeReason = reason
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records one chunk of n bytes read from the console.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
	c.chunksIn.Add(1)
}

// BytesSent records one chunk of n bytes written to the console.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
	c.chunksOut.Add(1)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	ConnectionsTotal int64  `json:"connections_total"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	ChunksIn         int64  `json:"chunks_in"`
	ChunksOut        int64  `json:"chunks_out"`
	ErrorsTotal      int64  `json:"errors_total"`
	Connected        string `json:"connected,omitempty"`
	Closed           string `json:"closed,omitempty"`
	CloseReason      string `json:"close_reason,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsTotal: c.connectionsTotal.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		ChunksIn:         c.chunksIn.Load(),
		ChunksOut:        c.chunksOut.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
		CloseReason:      c.closeReason,
		LastErrorMessage: c.lastErrorMsg,
	}
	if !c.connectedAt.IsZero() {
		s.Connected = c.connectedAt.Format(time.RFC3339)
	}
	if !c.closedAt.IsZero() {
		s.Closed = c.closedAt.Format(time.RFC3339)
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
