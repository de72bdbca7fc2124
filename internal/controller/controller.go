// Package controller runs the background worker that pumps telnet
// events into a session.Session, and the non-blocking try-lock
// façade through which a foreground caller (a CLI event loop, a TUI)
// drives keyboard input without ever contending with the worker.
//
// The try-lock discipline is grounded on the teacher's internal/telnetserver/adapter.go goroutine
// patterns; the idle-timeout poll is grounded on TelnetConn.Read's
// short-read-deadline loop.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/dtg01100/tn5250r-go/internal/logging"
	"github.com/dtg01100/tn5250r-go/internal/protoerr"
	"github.com/dtg01100/tn5250r-go/internal/session"
	"github.com/dtg01100/tn5250r-go/internal/telnet"
	"github.com/dtg01100/tn5250r-go/internal/transport"
)

// Options configures a Controller's timeouts and optional metrics.
type Options struct {
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration // 0 disables idle-timeout surfacing
	Metrics        *Metrics      // nil disables metrics
}

// Controller owns one connection's transport, negotiator, and session,
// and serializes foreground keyboard calls against the background
// worker with a non-blocking try-lock.
type Controller struct {
	conn    *transport.Conn
	neg     *telnet.Negotiator
	sess    *session.Session
	opts    Options

	mu     sync.Mutex
	record []byte // bytes accumulated since the last record boundary

	idleTimer *time.Timer
}

// New builds a Controller around an already-connected transport. neg
// must already be wired to the same conn (telnet.New takes conn as its
// Sender); sess has no connection of its own.
func New(conn *transport.Conn, neg *telnet.Negotiator, sess *session.Session, opts Options) *Controller {
	return &Controller{conn: conn, neg: neg, sess: sess, opts: opts}
}

// Run pumps transport events until ctx is done or the transport
// closes. It is meant to run on its own goroutine; foreground callers
// use Type/Backspace/Tab/... concurrently.
func (c *Controller) Run(ctx context.Context) error {
	if c.opts.IdleTimeout > 0 {
		c.idleTimer = time.NewTimer(c.opts.IdleTimeout)
		defer c.idleTimer.Stop()
		go c.watchIdle(ctx)
	}

	for {
		ev, err := c.conn.ReadEvent(ctx)
		if err != nil {
			if pe, ok := err.(*protoerr.Error); ok && pe.Kind == protoerr.TransportClosed {
				return err
			}
			return err
		}
		c.resetIdle()

		switch ev.Type {
		case transport.EventCommand, transport.EventSubnegotiation:
			if err := c.neg.HandleEvent(ev); err != nil {
				logging.Debug("controller: negotiation error: %v", err)
				if c.opts.Metrics != nil {
					c.opts.Metrics.NegotiationErrors.Inc()
				}
				if pe, ok := err.(*protoerr.Error); ok && pe.Kind.Fatal() {
					return err
				}
			}
		case transport.EventData:
			c.mu.Lock()
			c.record = append(c.record, ev.Data...)
			c.mu.Unlock()
		case transport.EventRecordBoundary:
			c.mu.Lock()
			rec := c.record
			c.record = nil
			if len(rec) == 0 {
				c.mu.Unlock()
				continue
			}
			err := c.sess.FeedBytes(rec)
			c.mu.Unlock()
			if err != nil {
				logging.Debug("controller: record error: %v", err)
				if pe, ok := err.(*protoerr.Error); ok && pe.Kind.Fatal() {
					return err
				}
				continue
			}
			if c.opts.Metrics != nil {
				c.opts.Metrics.RecordsProcessed.Inc()
			}
		}
	}
}

func (c *Controller) resetIdle() {
	if c.idleTimer == nil {
		return
	}
	if !c.idleTimer.Stop() {
		select {
		case <-c.idleTimer.C:
		default:
		}
	}
	c.idleTimer.Reset(c.opts.IdleTimeout)
}

func (c *Controller) watchIdle(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.idleTimer.C:
			logging.Debug("controller: idle timeout, session remains open")
			if c.opts.Metrics != nil {
				c.opts.Metrics.IdleTimeouts.Inc()
			}
			c.idleTimer.Reset(c.opts.IdleTimeout)
		}
	}
}

// tryLocked runs fn while holding the mutex, returning Busy if another
// foreground call (or a field touched by Run) already holds it.
func (c *Controller) tryLocked(op string, fn func() error) error {
	if !c.mu.TryLock() {
		if c.opts.Metrics != nil {
			c.opts.Metrics.BusyRejections.Inc()
		}
		return protoerr.New(protoerr.Busy, op, nil)
	}
	defer c.mu.Unlock()
	return fn()
}

func (c *Controller) Type(r rune) error {
	return c.tryLocked("controller.Type", func() error { return c.sess.TypeChar(r) })
}

func (c *Controller) Backspace() error {
	return c.tryLocked("controller.Backspace", c.sess.Backspace)
}

func (c *Controller) Delete() error {
	return c.tryLocked("controller.Delete", c.sess.Delete)
}

func (c *Controller) Tab() error {
	return c.tryLocked("controller.Tab", c.sess.Tab)
}

func (c *Controller) BackTab() error {
	return c.tryLocked("controller.BackTab", c.sess.BackTab)
}

func (c *Controller) FunctionKey(aid session.AID) error {
	return c.tryLocked("controller.FunctionKey", func() error {
		if err := c.sess.FunctionKey(aid); err != nil {
			return err
		}
		c.flushOutbound()
		return nil
	})
}

func (c *Controller) flushOutbound() {
	for _, rec := range c.sess.DrainOutbound() {
		if err := c.conn.WriteRecord(rec); err != nil {
			logging.Debug("controller: write outbound record failed: %v", err)
		}
	}
}

// Snapshot returns the session, whose Display() buffer is read for
// rendering. It takes no lock: callers should still prefer to read it
// only while holding no concurrent Type/Tab/... call in flight; the
// display package itself is not safe for concurrent read/write.
func (c *Controller) Snapshot() *session.Session {
	return c.sess
}
