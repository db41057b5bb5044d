// Package delivery forwards behavior events to the remote consumer over
// a persistent websocket, spilling to a durable offline queue whenever
// the link is down and replaying it in order on reconnect.
package delivery

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/behavior"
	"github.com/cavg-team/go-wearable/pkg/protocol"
)

// Stats are the delivery client's cumulative counters.
type Stats struct {
	Sent      uint64 `json:"events_sent"`
	Queued    uint64 `json:"events_queued_offline"`
	Failed    uint64 `json:"events_failed"`
	Replayed  uint64 `json:"events_replayed"`
	Connected bool   `json:"connected"`
	QueueLen  int    `json:"offline_queue_length"`
}

// Client owns the websocket link to the event consumer. It implements
// behavior.Publisher: Publish never fails from the caller's view, events
// that cannot be sent are persisted and replayed later.
type Client struct {
	cfg   Config
	store *OfflineStore

	wsMu      sync.Mutex // guards conn writes and swaps
	conn      *websocket.Conn
	connected atomic.Bool

	onRecalibrate func(reason string)

	sent     atomic.Uint64
	queued   atomic.Uint64
	failed   atomic.Uint64
	replayed atomic.Uint64

	startedAt time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	started   bool
}

// NewClient creates a delivery client. The offline queue file is opened
// lazily; a missing file is an empty queue.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := NewOfflineStore(cfg.OfflinePath)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:   cfg,
		store: store,
		stop:  make(chan struct{}),
	}, nil
}

// OnRecalibrate registers a handler for server-initiated recalibration
// commands. Must be called before Start.
func (c *Client) OnRecalibrate(fn func(reason string)) {
	c.onRecalibrate = fn
}

// Start launches the connection manager and, when configured, the
// heartbeat timer.
func (c *Client) Start() {
	if c.started {
		return
	}
	c.started = true
	c.startedAt = time.Now()

	c.wg.Add(1)
	go c.connectionLoop()

	if c.cfg.HeartbeatURL != "" {
		c.wg.Add(1)
		go c.heartbeatLoop()
	}

	log.Info("delivery client started", "server", c.cfg.ServerURL)
}

// Stop closes the link and terminates the workers.
func (c *Client) Stop() {
	close(c.stop)

	c.wsMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.wsMu.Unlock()

	c.wg.Wait()
	log.Info("delivery client stopped")
}

// Publish implements behavior.Publisher. When the link is up the event
// goes out immediately; a send failure or a down link persists it.
func (c *Client) Publish(ev behavior.Event) {
	wire := protocol.NewEventData(ev)

	if c.connected.Load() {
		if err := c.sendEvent(wire); err == nil {
			c.sent.Add(1)
			return
		}
		log.Warn("event send failed, queueing offline", "behavior", wire.Behavior)
		c.dropConnection()
	}

	if err := c.store.Append(wire); err != nil {
		c.failed.Add(1)
		log.Error("failed to persist event offline", "err", err, "behavior", wire.Behavior)
		return
	}
	c.queued.Add(1)
}

// Connected reports whether the websocket link is up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Stats returns the cumulative delivery counters.
func (c *Client) Stats() Stats {
	return Stats{
		Sent:      c.sent.Load(),
		Queued:    c.queued.Load(),
		Failed:    c.failed.Load(),
		Replayed:  c.replayed.Load(),
		Connected: c.connected.Load(),
		QueueLen:  c.store.Len(),
	}
}

// connectionLoop dials, replays the offline queue, then blocks reading
// the link until it drops. Reconnects forever at a fixed interval.
func (c *Client) connectionLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		conn, err := c.dial()
		if err != nil {
			log.Warn("connect failed, retrying",
				"server", c.cfg.ServerURL, "retry_in", c.cfg.ReconnectInterval, "err", err)
			select {
			case <-c.stop:
				return
			case <-time.After(c.cfg.ReconnectInterval):
			}
			continue
		}

		c.wsMu.Lock()
		c.conn = conn
		c.wsMu.Unlock()
		c.connected.Store(true)
		log.Info("connected to event server", "server", c.cfg.ServerURL)

		c.drainOffline()
		c.readLoop(conn)

		c.dropConnection()
		select {
		case <-c.stop:
			return
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(c.cfg.ServerURL, nil)
	return conn, err
}

// dropConnection tears down the current link and marks it down.
func (c *Client) dropConnection() {
	c.connected.Store(false)
	c.wsMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.wsMu.Unlock()
}

// drainOffline replays queued events oldest-first. The first failure
// stops the replay and re-persists the unsent remainder; the rewrite
// covers only the bytes loaded here, so events Publish appends while the
// replay is in flight stay queued.
func (c *Client) drainOffline() {
	events, consumed, err := c.store.Load()
	if err != nil {
		log.Error("offline queue load failed", "err", err)
		return
	}
	if len(events) == 0 {
		return
	}

	log.Info("replaying offline queue", "events", len(events))
	for i, ev := range events {
		if err := c.sendEvent(ev); err != nil {
			log.Warn("offline replay interrupted", "sent", i, "remaining", len(events)-i, "err", err)
			if err := c.store.ReplacePrefix(events[i:], consumed); err != nil {
				log.Error("failed to re-persist offline remainder", "err", err)
			}
			c.dropConnection()
			return
		}
		c.replayed.Add(1)
		c.sent.Add(1)
	}
	if err := c.store.ReplacePrefix(nil, consumed); err != nil {
		log.Error("failed to truncate offline queue", "err", err)
		return
	}
	log.Info("offline queue drained", "events", len(events))
}

// sendEvent writes one event message with a write deadline. The mutex
// serializes writers per the websocket single-writer requirement.
func (c *Client) sendEvent(ev protocol.EventData) error {
	msg, err := protocol.NewMessage(protocol.TypeEvent, ev)
	if err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// readLoop consumes server messages until the link errors. Acks are
// logged; recalibrate commands invoke the registered handler.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop:
			default:
				log.Warn("connection lost", "err", err)
			}
			return
		}

		msg, err := protocol.ParseMessage(raw)
		if err != nil {
			log.Warn("unparseable server message", "err", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeAck:
			var ack protocol.AckData
			if err := msg.ParseData(&ack); err == nil && !ack.OK {
				log.Warn("server rejected event", "event_id", ack.EventID, "reason", ack.Reason)
			}
		case protocol.TypeRecalibrate:
			var cmd protocol.RecalibrateCommand
			_ = msg.ParseData(&cmd)
			log.Info("server requested recalibration", "reason", cmd.Reason)
			if c.onRecalibrate != nil {
				c.onRecalibrate(cmd.Reason)
			}
		case protocol.TypePing:
			var ping protocol.PingData
			if err := msg.ParseData(&ping); err == nil {
				c.sendPong(ping)
			}
		default:
			log.Debug("ignoring server message", "type", string(msg.Type))
		}
	}
}

func (c *Client) sendPong(ping protocol.PingData) {
	now := time.Now().UnixMilli()
	msg, err := protocol.NewMessage(protocol.TypePong, protocol.PongData{
		ID:        ping.ID,
		PingTS:    ping.Timestamp,
		PongTS:    now,
		LatencyMs: now - ping.Timestamp,
	})
	if err != nil {
		return
	}
	raw, err := msg.Bytes()
	if err != nil {
		return
	}
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.conn == nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	_ = c.conn.WriteMessage(websocket.TextMessage, raw)
}
