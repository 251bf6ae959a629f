package stream

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config holds stream client configuration.
type Config struct {
	URL                   string
	APIKey                string
	DialTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	EventBufferSize       int
	Logger                *zap.Logger
}

type subscription struct {
	Action      string   `json:"action"`
	Collections []string `json:"collections"`
}

// Manager keeps one websocket to the order stream alive and fans decoded
// events into a buffered channel. Subscriptions survive reconnects.
type Manager struct {
	cfg     Config
	logger  *zap.Logger
	backoff *Backoff
	events  chan Event
	dropped chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	conn       *websocket.Conn
	subscribed map[string]bool

	writeMu         sync.Mutex
	connected       atomic.Bool
	connectionStart atomic.Int64
}

// New creates a stream manager. Call Start to connect.
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 256
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		logger: cfg.Logger,
		backoff: NewBackoff(BackoffConfig{
			InitialDelay: cfg.ReconnectInitialDelay,
			MaxDelay:     cfg.ReconnectMaxDelay,
			Multiplier:   cfg.ReconnectBackoffMult,
			Jitter:       0.2,
		}, cfg.Logger),
		events:     make(chan Event, cfg.EventBufferSize),
		dropped:    make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		subscribed: make(map[string]bool),
	}
}

// Start dials the stream and launches the read, ping and reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("stream-manager-starting", zap.String("url", m.cfg.URL))

	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()
	return nil
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}

	header := http.Header{}
	if m.cfg.APIKey != "" {
		header.Set("X-API-KEY", m.cfg.APIKey)
	}

	conn, _, err := dialer.DialContext(ctx, m.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.connected.Store(true)
	m.connectionStart.Store(time.Now().Unix())
	ActiveConnections.Set(1)

	m.logger.Info("stream-connected")
	return nil
}

func (m *Manager) writeJSON(v any) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// Subscribe adds collections to the subscription set.
func (m *Manager) Subscribe(_ context.Context, collections []string) error {
	m.mu.Lock()
	added := make([]string, 0, len(collections))
	for _, c := range collections {
		if !m.subscribed[c] {
			m.subscribed[c] = true
			added = append(added, c)
		}
	}
	total := len(m.subscribed)
	m.mu.Unlock()

	if len(added) == 0 {
		return nil
	}

	err := m.writeJSON(subscription{Action: "subscribe", Collections: added})
	if err != nil {
		m.mu.Lock()
		for _, c := range added {
			delete(m.subscribed, c)
		}
		total = len(m.subscribed)
		m.mu.Unlock()
		SubscriptionCount.Set(float64(total))
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(total))
	m.logger.Info("subscribed-to-collections",
		zap.Int("new-count", len(added)),
		zap.Int("total-count", total))
	return nil
}

// Unsubscribe removes collections from the subscription set.
func (m *Manager) Unsubscribe(_ context.Context, collections []string) error {
	m.mu.Lock()
	removed := make([]string, 0, len(collections))
	for _, c := range collections {
		if m.subscribed[c] {
			delete(m.subscribed, c)
			removed = append(removed, c)
		}
	}
	total := len(m.subscribed)
	m.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}

	err := m.writeJSON(subscription{Action: "unsubscribe", Collections: removed})
	if err != nil {
		m.mu.Lock()
		for _, c := range removed {
			m.subscribed[c] = true
		}
		total = len(m.subscribed)
		m.mu.Unlock()
		SubscriptionCount.Set(float64(total))
		return fmt.Errorf("write unsubscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(total))
	m.logger.Info("unsubscribed-from-collections",
		zap.Int("count", len(removed)),
		zap.Int("remaining-count", total))
	return nil
}

// Subscriptions returns the subscribed collections, sorted.
func (m *Manager) Subscriptions() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.subscribed))
	for c := range m.subscribed {
		out = append(out, c)
	}
	m.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Connected reports whether the socket is currently up.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

func (m *Manager) readLoop() {
	defer m.wg.Done()

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.logger.Warn("read-error", zap.Error(err))
			if start := m.connectionStart.Load(); start > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(start, 0)).Seconds())
			}
			m.connected.Store(false)
			ActiveConnections.Set(0)

			select {
			case m.dropped <- struct{}{}:
			default:
			}
			return
		}

		events, err := parseFrame(frame)
		if err != nil {
			EventsDroppedTotal.WithLabelValues("unparseable").Inc()
			m.logger.Debug("stream-unparseable-frame",
				zap.Error(err),
				zap.Int("bytes", len(frame)))
			continue
		}

		for _, ev := range events {
			EventsReceivedTotal.WithLabelValues(string(ev.Type)).Inc()
			select {
			case m.events <- ev:
			default:
				EventsDroppedTotal.WithLabelValues("channel_full").Inc()
				m.logger.Warn("event-channel-full",
					zap.String("event-type", string(ev.Type)),
					zap.String("order-hash", ev.OrderHash))
			}
		}
	}
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}
			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			m.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			m.writeMu.Unlock()
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.dropped:
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.backoff.Retry(m.ctx, m.connect)
		if err != nil {
			return
		}
		if m.ctx.Err() != nil {
			m.mu.RLock()
			m.conn.Close()
			m.mu.RUnlock()
			return
		}

		err = m.resubscribeAll()
		if err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err))
		}

		m.wg.Add(1)
		go m.readLoop()
	}
}

func (m *Manager) resubscribeAll() error {
	collections := m.Subscriptions()
	if len(collections) == 0 {
		return nil
	}

	err := m.writeJSON(subscription{Action: "subscribe", Collections: collections})
	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	m.logger.Info("resubscribed-to-all-collections", zap.Int("count", len(collections)))
	return nil
}

// Events returns the channel of decoded events. It is closed by Close.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Close stops all loops and closes the socket.
func (m *Manager) Close() error {
	m.logger.Info("closing-stream-manager")
	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()
	close(m.events)
	m.connected.Store(false)
	ActiveConnections.Set(0)

	m.logger.Info("stream-manager-closed")
	return nil
}
