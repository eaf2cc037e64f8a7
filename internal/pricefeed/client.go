// Package pricefeed streams price ticks and wallet trade signals over
// a WebSocket market-data endpoint. The client reconnects with
// exponential backoff and resubscribes every active stream, so
// consumers see one long-lived channel per subscription.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/domain"
)

// Config tunes connection behavior.
type Config struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	SubscribeTimeout  time.Duration

	// OnReconnect is called once per reconnect attempt. May be nil.
	OnReconnect func()
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

const (
	methodSubscribePrices = "priceSubscribe"
	methodSubscribeTrades = "tradeSubscribe"
	notifyPrice           = "priceNotification"
	notifyTrade           = "tradeNotification"
)

// subscription is one active stream; kind and params survive
// reconnects so the stream can be re-established under a new id.
type subscription struct {
	method string
	params any
	prices chan *domain.PricePoint
	trades chan *domain.Candidate
}

// Client is a reconnecting WebSocket feed client.
type Client struct {
	endpoint string
	config   Config

	conn   *websocket.Conn
	connMu sync.Mutex

	closed    atomic.Bool
	requestID atomic.Uint64

	subs   map[int64]*subscription
	subsMu sync.RWMutex

	pending   map[uint64]chan int64
	pendingMu sync.Mutex

	reconnecting atomic.Bool
	reconnects   atomic.Uint64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient connects and starts the read and keepalive loops.
func NewClient(ctx context.Context, endpoint string, config *Config) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[int64]*subscription),
		pending:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("feed dial %s: %w", c.endpoint, err)
	}
	c.conn = conn
	return nil
}

// Reconnects returns how many reconnect attempts have been made.
func (c *Client) Reconnects() uint64 {
	return c.reconnects.Load()
}

// SubscribePrices streams ticks for the given assets. The channel
// stays open across reconnects and closes only on Close.
func (c *Client) SubscribePrices(ctx context.Context, assetIDs []string) (<-chan *domain.PricePoint, error) {
	sub := &subscription{
		method: methodSubscribePrices,
		params: map[string]any{"assets": assetIDs},
		prices: make(chan *domain.PricePoint, 10000),
	}
	if err := c.establish(ctx, sub); err != nil {
		return nil, err
	}
	return sub.prices, nil
}

// SubscribeTrades streams trade signals for the given wallets. An
// empty wallet list subscribes to all followed wallets.
func (c *Client) SubscribeTrades(ctx context.Context, wallets []string) (<-chan *domain.Candidate, error) {
	params := map[string]any{}
	if len(wallets) > 0 {
		params["wallets"] = wallets
	}
	sub := &subscription{
		method: methodSubscribeTrades,
		params: params,
		trades: make(chan *domain.Candidate, 10000),
	}
	if err := c.establish(ctx, sub); err != nil {
		return nil, err
	}
	return sub.trades, nil
}

// establish sends the subscribe request and registers the stream under
// the server-assigned id.
func (c *Client) establish(ctx context.Context, sub *subscription) error {
	subID, err := c.requestSubscription(ctx, sub.method, sub.params)
	if err != nil {
		return err
	}

	c.subsMu.Lock()
	c.subs[subID] = sub
	c.subsMu.Unlock()
	return nil
}

func (c *Client) requestSubscription(ctx context.Context, method string, params any) (int64, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("feed client closed")
	}

	reqID := c.requestID.Add(1)
	confirm := make(chan int64, 1)

	c.pendingMu.Lock()
	c.pending[reqID] = confirm
	c.pendingMu.Unlock()

	abort := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	req := wireRequest{JSONRPC: "2.0", ID: reqID, Method: method, Params: params}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		abort()
		return 0, fmt.Errorf("feed not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		abort()
		return 0, fmt.Errorf("feed subscribe write: %w", err)
	}

	select {
	case subID := <-confirm:
		return subID, nil
	case <-time.After(c.config.SubscribeTimeout):
		abort()
		return 0, fmt.Errorf("feed subscribe timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, fmt.Errorf("feed client closed")
	case <-ctx.Done():
		abort()
		return 0, ctx.Err()
	}
}

// Close shuts down the connection and closes all stream channels.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		if sub.prices != nil {
			close(sub.prices)
		}
		if sub.trades != nil {
			close(sub.trades)
		}
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	delay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(delay)
			}

			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		delay = c.config.ReconnectDelay
		c.dispatch(message)
	}
}

func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}
	c.reconnects.Add(1)
	if c.config.OnReconnect != nil {
		c.config.OnReconnect()
	}
	log.Warn().Str("endpoint", c.endpoint).Dur("delay", delay).Msg("feed reconnecting")

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.connect(ctx); err != nil {
		log.Error().Err(err).Msg("feed reconnect failed")
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-establishes every stream under a fresh id while
// keeping the consumer-facing channels.
func (c *Client) resubscribeAll() {
	c.subsMu.RLock()
	active := make(map[int64]*subscription, len(c.subs))
	for id, sub := range c.subs {
		active[id] = sub
	}
	c.subsMu.RUnlock()

	for oldID, sub := range active {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.requestSubscription(ctx, sub.method, sub.params)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("method", sub.method).Msg("feed resubscribe failed")
			continue
		}

		c.subsMu.Lock()
		delete(c.subs, oldID)
		c.subs[newID] = sub
		c.subsMu.Unlock()
	}
}

func (c *Client) dispatch(message []byte) {
	var resp wireSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			select {
			case ch <- resp.Result:
			default:
			}
		}
		return
	}

	var notif wireNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Params == nil {
		return
	}

	c.subsMu.RLock()
	sub, ok := c.subs[notif.Params.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		return
	}

	switch notif.Method {
	case notifyPrice:
		var tick wireTick
		if err := json.Unmarshal(notif.Params.Result, &tick); err != nil {
			return
		}
		point := &domain.PricePoint{
			AssetID:     tick.AssetID,
			TimestampMs: tick.TimestampMs,
			Price:       tick.Price,
		}
		// Blocking send keeps ordering; the buffer absorbs bursts.
		select {
		case sub.prices <- point:
		case <-c.done:
		}
	case notifyTrade:
		var trade wireTrade
		if err := json.Unmarshal(notif.Params.Result, &trade); err != nil {
			return
		}
		kind := domain.WalletKindLong
		if trade.Side == "SHORT" {
			kind = domain.WalletKindShort
		}
		cand := &domain.Candidate{
			WalletAddress:  trade.Wallet,
			WalletKind:     kind,
			AssetID:        trade.AssetID,
			ObservedPrice:  trade.Price,
			ObservedTimeMs: trade.TimestampMs,
			PlayID:         trade.PlayID,
		}
		select {
		case sub.trades <- cand:
		case <-c.done:
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A failed ping surfaces as a read error; the reader
				// owns reconnection.
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// Wire types.

type wireRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type wireSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
}

type wireNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  *wireParams `json:"params"`
}

type wireParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type wireTick struct {
	AssetID     string  `json:"asset_id"`
	TimestampMs int64   `json:"timestamp_ms"`
	Price       float64 `json:"price"`
}

type wireTrade struct {
	Wallet      string  `json:"wallet"`
	Side        string  `json:"side"`
	AssetID     string  `json:"asset_id"`
	Price       float64 `json:"price"`
	TimestampMs int64   `json:"timestamp_ms"`
	PlayID      int64   `json:"play_id"`
}
