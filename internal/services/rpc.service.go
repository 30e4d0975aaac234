package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nigran/internal/protocol"
)

// ConnState is the transport client's connection state. It is owned
// exclusively by the client and only changes through the transitions in
// Connect, Disconnect, handleClosed and scheduleReconnect.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

const (
	defaultRequestTimeout    = 10 * time.Second
	defaultReconnectInterval = 3 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
	connectTimeout           = 10 * time.Second

	methodHeartbeat = "common:heartbeat"
)

// ErrConnectionClosed rejects every call still pending when the
// connection goes away.
var ErrConnectionClosed = errors.New("connection closed")

var errNotConnected = errors.New("websocket not connected")

// RPCOptions configures one transport client. Zero durations fall back
// to the package defaults.
type RPCOptions struct {
	AutoConnect          bool
	AutoReconnect        bool
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	RequestTimeout       time.Duration
	EnableHeartbeat      bool
	HeartbeatInterval    time.Duration
	// Headers are attached to the discrete-exchange carrier only.
	Headers map[string]string
}

// RPCEvents are the client's lifecycle callbacks. Set them before
// Connect; they are invoked from the client's own goroutines and must
// not block. OnMessage receives every frame that is not a correlated
// response, i.e. server pushes such as the live-status feed.
type RPCEvents struct {
	OnConnect      func()
	OnDisconnect   func(err error)
	OnError        func(err error)
	OnReconnecting func(attempt int)
	OnMessage      func(raw []byte)
}

// CallOptions tunes a single call. A zero Timeout uses the client's
// RequestTimeout. A Notification call expects no response and never
// creates a pending entry.
type CallOptions struct {
	Timeout      time.Duration
	Notification bool
}

type callResult struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	ch chan callResult
}

// RPCClient owns one logical connection to the backend: the duplex
// socket, the discrete-exchange fallback, the pending-call correlation
// table, heartbeat and reconnection.
type RPCClient struct {
	httpURL   string
	socketURL string
	opts      RPCOptions
	Events    RPCEvents

	httpClient *http.Client

	mu                sync.Mutex
	writeMu           sync.Mutex
	state             ConnState
	conn              *websocket.Conn
	closed            bool
	pending           map[string]*pendingCall
	nextID            uint64
	reconnectAttempts int
	reconnectTimer    *time.Timer
	hbStop            chan struct{}
}

// NewRPCClient builds a client for the given endpoint. The endpoint may
// be given with an http(s) or ws(s) scheme; the other carrier's URL is
// derived by swapping the scheme.
func NewRPCClient(endpoint string, opts RPCOptions) (*RPCClient, error) {
	socketURL, err := deriveSocketURL(endpoint)
	if err != nil {
		return nil, err
	}
	httpURL, err := deriveHTTPURL(endpoint)
	if err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = defaultReconnectInterval
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	return &RPCClient{
		httpURL:    httpURL,
		socketURL:  socketURL,
		opts:       opts,
		httpClient: &http.Client{},
		state:      StateDisconnected,
		pending:    make(map[string]*pendingCall),
	}, nil
}

func deriveSocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	return u.String(), nil
}

func deriveHTTPURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// State returns the current connection state.
func (c *RPCClient) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the duplex socket. It is a no-op while already
// connected or connecting, and re-arms a client that was explicitly
// disconnected.
func (c *RPCClient) Connect() error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.state = StateConnecting
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
	conn, _, err := dialer.Dial(c.socketURL, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateError
		c.mu.Unlock()
		log.Printf("[RPC] connect to %s failed: %v", c.socketURL, err)
		c.emitError(err)
		c.scheduleReconnect()
		return err
	}

	c.mu.Lock()
	if c.closed {
		// Disconnect was requested while the dial was in flight.
		c.mu.Unlock()
		conn.Close()
		return ErrConnectionClosed
	}
	c.conn = conn
	c.state = StateConnected
	c.reconnectAttempts = 0
	c.startHeartbeatLocked()
	c.mu.Unlock()

	go c.readPump(conn)
	log.Printf("[RPC] connected to %s", c.socketURL)
	if h := c.Events.OnConnect; h != nil {
		h()
	}
	return nil
}

// Disconnect tears the connection down and disables auto-reconnect
// until the next explicit Connect. Every outstanding call is rejected
// with ErrConnectionClosed and the correlation table is cleared.
func (c *RPCClient) Disconnect() {
	c.mu.Lock()
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	calls := c.takePendingLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	for _, pc := range calls {
		pc.ch <- callResult{err: ErrConnectionClosed}
	}
	if wasConnected {
		log.Printf("[RPC] disconnected")
		c.emitDisconnect(nil)
	}
}

func (c *RPCClient) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClosed(conn, err)
			return
		}
		c.handleMessage(raw)
	}
}

// handleMessage routes one inbound frame. A well-formed response whose
// ID matches a pending call resolves that call; a response with an
// unknown ID is dropped (the call already timed out); everything else
// is a server push handed to OnMessage.
func (c *RPCClient) handleMessage(raw []byte) {
	var resp protocol.Response
	if err := json.Unmarshal(raw, &resp); err == nil && resp.ID != nil && (resp.Result != nil || resp.Error != nil) {
		key := protocol.IDKey(resp.ID)
		c.mu.Lock()
		pc := c.pending[key]
		delete(c.pending, key)
		c.mu.Unlock()
		if pc == nil {
			return
		}
		if resp.Error != nil {
			pc.ch <- callResult{err: resp.Error}
		} else {
			pc.ch <- callResult{result: resp.Result}
		}
		return
	}
	if h := c.Events.OnMessage; h != nil {
		h(raw)
	}
}

func (c *RPCClient) handleClosed(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// Stale pump; the connection was already replaced or torn down.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.stopHeartbeatLocked()
	calls := c.takePendingLocked()
	c.mu.Unlock()

	conn.Close()
	for _, pc := range calls {
		pc.ch <- callResult{err: ErrConnectionClosed}
	}
	log.Printf("[RPC] connection lost: %v", err)
	c.emitDisconnect(err)
	c.scheduleReconnect()
}

// scheduleReconnect arms the reconnect timer unless the client was
// explicitly disconnected, auto-reconnect is off, a timer is already
// armed, or the attempt budget is spent.
func (c *RPCClient) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || !c.opts.AutoReconnect || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	if c.opts.MaxReconnectAttempts > 0 && c.reconnectAttempts >= c.opts.MaxReconnectAttempts {
		c.state = StateDisconnected
		attempts := c.reconnectAttempts
		c.mu.Unlock()
		log.Printf("[RPC] giving up after %d reconnect attempts", attempts)
		return
	}
	c.reconnectAttempts++
	attempt := c.reconnectAttempts
	c.state = StateReconnecting
	c.reconnectTimer = time.AfterFunc(c.opts.ReconnectInterval, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if err := c.Connect(); err != nil {
			log.Printf("[RPC] reconnect attempt %d failed: %v", attempt, err)
		}
	})
	c.mu.Unlock()

	log.Printf("[RPC] reconnecting in %s (attempt %d)", c.opts.ReconnectInterval, attempt)
	if h := c.Events.OnReconnecting; h != nil {
		h(attempt)
	}
}

// startHeartbeatLocked restarts the heartbeat fresh for the current
// connection. Caller holds c.mu.
func (c *RPCClient) startHeartbeatLocked() {
	c.stopHeartbeatLocked()
	if !c.opts.EnableHeartbeat {
		return
	}
	stop := make(chan struct{})
	c.hbStop = stop
	interval := c.opts.HeartbeatInterval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := c.notifySocket(methodHeartbeat, nil); err != nil {
					log.Printf("[RPC] heartbeat: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
}

func (c *RPCClient) stopHeartbeatLocked() {
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
}

// Call issues a correlated request with the default options.
func (c *RPCClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.CallWith(ctx, method, params, CallOptions{})
}

// Notify sends a fire-and-forget request. No pending entry is created
// and no response is awaited, whatever the connection state.
func (c *RPCClient) Notify(method string, params interface{}) error {
	_, err := c.CallWith(context.Background(), method, params, CallOptions{Notification: true})
	return err
}

// CallWith dispatches one call. While Connected the duplex socket is
// tried first; on any failure there the discrete carrier is tried
// exactly once and its outcome, success or failure, is the final one.
// In any other state the socket is skipped entirely, with a background
// connect kicked off when auto-connect allows it.
func (c *RPCClient) CallWith(ctx context.Context, method string, params interface{}, o CallOptions) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.State() == StateConnected {
		result, err := c.callWebSocket(ctx, method, params, o)
		if err == nil {
			return result, nil
		}
		log.Printf("[RPC] websocket call %s failed, trying http: %v", method, err)
		return c.callHTTP(ctx, method, params, o)
	}
	c.maybeAutoConnect()
	return c.callHTTP(ctx, method, params, o)
}

func (c *RPCClient) maybeAutoConnect() {
	c.mu.Lock()
	kick := c.opts.AutoConnect && !c.closed && c.state == StateDisconnected && c.reconnectTimer == nil
	c.mu.Unlock()
	if !kick {
		return
	}
	go func() {
		if err := c.Connect(); err != nil {
			log.Printf("[RPC] background connect failed: %v", err)
		}
	}()
}

// callWebSocket sends one request over the duplex socket. For a
// correlated call a pending entry is registered before the send and
// removed by whichever comes first: the matching response, the
// timeout, or context cancellation. A response arriving after the
// timeout finds no entry and is dropped.
func (c *RPCClient) callWebSocket(ctx context.Context, method string, params interface{}, o CallOptions) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return nil, errNotConnected
	}
	conn := c.conn
	var req protocol.Request
	var pc *pendingCall
	var key string
	if o.Notification {
		req = protocol.NewNotification(method, params)
	} else {
		c.nextID++
		id := c.nextID
		req = protocol.NewRequest(id, method, params)
		key = protocol.IDKey(id)
		pc = &pendingCall{ch: make(chan callResult, 1)}
		c.pending[key] = pc
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	err := conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		if pc != nil {
			c.dropPending(key)
		}
		return nil, fmt.Errorf("websocket send: %w", err)
	}
	if o.Notification {
		return nil, nil
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = c.opts.RequestTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-pc.ch:
		return res.result, res.err
	case <-timer.C:
		c.dropPending(key)
		return nil, fmt.Errorf("request %s timed out after %s", method, timeout)
	case <-ctx.Done():
		c.dropPending(key)
		return nil, ctx.Err()
	}
}

func (c *RPCClient) notifySocket(method string, params interface{}) error {
	_, err := c.callWebSocket(context.Background(), method, params, CallOptions{Notification: true})
	return err
}

func (c *RPCClient) dropPending(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

// takePendingLocked empties the correlation table. Caller holds c.mu.
func (c *RPCClient) takePendingLocked() []*pendingCall {
	calls := make([]*pendingCall, 0, len(c.pending))
	for _, pc := range c.pending {
		calls = append(calls, pc)
	}
	c.pending = make(map[string]*pendingCall)
	return calls
}

func (c *RPCClient) emitError(err error) {
	if h := c.Events.OnError; h != nil {
		h(err)
	}
}

func (c *RPCClient) emitDisconnect(err error) {
	if h := c.Events.OnDisconnect; h != nil {
		h(err)
	}
}
