// Package wsclient reads JSON frames from a websocket stream endpoint and
// keeps the connection alive across drops.
package wsclient

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultReadTimeout = 5 * time.Minute
	writeTimeout       = 10 * time.Second
)

// Client is a reconnecting websocket client.
type Client struct {
	url  string
	log  *zap.Logger
	conn *websocket.Conn
	mu   sync.Mutex

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once

	read  chan []byte
	errCh chan error

	started bool

	// active stream subscriptions, used for resubscribing after reconnect
	subs map[string]struct{}

	readTimeout  time.Duration
	reconnectMin time.Duration
	reconnectMax time.Duration
}

// SubscribeRequest is the control frame for (un)subscribing to streams.
type SubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

type Option func(*Client)

// WithReconnectBackoff bounds the delay between reconnect attempts.
func WithReconnectBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.reconnectMin = min
		c.reconnectMax = max
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(c *Client) { c.readTimeout = d }
}

// New creates a client for url. Nothing is dialed until Connect.
func New(url string, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		url:          url,
		log:          log.With(zap.String("component", "wsclient"), zap.String("url", url)),
		done:         make(chan struct{}),
		read:         make(chan []byte, 100),
		errCh:        make(chan error, 10),
		subs:         make(map[string]struct{}),
		readTimeout:  DefaultReadTimeout,
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the endpoint and starts the read loop.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	conn, err := c.dial()
	if err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		return err
	}
	c.setConn(conn)

	go c.run()
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))

	// answer server pings and push the deadline out
	conn.SetPingHandler(func(appData string) error {
		c.log.Debug("received ping, extending deadline")
		conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

func (c *Client) getConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// IsConnected reports whether the client currently has an active websocket connection.
func (c *Client) IsConnected() bool {
	return c.getConn() != nil
}

func (c *Client) clearConnIfSame(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) snapshotSubs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return nil
	}
	streams := make([]string, 0, len(c.subs))
	for s := range c.subs {
		streams = append(streams, s)
	}
	return streams
}

// Subscribe asks the server for streams. While disconnected the request is
// remembered and sent on the next reconnect.
func (c *Client) Subscribe(streams []string, id int) error {
	c.mu.Lock()
	for _, s := range streams {
		c.subs[s] = struct{}{}
	}
	c.mu.Unlock()

	return c.send(SubscribeRequest{Method: "SUBSCRIBE", Params: streams, ID: id})
}

// Unsubscribe stops streams. While disconnected it only forgets them.
func (c *Client) Unsubscribe(streams []string, id int) error {
	c.mu.Lock()
	for _, s := range streams {
		delete(c.subs, s)
	}
	c.mu.Unlock()

	return c.send(SubscribeRequest{Method: "UNSUBSCRIBE", Params: streams, ID: id})
}

func (c *Client) send(req SubscribeRequest) error {
	conn := c.getConn()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.clearConnIfSame(conn)
		_ = conn.Close()
		return err
	}
	return nil
}

func (c *Client) run() {
	defer func() {
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		close(c.read)
	}()

	backoff := c.reconnectMin
	resubscribeID := 1

	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn := c.getConn()
		if conn == nil {
			newConn, err := c.dial()
			if err != nil {
				sleep := min(backoff, c.reconnectMax)
				c.log.Warn("websocket dial failed", zap.Error(err), zap.Duration("retry_in", sleep))
				select {
				case <-time.After(sleep):
				case <-c.done:
					return
				}
				backoff = min(backoff*2, c.reconnectMax)
				continue
			}

			c.setConn(newConn)
			backoff = c.reconnectMin
			conn = newConn

			streams := c.snapshotSubs()
			if len(streams) > 0 {
				if err := c.send(SubscribeRequest{Method: "SUBSCRIBE", Params: streams, ID: resubscribeID}); err != nil {
					c.log.Warn("resubscribe failed", zap.Error(err))
					continue
				}
				resubscribeID++
				c.log.Info("reconnected and resubscribed", zap.Int("streams", len(streams)))
			} else {
				c.log.Info("reconnected")
			}
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			// transient disconnect (e.g. close 1001): clear the conn and retry
			c.log.Warn("websocket read error, reconnecting", zap.Error(err))
			c.clearConnIfSame(conn)
			_ = conn.Close()
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		select {
		case c.read <- message:
		case <-c.done:
			return
		}
	}
}

// Messages returns the channel of received frames. It is closed when the
// client shuts down.
func (c *Client) Messages() <-chan []byte {
	return c.read
}

// Errors returns a channel to receive errors
func (c *Client) Errors() <-chan error {
	return c.errCh
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	var conn *websocket.Conn
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn = c.conn
		c.conn = nil
		c.mu.Unlock()
	})
	if conn != nil {
		return conn.Close()
	}
	return nil
}
