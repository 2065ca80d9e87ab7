package coord

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DirectiveHandler is invoked for each directive received from the server.
type DirectiveHandler func(Directive)

// Client maintains a connection to the coordination server, forwarding
// local events upward and dispatching directives to its handler.
type Client struct {
	logger  *zap.Logger
	addr    string
	handler DirectiveHandler

	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
}

// NewClient creates a coordination client for the server at addr. handler
// receives every directive; it must not block.
func NewClient(logger *zap.Logger, addr string, handler DirectiveHandler) *Client {
	return &Client{
		logger:  logger,
		addr:    addr,
		handler: handler,
	}
}

// maxDialFailures is how many consecutive failed connection attempts Run
// tolerates before giving up. A successful connection resets the count.
const maxDialFailures = 10

// ErrUnavailable is returned by Run when the server could not be reached
// after maxDialFailures consecutive attempts. The caller continues in
// standalone mode: no cross-process coordination, local control unaffected.
var ErrUnavailable = errors.New("coordination server unavailable, giving up")

// Run connects and serves directives until ctx is cancelled, reconnecting
// with jittered exponential backoff when the connection drops. While
// disconnected, Send fails and the caller operates in standalone mode.
func (c *Client) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		connected, err := c.serve(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			failures = 0
			policy.Reset()
			c.logger.Warn("Coordination connection lost", zap.Error(err))
		} else {
			failures++
			if failures >= maxDialFailures {
				c.logger.Error("Coordination server unreachable, running standalone",
					zap.Int("attempts", failures),
					zap.Error(err))
				return ErrUnavailable
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.NextBackOff()):
		}
	}
}

// serve dials, reads directives until the stream ends, and tears down the
// connection state on exit. The bool reports whether a connection was ever
// established this round.
func (c *Client) serve(ctx context.Context) (bool, error) {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return false, fmt.Errorf("dial coordination server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.enc = json.NewEncoder(conn)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.enc = nil
		c.mu.Unlock()
		conn.Close()
	}()

	c.logger.Info("Connected to coordination server", zap.String("addr", c.addr))

	// Unblock the scanner when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), scanBufferSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var d Directive
		if err := json.Unmarshal(line, &d); err != nil {
			c.logger.Warn("Dropping malformed directive", zap.Error(err))
			continue
		}
		c.handler(d)
	}
	if err := scanner.Err(); err != nil {
		return true, err
	}
	return true, errors.New("coordination server closed the connection")
}

// ErrNotConnected is returned by Send while no server connection is up.
var ErrNotConnected = errors.New("coordination client is not connected")

// Send forwards a message to the server.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enc == nil {
		return ErrNotConnected
	}
	if err := c.enc.Encode(msg); err != nil {
		return fmt.Errorf("send coordination message: %w", err)
	}
	return nil
}
