package feed

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultConnectTimeout bounds the wait for the initial socket.io handshake.
const DefaultConnectTimeout = 15 * time.Second

// Config describes the remote feed endpoint.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Client is a connected socket.io feed. It satisfies Source.
type Client struct {
	io *socket.Socket
}

// Dial connects to the feed and blocks until the connection is established,
// refused, ctx is done or the connect timeout elapses.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("component", "feed", "url", cfg.URL)
	logger.Info("Connecting to feed...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("feed URL %q must be absolute", cfg.URL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to feed.", "sid", io.Id())
		notify(connectChan, nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		notify(connectChan, connectError(errs))
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Client{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// On registers fn for the named event.
func (c *Client) On(event string, fn func(args ...any)) {
	c.io.On(types.EventName(event), func(args ...any) {
		fn(args...)
	})
}

// Close disconnects from the feed.
func (c *Client) Close() error {
	c.io.Disconnect()
	return nil
}

// notify delivers the first connection outcome; later ones are dropped.
func notify(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func connectError(args []any) error {
	if len(args) == 0 {
		return fmt.Errorf("connect_error without details")
	}
	if err, ok := args[0].(error); ok {
		return err
	}
	return fmt.Errorf("%v", args[0])
}
