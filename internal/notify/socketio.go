package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIOConfig configures the socket.io publisher.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// ConnectTimeout bounds the initial handshake. Defaults to 15 seconds.
	ConnectTimeout time.Duration
}

// SocketIOPublisher emits every PhaseEvent as a "phase_status" event on a
// socket.io connection.
type SocketIOPublisher struct {
	emit       func(ev string, args ...any)
	disconnect func()
}

func newSocketIOPublisher(io *socket.Socket) *SocketIOPublisher {
	return &SocketIOPublisher{
		emit:       func(ev string, args ...any) { io.Emit(ev, args...) },
		disconnect: func() { io.Disconnect() },
	}
}

// DialSocketIO connects to a socket.io server and returns a publisher
// bound to that connection.
func DialSocketIO(ctx context.Context, cfg SocketIOConfig) (*SocketIOPublisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "notify", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify URL %q must be absolute", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
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

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected to notify server.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		logger.Info("Publishing phase events over socket.io.")
		return newSocketIOPublisher(io), nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Publish emits ev. The event is sent as a single JSON object argument.
func (p *SocketIOPublisher) Publish(ctx context.Context, ev PhaseEvent) error {
	if ctx.Err() != nil {
		return fmt.Errorf("failed to emit %s for %s: %w", EventName, ev.Phase, ctx.Err())
	}
	p.emit(EventName, ev)
	ctxlog.FromContext(ctx).Debug("Emitted phase event.", "phase", ev.Phase.String(), "status", ev.Status.String())
	return nil
}

// Close disconnects from the server.
func (p *SocketIOPublisher) Close() error {
	p.disconnect()
	return nil
}
