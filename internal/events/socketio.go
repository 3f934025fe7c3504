package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// PublisherConfig describes the socket.io server progress is pushed to.
type PublisherConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
	// RunID is stamped on every payload.
	RunID string
}

// Publisher forwards events to a socket.io server. Emission is fire and
// forget; a dropped connection never affects the run.
type Publisher struct {
	runID string
	emit  func(event string, payload map[string]any)
	close func()
}

// Connect dials the server and waits for the namespace to connect.
func Connect(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("publisher", "socketio", "url", cfg.URL)
	logger.Info("Connecting event publisher...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("events URL must be absolute: %q", cfg.URL)
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
		logger.Info("Event publisher connected", "sid", io.Id())
		notify(connectChan, nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Debug("'connect_error' event fired", "error", err)
		notify(connectChan, err)
	})

	io.Connect()

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	return &Publisher{
		runID: cfg.RunID,
		emit:  func(event string, payload map[string]any) { io.Emit(event, payload) },
		close: func() { io.Disconnect() },
	}, nil
}

// notify hands the first connection outcome to the waiting Connect. Later
// outcomes, such as a connect after a timeout, are dropped.
func notify(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// Observe implements Observer.
func (p *Publisher) Observe(ctx context.Context, e Event) {
	payload := Payload(p.runID, e)
	ctxlog.FromContext(ctx).Debug("Publishing event", "event", e.Kind, "job", e.Job)
	p.emit(string(e.Kind), payload)
}

// Close disconnects from the server.
func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}

// Payload is the JSON-friendly body sent for e.
func Payload(runID string, e Event) map[string]any {
	payload := map[string]any{
		"run_id": runID,
		"at":     e.At.UTC().Format(time.RFC3339Nano),
	}
	if e.Job != "" {
		payload["job"] = e.Job
		payload["status"] = e.Status.String()
	}
	if len(e.Output) > 0 {
		payload["output"] = e.Output
	}
	if e.Err != nil {
		payload["error"] = e.Err.Error()
	}
	return payload
}
