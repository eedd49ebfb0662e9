// Package socketio publishes pipeline events to a Socket.IO server so a
// dashboard can follow a run live.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vk/radarize/internal/ctxlog"
	"github.com/vk/radarize/internal/notify"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the Socket.IO event every notification is emitted as.
const EventName = "pipeline_event"

// Options configures Dial.
type Options struct {
	// Namespace defaults to "/".
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Publisher is a notify.Notifier backed by a connected Socket.IO client.
type Publisher struct {
	io     *socket.Socket
	logger *slog.Logger
}

// Dial connects to rawURL and waits for the connection to be established.
// A zero timeout means 15s.
func Dial(ctx context.Context, rawURL string, o Options) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("notifier", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid notify URL %q: scheme and host are required", rawURL)
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	namespace := o.Namespace
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to progress dashboard.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
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

	logger.Debug("Initiating connection...")
	io.Connect()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Publisher{io: io, logger: logger}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Notify emits ev as a pipeline_event message.
func (p *Publisher) Notify(_ context.Context, ev notify.Event) {
	p.logger.Debug("Emitting event.", "kind", ev.Kind, "stage", ev.Stage)
	if err := p.io.Emit(EventName, Payload(ev)); err != nil {
		p.logger.Warn("Failed to emit event.", "kind", ev.Kind, "error", err)
	}
}

// Close disconnects the client.
func (p *Publisher) Close() error {
	p.logger.Debug("Disconnecting socket client")
	p.io.Disconnect()
	return nil
}

// Payload renders an event as the message body sent to the server.
func Payload(ev notify.Event) map[string]any {
	m := map[string]any{
		"run_id": ev.RunID,
		"kind":   string(ev.Kind),
		"index":  ev.Index,
		"total":  ev.Total,
		"time":   ev.Time.UTC().Format(time.RFC3339Nano),
	}
	if ev.Stage != "" {
		m["stage"] = ev.Stage
	}
	if ev.Commands > 0 {
		m["commands"] = ev.Commands
	}
	if ev.Skipped > 0 {
		m["skipped"] = ev.Skipped
	}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	return m
}
