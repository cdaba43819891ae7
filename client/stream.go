package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/msg"
)

// DefaultMaxReconnects is the number of reconnect attempts before giving up.
const DefaultMaxReconnects = 10

const maxBackoff = 30 * time.Second

// ErrGaveUp is reported once every reconnect attempt has failed.
var ErrGaveUp = errors.New("stream reconnect gave up")

var errServerClosed = errors.New("stream closed by server")

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(tea.Msg)
}

// transport reads one connection until it drops. connected is called once
// the server accepted the subscription; frame once per payload.
type transport interface {
	run(ctx context.Context, connected func(), frame func([]byte)) error
}

// StreamOptions configures a Stream.
type StreamOptions struct {
	Token         string
	MaxReconnects int
	// BaseBackoff is the delay unit of the exponential backoff. Zero means 1s.
	BaseBackoff time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Stream is the single long-lived push connection. The scheme of the URL
// picks the transport: http(s) reads Server-Sent Events, ws(s) reads one
// frame per WebSocket text message.
type Stream struct {
	url    string
	tr     transport
	opts   StreamOptions
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewStream prepares a stream for rawURL. Nothing is dialled until
// ListenCmd runs.
func NewStream(rawURL string, opts StreamOptions) (*Stream, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = DefaultMaxReconnects
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 0}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var tr transport
	switch u.Scheme {
	case "http", "https":
		tr = &sseTransport{url: rawURL, token: opts.Token, httpCli: opts.HTTPClient}
	case "ws", "wss":
		tr = &wsTransport{url: rawURL, token: opts.Token, httpCli: opts.HTTPClient}
	default:
		return nil, fmt.Errorf("unsupported stream scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		url:    rawURL,
		tr:     tr,
		opts:   opts,
		logger: logger.With("component", "stream", "url", rawURL),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// URL returns the endpoint this stream reads.
func (s *Stream) URL() string { return s.url }

// MaxReconnects returns the configured attempt limit.
func (s *Stream) MaxReconnects() int { return s.opts.MaxReconnects }

// Close stops the stream and aborts any in-flight connection. Safe to call
// more than once.
func (s *Stream) Close() {
	s.once.Do(s.cancel)
}

// IsClosed reports whether the stream has been intentionally closed.
func (s *Stream) IsClosed() bool {
	return s.ctx.Err() != nil
}

// ListenCmd returns a tea.Cmd that reads the stream and sends each frame to
// p as msg.StreamFrame. The command's own result reports how the connection
// ended.
func (s *Stream) ListenCmd(p Sender) tea.Cmd {
	return func() tea.Msg {
		result, _ := s.listen(p)
		return result
	}
}

// ReconnectListenCmd retries with exponential backoff until a connection is
// established, then reads it like ListenCmd. After MaxReconnects failed
// attempts it reports ErrGaveUp instead of looping forever.
func (s *Stream) ReconnectListenCmd(p Sender) tea.Cmd {
	return func() tea.Msg {
		attempt := 0
		for {
			if s.IsClosed() {
				return msg.StreamDisconnected{}
			}
			if attempt >= s.opts.MaxReconnects {
				return msg.StreamDisconnected{
					Err: fmt.Errorf("%w after %d attempts", ErrGaveUp, s.opts.MaxReconnects),
				}
			}

			attempt++
			select {
			case <-time.After(s.backoff(attempt)):
			case <-s.ctx.Done():
				return msg.StreamDisconnected{}
			}

			p.Send(msg.StreamReconnecting{Attempt: attempt, Max: s.opts.MaxReconnects})
			result, connected := s.listen(p)
			if _, auth := result.(msg.StreamAuthFailed); auth || connected {
				return result
			}
		}
	}
}

func (s *Stream) backoff(attempt int) time.Duration {
	shift := attempt
	if shift > 5 {
		shift = 5
	}
	d := s.opts.BaseBackoff << uint(shift)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func (s *Stream) listen(p Sender) (tea.Msg, bool) {
	connected := false
	err := s.tr.run(s.ctx,
		func() {
			connected = true
			s.logger.Info("stream connected")
			p.Send(msg.StreamConnected{URL: s.url})
		},
		func(data []byte) {
			p.Send(msg.StreamFrame{Data: data})
		},
	)
	if s.IsClosed() {
		return msg.StreamDisconnected{}, connected
	}
	if errors.Is(err, ErrUnauthorized) {
		s.logger.Warn("stream rejected credentials")
		return msg.StreamAuthFailed{}, connected
	}
	if err == nil {
		err = errServerClosed
	}
	s.logger.Warn("stream disconnected", "error", err, "was_connected", connected)
	return msg.StreamDisconnected{Err: err}, connected
}
