package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/adapters/feed"
	"github.com/vncsmyrnk/poker/internal/adapters/wire"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

// SessionClient is a session store reached through the gateway server.
type SessionClient struct {
	base          *url.URL
	http          *http.Client
	dialer        *websocket.Dialer
	reconnectWait time.Duration
}

type Option func(*SessionClient)

func WithHTTPClient(c *http.Client) Option {
	return func(s *SessionClient) { s.http = c }
}

func WithReconnectWait(d time.Duration) Option {
	return func(s *SessionClient) { s.reconnectWait = d }
}

var _ ports.SessionStore = (*SessionClient)(nil)

func NewSessionClient(baseURL string, opts ...Option) (*SessionClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	c := &SessionClient{
		base:          base,
		http:          &http.Client{Timeout: 30 * time.Second},
		dialer:        websocket.DefaultDialer,
		reconnectWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *SessionClient) Create(ctx context.Context, id string, doc []byte) error {
	resp, err := c.do(ctx, http.MethodPost, id, doc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}
	return nil
}

func (c *SessionClient) Update(ctx context.Context, id string, patch domain.Patch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPatch, id, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

func (c *SessionClient) Get(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return data, nil
}

// Subscribe streams snapshots from the gateway. A dropped connection is reported as a
// failed snapshot and then redialed; the first frame after a redial is the current document.
func (c *SessionClient) Subscribe(ctx context.Context, id string) (<-chan ports.Snapshot, error) {
	conn, err := c.dial(ctx, id)
	if err != nil {
		return nil, err
	}

	f := feed.New(ctx)
	go func() {
		for {
			err := c.pump(ctx, conn, f)
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("session_id", id).Msg("subscription dropped, reconnecting")
			f.Publish(ports.Snapshot{SessionID: id, Err: fmt.Errorf("subscription dropped: %w", err)})

			if conn = c.redial(ctx, id); conn == nil {
				return
			}
		}
	}()

	return f.Snapshots(), nil
}

// redial retries until a connection is made; it returns nil once ctx is done.
func (c *SessionClient) redial(ctx context.Context, id string) *websocket.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectWait):
		}
		conn, err := c.dial(ctx, id)
		if err == nil {
			return conn
		}
		log.Debug().Err(err).Str("session_id", id).Msg("reconnect failed")
	}
}

func (c *SessionClient) pump(ctx context.Context, conn *websocket.Conn, f *feed.Feed) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		var frame wire.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		f.Publish(frame.Snapshot())
	}
}

func (c *SessionClient) dial(ctx context.Context, id string) (*websocket.Conn, error) {
	u := c.sessionURL(id)
	u.Path += "/subscribe"
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, statusError(resp)
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return conn, nil
}

func (c *SessionClient) do(ctx context.Context, method, id string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.sessionURL(id).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s session: %w", strings.ToLower(method), err)
	}
	return resp, nil
}

func (c *SessionClient) sessionURL(id string) *url.URL {
	u := *c.base
	u.Path = u.Path + "/api/sessions/" + url.PathEscape(id)
	return &u
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := strings.TrimSpace(string(msg))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return domain.ErrSessionNotFound
	case http.StatusConflict:
		return domain.ErrSessionExists
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidPatch, detail)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, detail)
	}
}
