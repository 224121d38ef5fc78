package userstack

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// trackRequest is the body of POST /track.
type trackRequest struct {
	Feature string `json:"feature"`
	Event   string `json:"event,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Client is the userstack session client. It identifies users, keeps the
// session token in Storage and reports track events. Create one per
// application with New and share the handle.
type Client struct {
	config  *Config
	http    *httpClient
	storage Storage
	logger  StructuredLogger
	metrics Metrics

	// ctx is cancelled when Shutdown gives up waiting, aborting in-flight sends.
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	closed        bool
	unsubscribers []func()

	inflight      sync.WaitGroup
	inflightCount atomic.Int64
}

// New creates a new userstack client for the given project key.
//
//	client, err := userstack.New("pk_live_...",
//	    userstack.WithStorage(storage),
//	    userstack.WithErrorHandler(func(err error) { log.Println(err) }),
//	)
func New(projectKey string, opts ...ConfigOption) (*Client, error) {
	cfg := &Config{ProjectKey: projectKey}

	for _, opt := range opts {
		opt(cfg)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a new client from a Config struct.
// The Config is copied; later changes to it have no effect.
func NewWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	cfgCopy := *cfg
	cfgCopy.applyDefaults()

	if err := cfgCopy.validate(); err != nil {
		return nil, err
	}

	var metrics Metrics = nopMetrics{}
	if cfgCopy.Metrics != nil {
		metrics = cfgCopy.Metrics
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  &cfgCopy,
		http:    newHTTPClient(&cfgCopy),
		storage: cfgCopy.Storage,
		logger:  cfgCopy.structuredLogger(),
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Identify exchanges credentials for a session token. On success the token is
// stored, replacing any previous one, and a "signin" event is tracked.
//
// A non-2xx answer yields an *IdentificationError whose message is the raw
// response body; nothing is stored and nothing is retried.
func (c *Client) Identify(ctx context.Context, creds Credentials) error {
	if c == nil {
		return ErrNilClient
	}
	if c.isClosed() {
		return ErrClientClosed
	}

	resp, err := c.http.post(ctx, "/identify", creds, "")
	if err != nil {
		c.metrics.IncrementCounter(MetricIdentifyFailure, 1)
		return err
	}

	if !resp.ok() {
		c.metrics.IncrementCounter(MetricIdentifyFailure, 1)
		c.logger.Warn("userstack: identify rejected", "status", resp.statusCode)
		return &IdentificationError{
			StatusCode: resp.statusCode,
			Message:    string(resp.body),
		}
	}

	var out identifyResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		c.metrics.IncrementCounter(MetricIdentifyFailure, 1)
		return fmt.Errorf("userstack: failed to decode identify response: %w", err)
	}
	if out.JWT == "" {
		c.metrics.IncrementCounter(MetricIdentifyFailure, 1)
		return ErrMissingToken
	}

	if err := c.storage.Set(ctx, TokenKey, out.JWT); err != nil {
		c.metrics.IncrementCounter(MetricIdentifyFailure, 1)
		return &StorageError{Op: "set", Err: err}
	}

	c.metrics.IncrementCounter(MetricIdentifySuccess, 1)
	c.logger.Debug("userstack: identified", "token", MaskCredential(out.JWT), "expires_in", string(out.ExpiresIn))

	c.Track(FeatureApp, EventSignin, nil)
	return nil
}

// Forget removes the stored session token. It is idempotent.
func (c *Client) Forget(ctx context.Context) error {
	if c == nil {
		return ErrNilClient
	}
	if err := c.storage.Delete(ctx, TokenKey); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	c.logger.Debug("userstack: session forgotten")
	return nil
}

// Token returns the stored session token, if any.
func (c *Client) Token(ctx context.Context) (string, bool, error) {
	if c == nil {
		return "", false, ErrNilClient
	}
	tok, ok, err := c.storage.Get(ctx, TokenKey)
	if err != nil {
		return "", false, &StorageError{Op: "get", Err: err}
	}
	if !ok || tok == "" {
		return "", false, nil
	}
	return tok, true, nil
}

// Track reports an event in the background and returns immediately.
// event and data are optional.
//
// Without a stored session token the event is dropped: no request is made,
// the drop is logged and counted, and the returned Pending reports
// Dropped() == true with a nil error. Delivery failures go to the configured
// error handler; the returned Pending may be ignored.
func (c *Client) Track(feature, event string, data any) *Pending {
	if c == nil {
		return resolvedPending(ErrNilClient, false)
	}
	return c.track(c.ctx, feature, event, data)
}

// TrackContext is like Track but the request is also bound to ctx: it is
// aborted when either ctx or the client is shut down.
func (c *Client) TrackContext(ctx context.Context, feature, event string, data any) *Pending {
	if c == nil {
		return resolvedPending(ErrNilClient, false)
	}
	return c.track(ctx, feature, event, data)
}

func (c *Client) track(ctx context.Context, feature, event string, data any) *Pending {
	if c.isClosed() {
		return resolvedPending(ErrClientClosed, false)
	}
	if feature == "" {
		c.logger.Warn("userstack: track called without a feature", "event", event)
		return resolvedPending(ErrMissingFeature, false)
	}

	// The token is read fresh on every call; there is no in-memory copy.
	token, ok, err := c.Token(ctx)
	if err != nil {
		c.logger.Error("userstack: failed to read session token", "error", err)
		c.reportError(err)
		return resolvedPending(err, false)
	}
	if !ok {
		c.metrics.IncrementCounter(MetricTrackDropped, 1)
		c.logger.Debug(ErrMissingSession.Error(), "feature", feature, "event", event)
		return resolvedPending(nil, true)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return resolvedPending(ErrClientClosed, false)
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	c.metrics.SetGauge(MetricTrackInflight, float64(c.inflightCount.Add(1)))

	p := newPending()
	body := trackRequest{Feature: feature, Event: event, Data: data}
	go c.send(ctx, p, token, body)
	return p
}

// send delivers one track request. It runs on its own goroutine so
// concurrent tracks never wait on each other.
func (c *Client) send(ctx context.Context, p *Pending, token string, body trackRequest) {
	defer c.inflight.Done()
	defer func() {
		c.metrics.SetGauge(MetricTrackInflight, float64(c.inflightCount.Add(-1)))
	}()

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	var trackErr error
	resp, err := c.http.post(reqCtx, "/track", body, token)
	switch {
	case err != nil:
		trackErr = &TrackError{Feature: body.Feature, Event: body.Event, Err: err}
	case resp.statusCode >= 400:
		trackErr = &TrackError{Feature: body.Feature, Event: body.Event, StatusCode: resp.statusCode}
	}

	if trackErr != nil {
		c.metrics.IncrementCounter(MetricTrackFailed, 1)
		c.logger.Warn("userstack: track failed", "feature", body.Feature, "event", body.Event, "error", trackErr)
		c.reportError(trackErr)
	} else {
		c.metrics.IncrementCounter(MetricTrackSent, 1)
	}

	p.resolve(trackErr)
}

// reportError forwards a background failure to the configured error handler.
func (c *Client) reportError(err error) {
	if c.config.ErrorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("userstack: error handler panicked", "panic", r)
		}
	}()
	c.config.ErrorHandler(err)
}

// WatchNavigation emits a pageview for the source's current location and then
// one for every subsequent navigation. The subscription is released by the
// returned function or by Shutdown, whichever comes first.
func (c *Client) WatchNavigation(src NavigationSource) (unsubscribe func()) {
	if c == nil || src == nil || c.isClosed() {
		return func() {}
	}

	// Subscribe before reading Current so no navigation falls in between.
	var once sync.Once
	unsub := src.OnNavigate(func(loc Location) {
		c.TrackPageview(loc)
	})
	stop := func() { once.Do(unsub) }

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		stop()
		return stop
	}
	c.unsubscribers = append(c.unsubscribers, stop)
	c.mu.Unlock()

	c.TrackPageview(src.Current())
	return stop
}

// TrackPageview tracks an "app"/"pageview" event for loc. Only pageviews
// that were actually sent are counted.
func (c *Client) TrackPageview(loc Location) *Pending {
	if c == nil {
		return resolvedPending(ErrNilClient, false)
	}
	p := c.Track(FeatureApp, EventPageview, NewPageView(loc))
	if p.dispatched {
		c.metrics.IncrementCounter(MetricPageview, 1)
	}
	return p
}

// Shutdown detaches from navigation sources and waits for in-flight track
// requests. If ctx has no deadline, Config.ShutdownTimeout applies. When the
// wait times out, remaining requests are cancelled and the context error is
// returned. Shutdown is idempotent.
func (c *Client) Shutdown(ctx context.Context) error {
	if c == nil {
		return ErrNilClient
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubscribers := c.unsubscribers
	c.unsubscribers = nil
	c.mu.Unlock()

	for _, unsub := range unsubscribers {
		unsub()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ShutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		<-done
		return fmt.Errorf("userstack: shutdown timed out waiting for in-flight events: %w", ctx.Err())
	}
}

// Close is an alias for Shutdown.
func (c *Client) Close(ctx context.Context) error {
	return c.Shutdown(ctx)
}

// IsClosed reports whether Shutdown has been called.
func (c *Client) IsClosed() bool {
	if c == nil {
		return true
	}
	return c.isClosed()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Inflight returns the number of track requests currently being sent.
func (c *Client) Inflight() int {
	if c == nil {
		return 0
	}
	return int(c.inflightCount.Load())
}
