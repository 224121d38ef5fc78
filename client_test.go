package userstack_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	userstack "github.com/jdziat/userstack-go"
	"github.com/jdziat/userstack-go/userstacktest"
)

const waitTimeout = 5 * time.Second

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)
	return ctx
}

type trackBody struct {
	Feature string         `json:"feature"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data"`
}

func TestIdentify_StoresTokenAndTracksSignin(t *testing.T) {
	client, server := userstacktest.NewTestClient(t)
	ctx := waitCtx(t)

	err := client.Identify(ctx, userstack.Credentials{
		UserID: "user-1",
		Name:   "Ada",
		Email:  "ada@example.com",
		Data:   map[string]any{"plan": "pro"},
	})
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	token, ok, err := client.Token(ctx)
	if err != nil || !ok {
		t.Fatalf("Token() = %q, %v, %v; want stored token", token, ok, err)
	}
	if token != userstacktest.DefaultToken {
		t.Errorf("Token() = %q, want %q", token, userstacktest.DefaultToken)
	}

	if !server.WaitForRequests(2, waitTimeout) {
		t.Fatalf("expected identify + signin requests, got %d", server.RequestCount())
	}

	identify := server.RequestsWithPath("/identify")
	if len(identify) != 1 {
		t.Fatalf("identify requests = %d, want 1", len(identify))
	}
	if identify[0].Method != http.MethodPost {
		t.Errorf("Method = %q, want POST", identify[0].Method)
	}
	if identify[0].ProjectKey != userstacktest.TestProjectKey {
		t.Errorf("project key header = %q, want %q", identify[0].ProjectKey, userstacktest.TestProjectKey)
	}
	if identify[0].Authorization != "" {
		t.Errorf("identify should not carry Authorization, got %q", identify[0].Authorization)
	}

	var creds map[string]any
	if err := identify[0].JSON(&creds); err != nil {
		t.Fatalf("decode identify body: %v", err)
	}
	if creds["userId"] != "user-1" || creds["email"] != "ada@example.com" || creds["name"] != "Ada" {
		t.Errorf("identify body = %v", creds)
	}
	if _, ok := creds["googleToken"]; ok {
		t.Errorf("empty googleToken should be omitted, body = %v", creds)
	}

	tracks := server.RequestsWithPath("/track")
	if len(tracks) != 1 {
		t.Fatalf("track requests = %d, want 1", len(tracks))
	}
	var body trackBody
	if err := tracks[0].JSON(&body); err != nil {
		t.Fatalf("decode track body: %v", err)
	}
	if body.Feature != userstack.FeatureApp || body.Event != userstack.EventSignin {
		t.Errorf("signin event = %+v, want app/signin", body)
	}
}

func TestTrack_AttachesBearerTokenFromIdentify(t *testing.T) {
	tokens := []string{"jwt-alpha", "jwt-beta.with.dots", "eyJhbGciOi.payload.sig"}

	for _, tok := range tokens {
		t.Run(tok, func(t *testing.T) {
			client, server := userstacktest.NewTestClient(t)
			server.RespondWithToken(tok)
			ctx := waitCtx(t)

			if err := client.Identify(ctx, userstack.Credentials{UserID: "u"}); err != nil {
				t.Fatalf("Identify() error = %v", err)
			}
			if err := client.Track("search", "query", map[string]any{"q": "go"}).Wait(ctx); err != nil {
				t.Fatalf("Track().Wait() error = %v", err)
			}

			for _, req := range server.RequestsWithPath("/track") {
				if req.Authorization != "Bearer "+tok {
					t.Errorf("Authorization = %q, want %q", req.Authorization, "Bearer "+tok)
				}
				if req.ProjectKey != userstacktest.TestProjectKey {
					t.Errorf("project key header = %q", req.ProjectKey)
				}
			}
		})
	}
}

func TestIdentify_OverwritesPreviousToken(t *testing.T) {
	client, server := userstacktest.NewTestClient(t)
	ctx := waitCtx(t)

	server.RespondWithToken("first")
	if err := client.Identify(ctx, userstack.Credentials{UserID: "a"}); err != nil {
		t.Fatal(err)
	}
	server.RespondWithToken("second")
	if err := client.Identify(ctx, userstack.Credentials{UserID: "b"}); err != nil {
		t.Fatal(err)
	}

	token, _, _ := client.Token(ctx)
	if token != "second" {
		t.Errorf("Token() = %q, want %q", token, "second")
	}
}

func TestForget_TrackMakesNoRequest(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	ctx := waitCtx(t)

	if err := client.Forget(ctx); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	// Idempotent.
	if err := client.Forget(ctx); err != nil {
		t.Fatalf("second Forget() error = %v", err)
	}

	p := client.Track("app", "click", nil)
	select {
	case <-p.Done():
	default:
		t.Fatal("dropped track should resolve immediately")
	}
	if !p.Dropped() {
		t.Error("Dropped() = false, want true")
	}
	if err := p.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	if err := client.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if server.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", server.RequestCount())
	}
}

func TestTrack_WithoutIdentifyIsDroppedAndCounted(t *testing.T) {
	metrics := userstacktest.NewMockMetrics()
	logger := userstacktest.NewMockLogger()
	var handled []error
	client, server := userstacktest.NewTestClient(t,
		userstack.WithMetrics(metrics),
		userstack.WithStructuredLogger(logger),
		userstack.WithErrorHandler(func(err error) { handled = append(handled, err) }),
	)

	for i := 0; i < 3; i++ {
		if p := client.Track("app", "open", nil); !p.Dropped() {
			t.Fatalf("Track #%d not dropped", i)
		}
	}

	if got := metrics.GetCounter(userstack.MetricTrackDropped); got != 3 {
		t.Errorf("dropped counter = %d, want 3", got)
	}
	if logger.MessageCount() == 0 {
		t.Error("expected the dropped events to be logged")
	}
	if len(handled) != 0 {
		t.Errorf("error handler called %d times, want 0", len(handled))
	}
	if server.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", server.RequestCount())
	}
}

func TestIdentify_NonSuccessReturnsIdentificationError(t *testing.T) {
	client, server := userstacktest.NewTestClient(t)
	server.RespondWithError("/identify", http.StatusUnauthorized, "invalid credentials")
	ctx := waitCtx(t)

	err := client.Identify(ctx, userstack.Credentials{GoogleToken: "bad"})
	if err == nil {
		t.Fatal("Identify() error = nil, want IdentificationError")
	}

	var idErr *userstack.IdentificationError
	if !errors.As(err, &idErr) {
		t.Fatalf("error type = %T, want *IdentificationError", err)
	}
	if err.Error() != "invalid credentials" {
		t.Errorf("Error() = %q, want %q", err.Error(), "invalid credentials")
	}
	if idErr.StatusCode != http.StatusUnauthorized || !idErr.IsUnauthorized() {
		t.Errorf("StatusCode = %d, want 401", idErr.StatusCode)
	}
	if !errors.Is(err, userstack.ErrIdentification) {
		t.Error("errors.Is(err, ErrIdentification) = false")
	}

	if _, ok, _ := client.Token(ctx); ok {
		t.Error("no token should be stored after a failed identify")
	}
	if n := server.RequestCount(); n != 1 {
		t.Errorf("RequestCount() = %d, want 1 (no retry, no signin)", n)
	}
}

func TestIdentify_FailureKeepsExistingToken(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	server.RespondWithError("/identify", http.StatusForbidden, "nope")
	ctx := waitCtx(t)

	if err := client.Identify(ctx, userstack.Credentials{UserID: "x"}); err == nil {
		t.Fatal("expected error")
	}
	token, ok, _ := client.Token(ctx)
	if !ok || token != userstacktest.DefaultToken {
		t.Errorf("Token() = %q, %v; want previous token kept", token, ok)
	}
}

func TestIdentify_ResponseWithoutToken(t *testing.T) {
	client, server := userstacktest.NewTestClient(t)
	server.RespondWith(http.StatusOK, map[string]any{"expiresIn": 60})

	err := client.Identify(waitCtx(t), userstack.Credentials{UserID: "u"})
	if !errors.Is(err, userstack.ErrMissingToken) {
		t.Fatalf("Identify() error = %v, want ErrMissingToken", err)
	}
}

func TestIdentify_IgnoresExpiresInShape(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn any
	}{
		{"fractional", 3600.5},
		{"string", "3600"},
		{"null", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := userstacktest.NewTestClient(t)
			server.SetResponseFunc(func(r *http.Request) (int, any) {
				if r.URL.Path == "/identify" {
					return http.StatusOK, map[string]any{"jwt": "tok", "expiresIn": tt.expiresIn}
				}
				return http.StatusOK, map[string]any{"ok": true}
			})
			ctx := waitCtx(t)

			if err := client.Identify(ctx, userstack.Credentials{UserID: "u"}); err != nil {
				t.Fatalf("Identify() error = %v", err)
			}
			token, ok, err := client.Token(ctx)
			if err != nil || !ok || token != "tok" {
				t.Errorf("Token() = %q, %v, %v; want tok", token, ok, err)
			}
		})
	}
}

func TestIdentify_MalformedResponse(t *testing.T) {
	client, server := userstacktest.NewTestClient(t)
	server.RespondWithText(http.StatusOK, "<html>oops</html>")

	if err := client.Identify(waitCtx(t), userstack.Credentials{UserID: "u"}); err == nil {
		t.Fatal("Identify() error = nil, want decode error")
	}
}

func TestIdentify_StorageFailure(t *testing.T) {
	storageErr := errors.New("disk full")
	client, _ := userstacktest.NewTestClient(t,
		userstack.WithStorage(&userstacktest.FailingStorage{Err: storageErr}),
	)

	err := client.Identify(waitCtx(t), userstack.Credentials{UserID: "u"})
	if !errors.Is(err, storageErr) {
		t.Fatalf("Identify() error = %v, want wrapped storage error", err)
	}
	if userstack.ErrorCodeOf(err) != userstack.ErrCodeStorage {
		t.Errorf("ErrorCodeOf() = %q, want %q", userstack.ErrorCodeOf(err), userstack.ErrCodeStorage)
	}
}

func TestTrack_StorageFailureReported(t *testing.T) {
	storageErr := errors.New("unreachable")
	var mu sync.Mutex
	var handled []error
	client, server := userstacktest.NewTestClient(t,
		userstack.WithStorage(&userstacktest.FailingStorage{Err: storageErr}),
		userstack.WithErrorHandler(func(err error) {
			mu.Lock()
			handled = append(handled, err)
			mu.Unlock()
		}),
	)

	p := client.Track("app", "x", nil)
	if !errors.Is(p.Err(), storageErr) {
		t.Errorf("Pending.Err() = %v, want storage error", p.Err())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 {
		t.Errorf("handler calls = %d, want 1", len(handled))
	}
	if server.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", server.RequestCount())
	}
}

func TestTrack_BodyShape(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	ctx := waitCtx(t)

	if err := client.Track("editor", "", nil).Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := client.Track("editor", "save", map[string]any{"words": 120}).Wait(ctx); err != nil {
		t.Fatal(err)
	}

	reqs := server.RequestsWithPath("/track")
	if len(reqs) != 2 {
		t.Fatalf("track requests = %d, want 2", len(reqs))
	}

	var first map[string]any
	if err := reqs[0].JSON(&first); err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || first["feature"] != "editor" {
		t.Errorf("minimal body = %v, want only feature", first)
	}

	var second trackBody
	if err := reqs[1].JSON(&second); err != nil {
		t.Fatal(err)
	}
	if second.Feature != "editor" || second.Event != "save" || second.Data["words"] != float64(120) {
		t.Errorf("body = %+v", second)
	}
}

func TestTrack_EmptyFeatureRejected(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)

	p := client.Track("", "click", nil)
	if !errors.Is(p.Err(), userstack.ErrMissingFeature) {
		t.Errorf("Err() = %v, want ErrMissingFeature", p.Err())
	}
	if server.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", server.RequestCount())
	}
}

func TestTrack_ConcurrentCallsDoNotBlockEachOther(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	ctx := waitCtx(t)

	server.Hold()
	first := client.Track("a", "one", nil)
	second := client.Track("b", "two", nil)

	// Both requests reach the server while neither has been answered.
	if !server.WaitForRequests(2, waitTimeout) {
		t.Fatalf("requests in flight = %d, want 2", server.RequestCount())
	}
	select {
	case <-first.Done():
		t.Fatal("first track completed while server was holding")
	case <-second.Done():
		t.Fatal("second track completed while server was holding")
	default:
	}
	if got := client.Inflight(); got != 2 {
		t.Errorf("Inflight() = %d, want 2", got)
	}

	server.Release()
	if err := first.Wait(ctx); err != nil {
		t.Errorf("first: %v", err)
	}
	if err := second.Wait(ctx); err != nil {
		t.Errorf("second: %v", err)
	}
}

func TestTrack_HTTPErrorReportedToHandler(t *testing.T) {
	errCh := make(chan error, 1)
	metrics := userstacktest.NewMockMetrics()
	client, server := userstacktest.NewIdentifiedClient(t,
		userstack.WithMetrics(metrics),
		userstack.WithErrorHandler(func(err error) { errCh <- err }),
	)
	server.RespondWithError("/track", http.StatusInternalServerError, "boom")
	ctx := waitCtx(t)

	err := client.Track("app", "x", nil).Wait(ctx)
	trackErr, ok := userstack.AsTrackError(err)
	if !ok {
		t.Fatalf("Wait() error = %v, want *TrackError", err)
	}
	if trackErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", trackErr.StatusCode)
	}
	if trackErr.Code() != userstack.ErrCodeTrack {
		t.Errorf("Code() = %q, want %q", trackErr.Code(), userstack.ErrCodeTrack)
	}

	select {
	case handled := <-errCh:
		if handled != err {
			t.Errorf("handler got %v, want %v", handled, err)
		}
	case <-ctx.Done():
		t.Fatal("error handler was not called")
	}

	if got := metrics.GetCounter(userstack.MetricTrackFailed); got != 1 {
		t.Errorf("failed counter = %d, want 1", got)
	}
}

func TestTrack_NetworkFailureReportedToHandler(t *testing.T) {
	errCh := make(chan error, 1)
	client, server := userstacktest.NewIdentifiedClient(t,
		userstack.WithErrorHandler(func(err error) { errCh <- err }),
	)
	server.Close()

	err := client.Track("app", "offline", nil).Wait(waitCtx(t))
	trackErr, ok := userstack.AsTrackError(err)
	if !ok {
		t.Fatalf("Wait() error = %v, want *TrackError", err)
	}
	if trackErr.Err == nil || trackErr.StatusCode != 0 {
		t.Errorf("TrackError = %+v, want transport error", trackErr)
	}
	if trackErr.Code() != userstack.ErrCodeNetwork {
		t.Errorf("Code() = %q, want %q", trackErr.Code(), userstack.ErrCodeNetwork)
	}
	if got := <-errCh; got != err {
		t.Errorf("handler got %v", got)
	}
}

func TestTrack_ErrorHandlerPanicIsContained(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t,
		userstack.WithErrorHandler(func(err error) { panic("handler bug") }),
	)
	server.RespondWithError("/track", http.StatusBadRequest, "bad")

	if err := client.Track("app", "x", nil).Wait(waitCtx(t)); err == nil {
		t.Fatal("expected track error")
	}
}

func TestTrackContext_CancelledByCaller(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	server.Hold()

	ctx, cancel := context.WithCancel(context.Background())
	p := client.TrackContext(ctx, "app", "slow", nil)
	if !server.WaitForRequests(1, waitTimeout) {
		t.Fatal("request never arrived")
	}
	cancel()

	err := p.Wait(waitCtx(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestShutdown_WaitsForInflightTracks(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	server.Hold()

	p := client.Track("app", "late", nil)
	if !server.WaitForRequests(1, waitTimeout) {
		t.Fatal("request never arrived")
	}

	done := make(chan error, 1)
	go func() { done <- client.Shutdown(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Shutdown returned before in-flight track finished")
	case <-time.After(50 * time.Millisecond):
	}

	server.Release()
	if err := <-done; err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := p.Err(); err != nil {
		t.Errorf("track error = %v", err)
	}
}

func TestShutdown_TimeoutCancelsInflight(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	server.Hold()

	p := client.Track("app", "stuck", nil)
	if !server.WaitForRequests(1, waitTimeout) {
		t.Fatal("request never arrived")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := client.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown() error = %v, want DeadlineExceeded", err)
	}
	if _, ok := userstack.AsTrackError(p.Err()); !ok {
		t.Errorf("Pending.Err() = %v, want *TrackError", p.Err())
	}
}

func TestClosedClient(t *testing.T) {
	client, server := userstacktest.NewIdentifiedClient(t)
	ctx := waitCtx(t)

	if err := client.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := client.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if !client.IsClosed() {
		t.Error("IsClosed() = false")
	}

	if err := client.Identify(ctx, userstack.Credentials{UserID: "u"}); !errors.Is(err, userstack.ErrClientClosed) {
		t.Errorf("Identify() error = %v, want ErrClientClosed", err)
	}
	if err := client.Track("app", "x", nil).Err(); !errors.Is(err, userstack.ErrClientClosed) {
		t.Errorf("Track().Err() = %v, want ErrClientClosed", err)
	}
	if server.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", server.RequestCount())
	}
}

func TestNilClient(t *testing.T) {
	var client *userstack.Client
	ctx := context.Background()

	if err := client.Identify(ctx, userstack.Credentials{}); !errors.Is(err, userstack.ErrNilClient) {
		t.Errorf("Identify() = %v", err)
	}
	if err := client.Forget(ctx); !errors.Is(err, userstack.ErrNilClient) {
		t.Errorf("Forget() = %v", err)
	}
	if err := client.Track("a", "b", nil).Err(); !errors.Is(err, userstack.ErrNilClient) {
		t.Errorf("Track() = %v", err)
	}
	if err := client.Shutdown(ctx); !errors.Is(err, userstack.ErrNilClient) {
		t.Errorf("Shutdown() = %v", err)
	}
	if !client.IsClosed() {
		t.Error("nil client should report closed")
	}
	stop := client.WatchNavigation(userstack.NewRouter(userstack.Location{}))
	stop()
}

func TestMetrics_IdentifyAndTrack(t *testing.T) {
	metrics := userstacktest.NewMockMetrics()
	client, server := userstacktest.NewTestClient(t, userstack.WithMetrics(metrics))
	ctx := waitCtx(t)

	if err := client.Identify(ctx, userstack.Credentials{UserID: "u"}); err != nil {
		t.Fatal(err)
	}
	server.RespondWithError("/identify", http.StatusUnauthorized, "no")
	_ = client.Identify(ctx, userstack.Credentials{UserID: "u"})

	if err := client.Track("app", "a", nil).Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := client.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	if got := metrics.GetCounter(userstack.MetricIdentifySuccess); got != 1 {
		t.Errorf("identify success = %d, want 1", got)
	}
	if got := metrics.GetCounter(userstack.MetricIdentifyFailure); got != 1 {
		t.Errorf("identify failure = %d, want 1", got)
	}
	// signin + explicit track
	if got := metrics.GetCounter(userstack.MetricTrackSent); got != 2 {
		t.Errorf("track sent = %d, want 2", got)
	}
	if got := metrics.GetGauge(userstack.MetricTrackInflight); got != 0 {
		t.Errorf("inflight gauge = %v, want 0", got)
	}
}
