package userstacktest

import (
	"context"
	"time"

	userstack "github.com/jdziat/userstack-go"
)

// TestingT is an interface that matches *testing.T and *testing.B.
type TestingT interface {
	Fatalf(format string, args ...any)
	Cleanup(func())
	Helper()
}

// TestProjectKey is the default test project key.
const TestProjectKey = "pk_test_userstack"

// NewTestClient creates a client wired to a fresh MockServer with in-memory
// storage. Extra options are applied after the defaults. The client and
// server are cleaned up when the test ends.
func NewTestClient(t TestingT, opts ...userstack.ConfigOption) (*userstack.Client, *MockServer) {
	t.Helper()

	server := NewMockServer()

	baseOpts := []userstack.ConfigOption{
		userstack.WithBaseURL(server.URL),
		userstack.WithStorage(userstack.NewMemoryStorage()),
		userstack.WithTimeout(5 * time.Second),
	}

	client, err := userstack.New(TestProjectKey, append(baseOpts, opts...)...)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to create test client: %v", err)
	}

	t.Cleanup(func() {
		server.Release()
		client.Shutdown(context.Background())
		server.Close()
	})

	return client, server
}

// NewIdentifiedClient is NewTestClient followed by a successful Identify.
// The signin event is awaited and cleared from the server's records.
func NewIdentifiedClient(t TestingT, opts ...userstack.ConfigOption) (*userstack.Client, *MockServer) {
	t.Helper()

	client, server := NewTestClient(t, opts...)
	if err := client.Identify(context.Background(), userstack.Credentials{UserID: "test-user"}); err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !server.WaitForRequests(2, 5*time.Second) {
		t.Fatalf("signin event was not delivered")
	}
	server.Reset()

	return client, server
}
