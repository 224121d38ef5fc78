// Package userstacktest provides testing utilities for applications using
// the userstack-go SDK.
//
// # Mock Server
//
// MockServer records every request and answers /identify with a token and
// /track with 200:
//
//	server := userstacktest.NewMockServer()
//	defer server.Close()
//
//	client, _ := userstack.New("pk_test", userstack.WithBaseURL(server.URL))
//	client.Identify(ctx, userstack.Credentials{UserID: "u1"})
//	server.WaitForRequests(2, time.Second) // identify + signin
//
// Hold and Release keep requests open, which is handy for asserting that
// concurrent track calls don't wait on each other.
//
// # Test Client
//
//	func TestCheckout(t *testing.T) {
//	    client, server := userstacktest.NewIdentifiedClient(t)
//	    client.Track("checkout", "paid", nil).Wait(ctx)
//	    if server.RequestCount() != 1 {
//	        t.Error("expected 1 request")
//	    }
//	}
//
// # Mocks
//
// MockMetrics, MockLogger and FailingStorage stand in for the client's
// pluggable dependencies.
package userstacktest
