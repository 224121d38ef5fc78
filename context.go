package userstack

import "context"

type clientContextKey struct{}

// NewContext returns a copy of ctx that provides c to code running within it.
func NewContext(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

// FromContext returns the client provided by NewContext. It returns
// ErrOutsideScope when ctx carries no client.
func FromContext(ctx context.Context) (*Client, error) {
	if ctx == nil {
		return nil, ErrOutsideScope
	}
	c, ok := ctx.Value(clientContextKey{}).(*Client)
	if !ok || c == nil {
		return nil, ErrOutsideScope
	}
	return c, nil
}

// MustFromContext is like FromContext but panics with ErrOutsideScope.
func MustFromContext(ctx context.Context) *Client {
	c, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return c
}
