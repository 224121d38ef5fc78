package userstack

import (
	"context"
	"errors"
	"testing"
)

func TestFromContext(t *testing.T) {
	client, err := New("pk_test_ctx")
	if err != nil {
		t.Fatal(err)
	}
	defer client.Shutdown(context.Background())

	ctx := NewContext(context.Background(), client)

	got, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if got != client {
		t.Error("FromContext returned a different client")
	}
	if MustFromContext(ctx) != client {
		t.Error("MustFromContext returned a different client")
	}
}

func TestFromContext_OutsideScope(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"background", context.Background()},
		{"nil client provided", NewContext(context.Background(), nil)},
		{"nil context", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromContext(tt.ctx)
			if !errors.Is(err, ErrOutsideScope) {
				t.Errorf("FromContext() error = %v, want ErrOutsideScope", err)
			}
			if ErrorCodeOf(err) != ErrCodeScope {
				t.Errorf("ErrorCodeOf() = %q, want %q", ErrorCodeOf(err), ErrCodeScope)
			}
		})
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrOutsideScope) {
			t.Errorf("panic value = %v, want ErrOutsideScope", r)
		}
	}()
	MustFromContext(context.Background())
}
