package userstack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func testStorageContract(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, TokenKey); err != nil || ok {
		t.Fatalf("Get on empty storage = ok:%v err:%v", ok, err)
	}

	if err := s.Set(ctx, TokenKey, "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := s.Get(ctx, TokenKey); err != nil || !ok || v != "abc" {
		t.Fatalf("Get = %q, %v, %v; want abc", v, ok, err)
	}

	if err := s.Set(ctx, TokenKey, "def"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if v, _, _ := s.Get(ctx, TokenKey); v != "def" {
		t.Fatalf("Get after overwrite = %q, want def", v)
	}

	if err := s.Delete(ctx, TokenKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, TokenKey); ok {
		t.Fatal("key still present after Delete")
	}
	if err := s.Delete(ctx, TokenKey); err != nil {
		t.Fatalf("Delete of missing key: %v", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	testStorageContract(t, NewMemoryStorage())
}

func TestMemoryStorage_Concurrent(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			s.Set(ctx, key, "v")
			s.Get(ctx, key)
			s.Delete(ctx, key)
		}(i)
	}
	wg.Wait()
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(filepath.Join(t.TempDir(), "nested", "session.json"))
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	testStorageContract(t, s)
}

func TestFileStorage_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	first, err := NewFileStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set(ctx, TokenKey, "persisted"); err != nil {
		t.Fatal(err)
	}
	if err := first.Set(ctx, "other", "value"); err != nil {
		t.Fatal(err)
	}

	second, err := NewFileStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok, err := second.Get(ctx, TokenKey); err != nil || !ok || v != "persisted" {
		t.Errorf("Get = %q, %v, %v; want persisted", v, ok, err)
	}
	if second.Path() != path {
		t.Errorf("Path() = %q, want %q", second.Path(), path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(context.Background(), TokenKey); err == nil {
		t.Error("Get on corrupt file should fail")
	}
}

func TestFileStorage_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	s, _ := NewFileStorage(path)
	if _, ok, err := s.Get(context.Background(), TokenKey); err != nil || ok {
		t.Errorf("Get on empty file = ok:%v err:%v", ok, err)
	}
}

func TestNewFileStorage_EmptyPath(t *testing.T) {
	if _, err := NewFileStorage(""); err == nil {
		t.Error("expected error for empty path")
	}
}
