package store

import (
	"bytes"
	"context"
	"slices"
	"testing"
)

// backends lists the stores exercised by the shared contract tests.
// RedisStore needs a live server and is covered by the distributed
// integration suite instead.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return map[string]Store{
		"file": fs,
		"mem":  NewMemStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			key := FragmentKey(42, [3]int{1, 2, 3})
			payload := []byte("fragment bytes")

			if _, found, err := s.Get(ctx, key); err != nil || found {
				t.Fatalf("Get before Set: found=%v err=%v", found, err)
			}
			if err := s.Set(ctx, key, payload); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, found, err := s.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !found || !bytes.Equal(got, payload) {
				t.Errorf("Get = %q (found=%v), want %q", got, found, payload)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, found, _ := s.Get(ctx, key); found {
				t.Error("key still present after Delete")
			}
			// Deleting again is a no-op.
			if err := s.Delete(ctx, key); err != nil {
				t.Errorf("Delete of missing key: %v", err)
			}
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			key := SkeletonKey(7, "v1")
			if err := s.Set(ctx, key, []byte("first")); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, key, []byte("second")); err != nil {
				t.Fatal(err)
			}
			got, _, err := s.Get(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "second" {
				t.Errorf("Get = %q, want overwrite to win", got)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			want := []string{
				FragmentKey(42, [3]int{0, 0, 0}),
				FragmentKey(42, [3]int{1, 0, 0}),
				FragmentKey(42, [3]int{0, 1, 0}),
			}
			other := FragmentKey(43, [3]int{0, 0, 0})
			for _, k := range append(slices.Clone(want), other) {
				if err := s.Set(ctx, k, []byte("x")); err != nil {
					t.Fatal(err)
				}
			}

			got, err := s.List(ctx, FragmentPrefix(42))
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			slices.Sort(got)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Errorf("List = %v, want %v", got, want)
			}

			empty, err := s.List(ctx, FragmentPrefix(999))
			if err != nil {
				t.Fatal(err)
			}
			if len(empty) != 0 {
				t.Errorf("List of empty prefix = %v", empty)
			}
		})
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	for _, key := range []string{"", "../outside", "/absolute"} {
		if err := s.Set(ctx, key, []byte("x")); err == nil {
			t.Errorf("Set(%q) should be rejected", key)
		}
	}
}

func TestFileStoreCompresses(t *testing.T) {
	// Large repetitive payloads round-trip through compression intact.
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	if err := s.Set(ctx, "blob", payload); err != nil {
		t.Fatal(err)
	}
	got, found, err := s.Get(ctx, "blob")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload corrupted through compression round trip")
	}
}

func TestKeyLayout(t *testing.T) {
	if got := FragmentKey(42, [3]int{1, -2, 3}); got != "fragments/42/1_-2_3" {
		t.Errorf("FragmentKey = %q", got)
	}
	if got := FragmentPrefix(42); got != "fragments/42/" {
		t.Errorf("FragmentPrefix = %q", got)
	}
	if got := SkeletonKey(42, "abc"); got != "skeletons/42/abc" {
		t.Errorf("SkeletonKey = %q", got)
	}
}
