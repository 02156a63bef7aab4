package redis

import (
	"context"
	"errors"
	"testing"
)

func TestGeneration_NeverBumpedIsZero(t *testing.T) {
	g := NewGeneration(newMemClient(), "users")

	n, err := g.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if n != 0 {
		t.Errorf("current = %d, want 0", n)
	}
}

func TestGeneration_BumpIsSharedAcrossInstances(t *testing.T) {
	client := newMemClient()
	a := NewGeneration(client, "users")
	b := NewGeneration(client, "users")
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		n, err := a.Bump(ctx)
		if err != nil {
			t.Fatalf("Bump: %v", err)
		}
		if n != want {
			t.Errorf("bump = %d, want %d", n, want)
		}
	}
	if n, _ := b.Current(ctx); n != 3 {
		t.Errorf("other instance reads %d, want 3", n)
	}
	if client.data["gen:users"] != "3" {
		t.Errorf("key gen:users = %q", client.data["gen:users"])
	}
	if n, _ := NewGeneration(client, "roles").Current(ctx); n != 0 {
		t.Errorf("collections must not share a counter, got %d", n)
	}
}

func TestGeneration_Errors(t *testing.T) {
	client := newMemClient()
	client.err = errors.New("connection refused")
	g := NewGeneration(client, "users")
	ctx := context.Background()

	if _, err := g.Current(ctx); err == nil {
		t.Error("Current should fail while redis is down")
	}
	if _, err := g.Bump(ctx); err == nil {
		t.Error("Bump should fail while redis is down")
	}
}
