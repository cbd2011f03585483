package authz

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/store"
)

func newGate(t *testing.T) *Gate {
	t.Helper()
	dir := t.TempDir()
	st := store.NewFileStore(filepath.Join(dir, "data.json"), filepath.Join(dir, "auth.json"))
	return New(st, "owner-1")
}

func TestOwnerAlwaysAuthorized(t *testing.T) {
	g := newGate(t)
	ok, err := g.IsAuthorized(context.Background(), "guild-1", Subject{UserID: "owner-1"})
	if err != nil {
		t.Fatalf("IsAuthorized: %v", err)
	}
	if !ok {
		t.Fatal("owner should bypass grants")
	}
}

func TestUngrantedDenied(t *testing.T) {
	g := newGate(t)
	ok, err := g.IsAuthorized(context.Background(), "guild-1", Subject{UserID: "user-2", Roles: []string{"r1"}})
	if err != nil {
		t.Fatalf("IsAuthorized: %v", err)
	}
	if ok {
		t.Fatal("expected deny without grants")
	}
}

func TestRoleGrantAndRevoke(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()
	if err := g.GrantRole(ctx, "guild-1", "mods"); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	sub := Subject{UserID: "user-2", Roles: []string{"plebs", "mods"}}
	ok, err := g.IsAuthorized(ctx, "guild-1", sub)
	if err != nil {
		t.Fatalf("IsAuthorized: %v", err)
	}
	if !ok {
		t.Fatal("granted role should authorize")
	}
	if err := g.RevokeRole(ctx, "guild-1", "mods"); err != nil {
		t.Fatalf("RevokeRole: %v", err)
	}
	ok, err = g.IsAuthorized(ctx, "guild-1", sub)
	if err != nil {
		t.Fatalf("IsAuthorized: %v", err)
	}
	if ok {
		t.Fatal("revoked role should not authorize")
	}
}

func TestUserGrantScopedToGuild(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()
	if err := g.GrantUser(ctx, "guild-1", "user-9"); err != nil {
		t.Fatalf("GrantUser: %v", err)
	}
	ok, _ := g.IsAuthorized(ctx, "guild-1", Subject{UserID: "user-9"})
	if !ok {
		t.Fatal("granted user should authorize in its guild")
	}
	ok, _ = g.IsAuthorized(ctx, "guild-2", Subject{UserID: "user-9"})
	if ok {
		t.Fatal("grant must not leak across guilds")
	}
}

func TestDoubleGrantIdempotent(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := g.GrantUser(ctx, "guild-1", "user-9"); err != nil {
			t.Fatalf("GrantUser: %v", err)
		}
	}
	grants, err := g.store.LoadGrants(ctx, "guild-1")
	if err != nil {
		t.Fatalf("LoadGrants: %v", err)
	}
	if len(grants.Users) != 1 {
		t.Fatalf("expected 1 user grant, got %d", len(grants.Users))
	}
	// Revoking an absent id is a no-op
	if err := g.RevokeUser(ctx, "guild-1", "missing"); err != nil {
		t.Fatalf("RevokeUser: %v", err)
	}
}
