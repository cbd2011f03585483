package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/store"
)

// Subject describes whoever issued a command.
type Subject struct {
	UserID string
	Roles  []string
}

// Gate answers authorization questions against the persisted grant lists.
// The owner always passes and is the only subject allowed to change grants.
type Gate struct {
	store   store.Store
	ownerID string
}

func New(st store.Store, ownerID string) *Gate {
	return &Gate{store: st, ownerID: strings.TrimSpace(ownerID)}
}

// IsOwner reports whether the subject is the configured owner.
func (g *Gate) IsOwner(sub Subject) bool {
	return g.ownerID != "" && sub.UserID == g.ownerID
}

// IsAuthorized reports whether the subject may run leaderboard commands in
// the given guild. Owner bypasses the grant lists entirely.
func (g *Gate) IsAuthorized(ctx context.Context, guildID string, sub Subject) (bool, error) {
	if g.IsOwner(sub) {
		return true, nil
	}
	grants, err := g.store.LoadGrants(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("load grants: %w", err)
	}
	for _, u := range grants.Users {
		if u == sub.UserID {
			return true, nil
		}
	}
	for _, r := range sub.Roles {
		for _, granted := range grants.Roles {
			if r == granted {
				return true, nil
			}
		}
	}
	return false, nil
}

// GrantRole adds a role to the guild's grant list. Adding an already granted
// role is a no-op.
func (g *Gate) GrantRole(ctx context.Context, guildID, roleID string) error {
	return g.update(ctx, guildID, func(gr *store.Grants) {
		gr.Roles = appendUnique(gr.Roles, roleID)
	})
}

// GrantUser adds a user to the guild's grant list.
func (g *Gate) GrantUser(ctx context.Context, guildID, userID string) error {
	return g.update(ctx, guildID, func(gr *store.Grants) {
		gr.Users = appendUnique(gr.Users, userID)
	})
}

// RevokeRole removes a role from the guild's grant list. Revoking an absent
// role is a no-op.
func (g *Gate) RevokeRole(ctx context.Context, guildID, roleID string) error {
	return g.update(ctx, guildID, func(gr *store.Grants) {
		gr.Roles = removeAll(gr.Roles, roleID)
	})
}

// RevokeUser removes a user from the guild's grant list.
func (g *Gate) RevokeUser(ctx context.Context, guildID, userID string) error {
	return g.update(ctx, guildID, func(gr *store.Grants) {
		gr.Users = removeAll(gr.Users, userID)
	})
}

func (g *Gate) update(ctx context.Context, guildID string, fn func(*store.Grants)) error {
	grants, err := g.store.LoadGrants(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load grants: %w", err)
	}
	fn(grants)
	if err := g.store.SaveGrants(ctx, guildID, grants); err != nil {
		return fmt.Errorf("save grants: %w", err)
	}
	return nil
}

func appendUnique(list []string, id string) []string {
	id = strings.TrimSpace(id)
	if id == "" {
		return list
	}
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

func removeAll(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
