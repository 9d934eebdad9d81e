// Package access implements AccessControl: a pure decision function over
// workspace roles and private-channel membership. Unlike the richer
// bitmask/override permission models some chat systems need, galynx has
// exactly three fixed roles and one membership bypass rule, so
// the whole package is a handful of table lookups rather than a resolver
// with a cache.
package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// Action identifies the kind of operation being authorized.
type Action string

const (
	ActionListUsers          Action = "list_users"
	ActionCreateUser         Action = "create_user"
	ActionDeleteUser         Action = "delete_user"
	ActionListAudit          Action = "list_audit"
	ActionListChannelMembers Action = "list_channel_members"
	ActionCreateChannel      Action = "create_channel"
	ActionDeleteChannel      Action = "delete_channel"
	ActionReadChannel        Action = "read_channel"
	ActionPostInChannel      Action = "post_in_channel"
	ActionEditMessage        Action = "edit_message"
	ActionDeleteMessage      Action = "delete_message"
	ActionCreateWorkspace    Action = "create_workspace"
)

// Actor is the authenticated identity making the request.
type Actor struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	Role        storage.Role
}

func (a Actor) isOwnerOrAdmin() bool {
	return a.Role == storage.RoleOwner || a.Role == storage.RoleAdmin
}

// Control evaluates access decisions against Storage for membership lookups
// that aren't already encoded in the actor's token (e.g. private-channel
// membership).
type Control struct {
	store storage.Store
}

// New creates a Control backed by the given Storage.
func New(store storage.Store) *Control {
	return &Control{store: store}
}

// ErrNotFound is returned instead of a forbidden error whenever the target
// belongs to a different workspace than the actor's token, so that
// cross-workspace probing can never distinguish "forbidden" from
// "does not exist".
var ErrNotFound = apierrors.New(apierrors.KindNotFound, "resource not found")

// ErrForbidden is returned when the actor and target share a workspace but
// the actor's role/membership does not permit the action.
var ErrForbidden = apierrors.New(apierrors.KindForbidden, "action not permitted")

// CheckWorkspaceScoped authorizes actions whose rule is purely role-based
// within a workspace (list/create/delete users, list audit, list channel
// members, create/delete channel). targetWorkspaceID is the workspace the
// target entity belongs to.
func (c *Control) CheckWorkspaceScoped(actor Actor, action Action, targetWorkspaceID uuid.UUID) error {
	if targetWorkspaceID != actor.WorkspaceID {
		return ErrNotFound
	}

	switch action {
	case ActionListUsers, ActionCreateUser, ActionDeleteUser, ActionListAudit,
		ActionListChannelMembers, ActionCreateChannel, ActionDeleteChannel:
		if !actor.isOwnerOrAdmin() {
			return ErrForbidden
		}
		return nil
	case ActionCreateWorkspace:
		return nil
	default:
		return fmt.Errorf("access: %q is not a workspace-scoped action", action)
	}
}

// CheckChannelAccess authorizes read/post in a channel: private channels
// require explicit ChannelMember or an owner/admin role; public channels
// require only workspace membership, which is already implied by the
// actor holding a valid token for this workspace.
func (c *Control) CheckChannelAccess(ctx context.Context, actor Actor, channel storage.Channel) error {
	if channel.WorkspaceID != actor.WorkspaceID {
		return ErrNotFound
	}
	if !channel.IsPrivate {
		return nil
	}
	if actor.isOwnerOrAdmin() {
		return nil
	}

	isMember, err := c.store.IsChannelMember(ctx, channel.ID, actor.UserID)
	if err != nil {
		return fmt.Errorf("check channel membership: %w", err)
	}
	if !isMember {
		return ErrNotFound
	}
	return nil
}

// CheckEditMessage authorizes editing: only the author may edit.
func (c *Control) CheckEditMessage(actor Actor, msg storage.Message) error {
	if msg.WorkspaceID != actor.WorkspaceID {
		return ErrNotFound
	}
	if msg.SenderID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

// CheckDeleteMessage authorizes soft-deletion: the author, or any
// owner/admin in the workspace.
func (c *Control) CheckDeleteMessage(actor Actor, msg storage.Message) error {
	if msg.WorkspaceID != actor.WorkspaceID {
		return ErrNotFound
	}
	if msg.SenderID == actor.UserID || actor.isOwnerOrAdmin() {
		return nil
	}
	return ErrForbidden
}
