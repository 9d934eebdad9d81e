package auth

import "errors"

// Sentinel errors returned by Service methods. Callers map these to
// apierrors.Kind at the HTTP/WS boundary.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrAmbiguousWorkspace = errors.New("user belongs to multiple workspaces; workspace_id is required")
	ErrNotAMember         = errors.New("user is not a member of the requested workspace")
	ErrRefreshInvalid     = errors.New("refresh token is invalid, expired, or revoked")
	ErrRefreshReused      = errors.New("refresh token has already been used; rotation chain revoked")
)
