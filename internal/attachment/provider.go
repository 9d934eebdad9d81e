// Package attachment implements the AttachmentFlow presign/commit/expire
// state machine over storage.Attachments, grounded in the prior
// internal/media package (StorageProvider abstraction, content-type
// allowlists, LocalStorage fallback) generalised from media-only uploads
// to galynx's arbitrary channel attachments.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// MaxSizeBytes is the hard cap on a single upload.
const MaxSizeBytes = 100 * 1024 * 1024

// Presign TTL and download TTL.
const (
	presignTTL  = 15 * time.Minute
	downloadTTL = 10 * time.Minute
)

var (
	// ErrUnsupportedContentType mirrors the prior media sentinel; here
	// the only requirement is non-empty, but the name is kept for parity
	// with how a rejected content type is signaled elsewhere.
	ErrUnsupportedContentType = errors.New("attachment: content type is required")
	// ErrFileTooLarge mirrors the prior media.ErrFileTooLarge.
	ErrFileTooLarge = errors.New("attachment: size exceeds 100 MB limit")
)

// Provider abstracts the object store behind presigned URLs, matching the
// shape of the prior media.StorageProvider but scoped to the two
// operations AttachmentFlow actually needs: minting a PUT URL for upload
// and a GET URL for download. Concrete implementations (S3-compatible or
// local) never see the object bytes.
type Provider interface {
	PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (url string, err error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (url string, err error)
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename strips path separators and anything outside a safe
// charset, matching the established media.ExtensionFromFilename caution
// around attacker-controlled filenames.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "file"
	}
	return name
}

func objectKey(workspaceID, channelID, uploadID, filename string) string {
	return fmt.Sprintf("workspace/%s/channel/%s/uploads/%s-%s", workspaceID, channelID, uploadID, sanitizeFilename(filename))
}
