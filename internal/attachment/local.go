package attachment

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/identitytime"
)

// LocalProvider is the object store used when no S3-compatible backend is
// configured: it synthesises the presigned PUT/GET URLs itself and serves
// them from the local filesystem. Grounded on the established
// media.LocalStorage layout (files under basePath, URLs rooted at baseURL),
// extended with the presign/expiry contract the Flow needs.
type LocalProvider struct {
	basePath string
	baseURL  string
	clock    identitytime.Clock
	log      zerolog.Logger
}

// NewLocalProvider builds a LocalProvider writing objects under basePath and
// minting URLs rooted at baseURL (e.g. "http://localhost:8080/local-objects").
func NewLocalProvider(basePath, baseURL string, clock identitytime.Clock, log zerolog.Logger) *LocalProvider {
	return &LocalProvider{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		clock:    clock,
		log:      log.With().Str("component", "local-objects").Logger(),
	}
}

func (p *LocalProvider) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	return p.signedURL(bucket, key, ttl), nil
}

func (p *LocalProvider) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return p.signedURL(bucket, key, ttl), nil
}

func (p *LocalProvider) signedURL(bucket, key string, ttl time.Duration) string {
	q := url.Values{}
	q.Set("expires", strconv.FormatUint(p.clock.NowMS()+uint64(ttl.Milliseconds()), 10))
	return fmt.Sprintf("%s/%s/%s?%s", p.baseURL, bucket, key, q.Encode())
}

// HandlePut accepts the upload a synthesised PUT URL points at and writes it
// under basePath. The storage key's embedded UUID provides the entropy a
// real presigned URL would carry; only the expiry is checked. Image uploads
// get a thumbnail rendered beside the object.
func (p *LocalProvider) HandlePut(c fiber.Ctx) error {
	key, err := p.objectPath(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		p.log.Error().Err(err).Msg("create object directory failed")
		return fiber.ErrInternalServerError
	}
	if err := os.WriteFile(key, c.Body(), 0o644); err != nil {
		p.log.Error().Err(err).Msg("write object failed")
		return fiber.ErrInternalServerError
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), "image/") {
		if err := renderThumbnail(key, thumbnailPath(key)); err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("thumbnail generation failed")
		}
	}
	return c.SendStatus(fiber.StatusOK)
}

// HandleGet serves a previously uploaded object back. Append ".thumb.jpg"
// to an image's key to fetch its thumbnail.
func (p *LocalProvider) HandleGet(c fiber.Ctx) error {
	key, err := p.objectPath(c)
	if err != nil {
		return err
	}
	f, err := os.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return fiber.ErrNotFound
		}
		p.log.Error().Err(err).Msg("open object failed")
		return fiber.ErrInternalServerError
	}
	return c.SendStream(f)
}

// objectPath resolves the request's bucket/key pair to a path under
// basePath, rejecting traversal and expired URLs.
func (p *LocalProvider) objectPath(c fiber.Ctx) (string, error) {
	bucket := c.Params("bucket")
	key := c.Params("*")
	if bucket == "" || key == "" || strings.Contains(key, "..") {
		return "", fiber.ErrNotFound
	}

	expires, err := strconv.ParseUint(c.Query("expires"), 10, 64)
	if err != nil || p.clock.NowMS() > expires {
		return "", fiber.ErrForbidden
	}

	return filepath.Join(p.basePath, bucket, filepath.FromSlash(key)), nil
}

func thumbnailPath(key string) string {
	return key + ".thumb.jpg"
}
