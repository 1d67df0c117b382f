package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/caching"
)

const (
	// renditionSuffix requests a bounded CDN rendition instead of the
	// original upload, which can run to many megabytes.
	renditionSuffix = "_800x800"

	maxImageBytes = 4 << 20 // vision APIs reject larger payloads anyway
)

// MediaFetcher downloads product images for vision requests. Failures
// are per-image: a product with one broken image still classifies on
// the rest, and a product with none classifies on text alone.
type MediaFetcher struct {
	httpClient *http.Client
	cache      *caching.Cache // nil disables caching
	maxImages  int
	log        *slog.Logger
}

// NewMediaFetcher builds a fetcher capped at maxImages per product.
func NewMediaFetcher(cache *caching.Cache, maxImages int, logger *slog.Logger) *MediaFetcher {
	if maxImages <= 0 {
		maxImages = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaFetcher{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cache:      cache,
		maxImages:  maxImages,
		log:        logger,
	}
}

// Fetch downloads up to the configured number of images, smallest
// positions first. Individual failures are logged and skipped.
func (f *MediaFetcher) Fetch(ctx context.Context, images []models.Image) []Media {
	var media []Media
	for _, img := range images {
		if len(media) >= f.maxImages {
			break
		}
		src := RenditionURL(img.Src)

		if f.cache != nil {
			if data, ok := f.cache.Get(src); ok {
				media = append(media, Media{MIME: mimeForURL(src), Data: data})
				continue
			}
		}

		data, err := f.download(ctx, src)
		if err != nil {
			f.log.Warn("skipping product image", "src", src, "error", err)
			continue
		}
		if f.cache != nil {
			if err := f.cache.Set(src, data); err != nil {
				f.log.Warn("failed to cache image", "src", src, "error", err)
			}
		}
		media = append(media, Media{MIME: mimeForURL(src), Data: data})
	}
	return media
}

func (f *MediaFetcher) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image, status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}

// RenditionURL rewrites a Shopify CDN image URL to its bounded
// rendition by inserting the size suffix before the extension. The
// query string (cache-busting version) is preserved. URLs that do not
// look like CDN uploads pass through unchanged.
func RenditionURL(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	ext := path.Ext(u.Path)
	if ext == "" {
		return src
	}
	base := strings.TrimSuffix(u.Path, ext)
	if strings.HasSuffix(base, renditionSuffix) {
		return src
	}
	u.Path = base + renditionSuffix + ext
	return u.String()
}

// mimeForURL guesses the image MIME type from the URL extension.
func mimeForURL(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return "image/jpeg"
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
