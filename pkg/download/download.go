// Package download streams remote content into the staging area.
package download

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/internal/hashutil"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/rs/zerolog"
)

// Fetcher copies the content behind url into w. Implementations must stop
// promptly once ctx is cancelled.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, w io.Writer) (int64, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	return f(ctx, url, w)
}

// HTTPFetcher downloads over HTTP(S).
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    zerolog.Logger
}

// NewHTTPFetcher creates a fetcher. A zero timeout means no overall limit;
// cancellation still applies through the request context.
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logging.GetLogger("download"),
	}
}

// Fetch implements Fetcher.
func (h *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrSyncIO, "invalid download url %s", url)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errors.Newf(errors.ErrSyncIO, "download of %s answered %s", url, resp.Status).
			WithDetail("url", url).
			WithDetail("status", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	h.logger.Trace().Str("url", url).Int64("bytes", n).Msg("Fetched")
	return n, err
}

// Outcome describes a completed download.
type Outcome struct {
	Path string
	Hash string
	Size int64
}

// ToFile streams url into path on fsys and hashes the content on the way.
// Cancellation is reported as SYNC_CANCELLED, everything else as SYNC_IO.
// The caller removes path on failure by cleaning the staging area.
func ToFile(ctx context.Context, f Fetcher, fsys types.FS, url, path string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrSyncCancelled, "download cancelled")
	}

	out, err := fsys.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrSyncIO, "failed to create %s", path)
	}

	h := hashutil.New()
	n, fetchErr := f.Fetch(ctx, url, io.MultiWriter(out, h))
	closeErr := out.Close()

	if fetchErr != nil {
		return nil, classify(ctx, fetchErr, url)
	}
	if closeErr != nil {
		return nil, errors.Wrapf(closeErr, errors.ErrSyncIO, "failed to write %s", path)
	}

	return &Outcome{Path: path, Hash: hashutil.Sum(h), Size: n}, nil
}

// Verify checks a download against the declared hash. The unchecked
// sentinel accepts anything.
func Verify(o *Outcome, declared string) error {
	if hashutil.IsUnchecked(declared) || hashutil.Equal(o.Hash, declared) {
		return nil
	}
	return errors.Newf(errors.ErrSyncIntegrity, "hash mismatch for %s: expected %s, got %s",
		o.Path, strings.ToLower(declared), o.Hash).
		WithDetail("expected", declared).
		WithDetail("actual", o.Hash)
}

func classify(ctx context.Context, err error, url string) error {
	if ctx.Err() != nil || errors.IsCancelled(err) {
		return errors.Wrap(err, errors.ErrSyncCancelled, "download cancelled")
	}
	if errors.GetErrorCode(err) != errors.ErrUnknown {
		return err
	}
	return errors.Wrapf(err, errors.ErrSyncIO, "download of %s failed", url).
		WithDetail("url", url)
}
