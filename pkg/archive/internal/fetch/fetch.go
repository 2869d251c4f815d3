// Package fetch resolves model references to archive byte streams, either
// by opening a file under the configured model store or by downloading
// from a remote URL.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/serveops/model-archive/pkg/archive/errdefs"
	"github.com/serveops/model-archive/pkg/logging"
)

// urlPattern matches remote model references.
var urlPattern = regexp.MustCompile(`(?i)^https?://`)

// IsRemote reports whether reference is a remote URL.
func IsRemote(reference string) bool {
	return urlPattern.MatchString(reference)
}

// Fetcher issues remote downloads and resolves local store paths.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       logging.Logger
}

// New returns a fetcher using the given HTTP client.
func New(client *http.Client, userAgent string, log logging.Logger) *Fetcher {
	return &Fetcher{client: client, userAgent: userAgent, log: log}
}

// Remote issues a GET against rawURL and returns the response body along
// with the ETag cache key candidate (quotes stripped, empty when the
// server sent none). The caller owns the body.
func (f *Fetcher) Remote(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &errdefs.NotFoundError{Reference: rawURL, Reason: "invalid model url", Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	f.log.Debugf("downloading model from %s", rawURL)
	resp, err := f.client.Do(req)
	if err != nil {
		if IsTimeout(err) {
			return nil, "", &errdefs.DownloadError{URL: rawURL, Err: errors.Wrap(err, "download model timeout")}
		}
		return nil, "", &errdefs.DownloadError{URL: rawURL, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, "", &errdefs.DownloadError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp.Body, stripETag(resp.Header.Get("ETag")), nil
}

// Local resolves reference relative to the model store root and opens it
// for extraction. Only regular files are accepted.
func (f *Fetcher) Local(storeRoot, reference string) (io.ReadCloser, error) {
	if strings.Contains(reference, "..") {
		return nil, &errdefs.NotFoundError{Reference: reference, Reason: "relative path is not allowed in model reference"}
	}
	if storeRoot == "" {
		return nil, &errdefs.NotFoundError{Reference: reference, Reason: "model store has not been configured"}
	}
	location := filepath.Join(storeRoot, reference)
	info, err := os.Stat(location)
	if err != nil {
		return nil, &errdefs.NotFoundError{Reference: reference, Reason: "model not found in model store", Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &errdefs.NotFoundError{Reference: reference, Reason: "model not found at resolved path"}
	}
	file, err := os.Open(location)
	if err != nil {
		return nil, &errdefs.NotFoundError{Reference: reference, Reason: "model not found in model store", Err: err}
	}
	return file, nil
}

// IsTimeout reports whether err is a network timeout anywhere in its
// chain. Timeouts during transfer must surface as download failures, not
// generic I/O errors.
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err)
}

// stripETag removes a single pair of surrounding double quotes.
func stripETag(etag string) string {
	if len(etag) > 2 && strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) {
		return etag[1 : len(etag)-1]
	}
	return etag
}
