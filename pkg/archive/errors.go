package archive

import "github.com/serveops/model-archive/pkg/archive/errdefs"

// Error kinds surfaced by the pipeline, re-exported for callers.
var (
	ErrModelNotFound  = errdefs.ErrModelNotFound
	ErrDownloadFailed = errdefs.ErrDownloadFailed
	ErrInvalidModel   = errdefs.ErrInvalidModel
)

type (
	NotFoundError     = errdefs.NotFoundError
	DownloadError     = errdefs.DownloadError
	InvalidModelError = errdefs.InvalidModelError
)
