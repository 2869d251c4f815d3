// Package archive implements the model archive acquisition pipeline: it
// resolves a model reference (model store path or remote URL) to a byte
// stream, materializes it into a content-addressed cache directory, loads
// the embedded manifest and validates it, and hands back a handle to the
// extracted model.
package archive

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/serveops/model-archive/pkg/archive/errdefs"
	"github.com/serveops/model-archive/pkg/archive/types"
	"github.com/serveops/model-archive/pkg/logging"
)

// manifestPath is the fixed location of the manifest inside an archive.
const manifestPath = "MAR-INF/MANIFEST.json"

// ModelArchive is a handle to a materialized model archive on disk. The
// directory is shared read-only with every other handle that resolved to
// the same cache entry.
type ModelArchive struct {
	manifest  *types.Manifest
	reference string
	modelDir  string
	extracted bool
	log       logging.Logger
}

// load builds a handle for the extracted directory. A missing manifest
// file is legal and yields a default manifest; Validate decides whether
// that is acceptable. If loading fails on a freshly extracted directory,
// the directory is removed before the error is returned.
func load(log logging.Logger, reference, dir string, extracted bool) (ma *ModelArchive, err error) {
	defer func() {
		if err != nil && extracted {
			deleteQuietly(log, dir)
		}
	}()

	manifest := &types.Manifest{}
	raw, readErr := os.ReadFile(filepath.Join(dir, manifestPath))
	switch {
	case readErr == nil:
		if err := json.Unmarshal(raw, manifest); err != nil {
			return nil, &errdefs.InvalidModelError{Reason: "failed to parse " + manifestPath, Err: err}
		}
	case os.IsNotExist(readErr):
		// No manifest: keep the default, empty one.
	default:
		return nil, readErr
	}

	return &ModelArchive{
		manifest:  manifest,
		reference: reference,
		modelDir:  dir,
		extracted: extracted,
		log:       log,
	}, nil
}

// Validate enforces the minimal field set a valid model archive must
// carry. On failure the extracted directory is cleaned up before the
// error is returned, so callers never hold a handle to an invalid,
// half-cleaned model.
func (a *ModelArchive) Validate() error {
	if err := a.validate(); err != nil {
		a.Clean()
		return err
	}
	return nil
}

func (a *ModelArchive) validate() error {
	model := a.manifest.Model
	if model == nil {
		return &errdefs.InvalidModelError{Reason: "missing Model entry in manifest file"}
	}
	if model.ModelName == "" {
		return &errdefs.InvalidModelError{Reason: "model name is not defined"}
	}
	if a.manifest.Runtime == "" {
		return &errdefs.InvalidModelError{Reason: "runtime is not defined or invalid"}
	}
	if engine := a.manifest.Engine; engine != nil && engine.EngineName == "" {
		return &errdefs.InvalidModelError{Reason: "engineName is required in engine"}
	}
	return nil
}

// Clean removes the extracted directory. It only acts on directories this
// pipeline freshly extracted; anything else is left alone. Deletion is
// best effort and never returns an error.
func (a *ModelArchive) Clean() {
	if a.reference != "" && a.extracted {
		deleteQuietly(a.log, a.modelDir)
	}
}

// Manifest returns the parsed manifest.
func (a *ModelArchive) Manifest() *types.Manifest {
	return a.manifest
}

// Reference returns the model reference the handle was resolved from.
func (a *ModelArchive) Reference() string {
	return a.reference
}

// ModelDir returns the extracted directory.
func (a *ModelArchive) ModelDir() string {
	return a.modelDir
}

// Extracted reports whether the directory was freshly extracted by this
// pipeline, which is what permits Clean to delete it.
func (a *ModelArchive) Extracted() bool {
	return a.extracted
}

// ModelName returns the model name, or "" if the manifest has no Model
// section.
func (a *ModelArchive) ModelName() string {
	if a.manifest.Model == nil {
		return ""
	}
	return a.manifest.Model.ModelName
}

// ModelVersion returns the model version, or "" if the manifest has no
// Model section.
func (a *ModelArchive) ModelVersion() string {
	if a.manifest.Model == nil {
		return ""
	}
	return a.manifest.Model.ModelVersion
}

// Handler returns the handler reference, or "" if the manifest has no
// Model section.
func (a *ModelArchive) Handler() string {
	if a.manifest.Model == nil {
		return ""
	}
	return a.manifest.Model.Handler
}

func deleteQuietly(log logging.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warnf("failed to remove model directory %s: %v", dir, err)
	}
}
