package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serveops/model-archive/pkg/logging"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "MAR-INF"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestPath), []byte(content), 0o644))
}

func extractedDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "abc123")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func TestLoadParsesManifest(t *testing.T) {
	dir := extractedDir(t)
	writeManifest(t, dir, `{
		"createdOn": "2024-01-15",
		"runtime": "python3",
		"model": {
			"modelName": "noop",
			"modelVersion": "1.0",
			"handler": "service:handle"
		},
		"engine": {"engineName": "onnx", "engineVersion": "1.4"}
	}`)

	ma, err := load(logging.Discard(), "noop.mar", dir, true)
	require.NoError(t, err)
	require.NoError(t, ma.Validate())

	assert.Equal(t, "noop", ma.ModelName())
	assert.Equal(t, "1.0", ma.ModelVersion())
	assert.Equal(t, "service:handle", ma.Handler())
	assert.Equal(t, "noop.mar", ma.Reference())
	assert.Equal(t, dir, ma.ModelDir())
	assert.True(t, ma.Extracted())
	require.NotNil(t, ma.Manifest().Engine)
	assert.Equal(t, "onnx", ma.Manifest().Engine.EngineName)
}

func TestLoadWithoutManifestThenValidateFails(t *testing.T) {
	dir := extractedDir(t)

	// Load succeeds with a default manifest; only Validate rejects it.
	ma, err := load(logging.Discard(), "noop.mar", dir, true)
	require.NoError(t, err)
	assert.Nil(t, ma.Manifest().Model)

	err = ma.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidModel))

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "validation failure must clean the extracted directory")
}

func TestLoadRejectsUnparseableManifest(t *testing.T) {
	dir := extractedDir(t)
	writeManifest(t, dir, `{"runtime": `)

	_, err := load(logging.Discard(), "noop.mar", dir, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidModel))

	var invalidErr *InvalidModelError
	require.True(t, errors.As(err, &invalidErr))
	assert.Error(t, invalidErr.Err, "the parse error must be retained")

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestValidateFieldChecks(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		reason   string
	}{
		{
			name:     "missing model section",
			manifest: `{"runtime": "python"}`,
			reason:   "missing Model entry",
		},
		{
			name:     "missing model name",
			manifest: `{"runtime": "python", "model": {"modelVersion": "1.0"}}`,
			reason:   "model name is not defined",
		},
		{
			name:     "missing runtime",
			manifest: `{"model": {"modelName": "noop"}}`,
			reason:   "runtime is not defined",
		},
		{
			name:     "engine without name",
			manifest: `{"runtime": "python", "model": {"modelName": "noop"}, "engine": {"engineVersion": "1.4"}}`,
			reason:   "engineName is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := extractedDir(t)
			writeManifest(t, dir, tt.manifest)

			ma, err := load(logging.Discard(), "noop.mar", dir, true)
			require.NoError(t, err)

			err = ma.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidModel))
			assert.Contains(t, err.Error(), tt.reason)

			_, statErr := os.Stat(dir)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestValidateShortCircuitsOnFirstFailure(t *testing.T) {
	dir := extractedDir(t)
	// Everything is wrong; only the Model check may be reported.
	writeManifest(t, dir, `{}`)

	ma, err := load(logging.Discard(), "noop.mar", dir, true)
	require.NoError(t, err)

	err = ma.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing Model entry")
	assert.NotContains(t, err.Error(), "runtime")
}

func TestCleanOnlyRemovesFreshlyExtractedDirs(t *testing.T) {
	// Not extracted by this pipeline: Clean must leave the directory.
	dir := extractedDir(t)
	ma, err := load(logging.Discard(), "noop.mar", dir, false)
	require.NoError(t, err)

	require.Error(t, ma.Validate())
	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr, "pre-existing directories must never be deleted")

	// Empty reference: Clean must also be a no-op.
	dir = extractedDir(t)
	ma, err = load(logging.Discard(), "", dir, true)
	require.NoError(t, err)
	ma.Clean()
	_, statErr = os.Stat(dir)
	assert.NoError(t, statErr)
}
