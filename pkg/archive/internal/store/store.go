// Package store materializes model archive streams into a content-addressed
// cache directory. Each archive is extracted into an exclusive staging
// directory while its SHA-1 digest is computed over the raw input bytes,
// then promoted under <root>/<key> where key is the caller's hint (an HTTP
// ETag) or the hex digest. Byte-identical archives collapse to the same
// entry regardless of where they were fetched from.
package store

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/pkg/errors"

	"github.com/serveops/model-archive/pkg/logging"
)

const (
	// markerFile is written inside a cache entry after a successful
	// promote. An entry without it is a leftover from a crashed
	// extraction and must not be served as a cache hit.
	markerFile = ".materialized"

	stagingPattern = ".staging-*"
)

// Store owns the shared model cache root.
type Store struct {
	root string
	log  logging.Logger
}

// New returns a store rooted at root. The directory is created lazily on
// first materialization.
func New(root string, log logging.Logger) *Store {
	return &Store{root: root, log: log}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// CachedDir returns the directory for key if a completed cache entry
// exists for it.
func (s *Store) CachedDir(key string) (string, bool) {
	if !safeKey(key) {
		return "", false
	}
	dest := filepath.Join(s.root, key)
	if s.isComplete(dest) {
		return dest, true
	}
	return "", false
}

// Materialize extracts the archive stream into the cache and returns the
// resulting directory. keyHint, when non-empty, names the cache entry;
// otherwise the SHA-1 digest of the raw stream is used. If an entry for
// the resolved key already exists the extracted copy is discarded and the
// existing directory is returned.
func (s *Store) Materialize(r io.Reader, keyHint string) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", errors.Wrap(err, "create cache root")
	}
	staging, err := os.MkdirTemp(s.root, stagingPattern)
	if err != nil {
		return "", errors.Wrap(err, "create staging directory")
	}
	defer s.discard(staging)

	digester := sha1.New()
	counter := &countingWriter{}
	br := bufio.NewReader(io.TeeReader(r, io.MultiWriter(digester, counter)))

	if err := s.extract(br, staging); err != nil {
		return "", err
	}
	// Drain whatever the extractor left unread so the digest always
	// covers the complete input stream.
	if _, err := io.Copy(io.Discard, br); err != nil {
		return "", errors.Wrap(err, "drain archive stream")
	}

	key := keyHint
	if key != "" && !safeKey(key) {
		s.log.Warnf("ignoring unsafe cache key hint: %q", key)
		key = ""
	}
	if key == "" {
		key = hex.EncodeToString(digester.Sum(nil))
	}

	dest := filepath.Join(s.root, key)
	if s.isComplete(dest) {
		s.log.Infof("model folder already exists: %s", key)
		return dest, nil
	}
	if _, err := os.Stat(dest); err == nil {
		// Crash leftover without a completion marker. Removal is best
		// effort: a concurrent materialization may be promoting the same
		// key right now, and the rename fallback below handles that.
		s.log.Warnf("removing incomplete cache entry: %s", key)
		if err := os.RemoveAll(dest); err != nil {
			s.log.Warnf("failed to remove incomplete cache entry %s: %v", key, err)
		}
	}
	if err := os.Rename(staging, dest); err != nil {
		// A failed move with the destination present means a concurrent
		// materialization won the race; its entry is equivalent to ours.
		if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
			s.log.Infof("model folder already exists: %s", key)
			return dest, nil
		}
		return "", errors.Wrap(err, "promote staging directory")
	}
	if err := os.WriteFile(filepath.Join(dest, markerFile), nil, 0o644); err != nil {
		s.log.Warnf("failed to write completion marker for %s: %v", key, err)
	}
	s.log.Infof("materialized model archive %s (%s)", key, units.HumanSize(float64(counter.n)))
	return dest, nil
}

// Digest returns the lowercase hex SHA-1 of everything read from r. Used
// by callers that need the cache key of an archive without extracting it.
func Digest(r io.Reader) (string, error) {
	digester := sha1.New()
	if _, err := io.Copy(digester, r); err != nil {
		return "", errors.Wrap(err, "digest archive stream")
	}
	return hex.EncodeToString(digester.Sum(nil)), nil
}

func (s *Store) isComplete(dest string) bool {
	_, err := os.Stat(filepath.Join(dest, markerFile))
	return err == nil
}

// discard removes a staging directory, best effort.
func (s *Store) discard(dir string) {
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		s.log.Warnf("failed to remove staging directory %s: %v", dir, err)
	}
}

// safeKey reports whether key can be used directly as a cache directory
// name. Keys in the dot-namespace are reserved for staging and spool
// files, and anything resembling a path is rejected outright.
func safeKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ".") {
		return false
	}
	if strings.ContainsAny(key, `/\`) {
		return false
	}
	return true
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
