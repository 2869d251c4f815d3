package store

import (
	"archive/zip"
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	moby "github.com/moby/go-archive"
	"github.com/pkg/errors"
)

// zipMagic is the local-file-header signature shared by all zip variants.
var zipMagic = []byte("PK")

// extract unpacks the archive stream into dest. The stream may be a zip
// archive (the model archive wire format) or a tar archive with any
// compression moby/go-archive can detect.
func (s *Store) extract(br *bufio.Reader, dest string) error {
	magic, err := br.Peek(len(zipMagic))
	if err != nil {
		return errors.Wrap(err, "read archive header")
	}
	if bytes.Equal(magic, zipMagic) {
		return s.extractZip(br, dest)
	}
	if err := moby.Untar(br, dest, &moby.TarOptions{NoLchown: true}); err != nil {
		return errors.Wrap(err, "extract tar archive")
	}
	return nil
}

// extractZip spools the stream to a temporary file (zip needs random
// access) and unpacks its entries into dest. The spool lives next to the
// cache entries, never inside dest, so it cannot leak into a promoted
// directory.
func (s *Store) extractZip(r io.Reader, dest string) error {
	spool, err := os.CreateTemp(s.root, ".download-*")
	if err != nil {
		return errors.Wrap(err, "create spool file")
	}
	defer func() {
		spool.Close()
		if err := os.Remove(spool.Name()); err != nil {
			s.log.Warnf("failed to remove spool file %s: %v", spool.Name(), err)
		}
	}()

	size, err := io.Copy(spool, r)
	if err != nil {
		return errors.Wrap(err, "spool archive")
	}
	zr, err := zip.NewReader(spool, size)
	if err != nil {
		return errors.Wrap(err, "open zip archive")
	}
	for _, f := range zr.File {
		if err := extractZipEntry(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, dest string) error {
	target, err := safeJoin(dest, f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return errors.Wrapf(os.MkdirAll(target, 0o755), "create directory %s", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "create parent directory for %s", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "open zip entry %s", f.Name)
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create %s", f.Name)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrapf(err, "write %s", f.Name)
	}
	return errors.Wrapf(out.Close(), "close %s", f.Name)
}

// safeJoin resolves an archive entry name under dest, rejecting entries
// that would escape it.
func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errors.Errorf("path traversal attempt detected: %s", name)
	}
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("path traversal attempt detected: %s", name)
	}
	return target, nil
}
