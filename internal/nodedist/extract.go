package nodedist

import (
	"archive/tar"    // For reading .tar archives
	"archive/zip"    // For reading .zip archives
	"compress/bzip2" // For reading .bz2 compressed data
	"compress/gzip"  // For reading .gz compressed data
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip" // For reading .7z archives (Node.js Windows builds)
	"github.com/xi2/xz"          // For reading .xz compressed data (Node.js Linux/macOS builds)

	"openclaw-setup/internal/logger"
)

// ErrUnsafePath is returned for an archive entry that would land outside
// the destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// archiveExts lists the supported formats, longest suffix first.
var archiveExts = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".tar", ".zip", ".7z"}

// Supported reports whether name has an archive extension Extract handles.
func Supported(name string) bool {
	return archiveExt(name) != ""
}

func archiveExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// Extract unpacks the archive at src into dest, picking the format from the
// file name. It returns the archive's top-level directory inside dest, or
// dest itself when entries are not under a single directory.
func Extract(src, dest string) (string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}

	var (
		names []string
		err   error
	)
	switch ext := archiveExt(src); ext {
	case ".zip":
		logger.Debug("[DEBUG] Extracting zip archive %s to %s\n", src, dest)
		names, err = extractZip(src, dest)
	case ".7z":
		logger.Debug("[DEBUG] Extracting 7z archive %s to %s\n", src, dest)
		names, err = extract7z(src, dest)
	case "":
		return "", fmt.Errorf("unsupported archive format: %s", src)
	default:
		logger.Debug("[DEBUG] Extracting %s archive %s to %s\n", ext, src, dest)
		names, err = extractTarArchive(src, dest, ext)
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(dest, topLevel(names)), nil
}

// topLevel returns the single leading directory shared by every entry, or "".
func topLevel(names []string) string {
	var top string
	for _, name := range names {
		first, _, _ := strings.Cut(strings.TrimPrefix(filepath.ToSlash(name), "./"), "/")
		if first == "" {
			continue
		}
		if top == "" {
			top = first
		} else if first != top {
			return ""
		}
	}
	return top
}

// safeJoin resolves an entry name under dest, rejecting absolute names and
// any that climb out with "..".
func safeJoin(dest, name string) (string, error) {
	clean := filepath.FromSlash(name)
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(dest, clean)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// extractTarArchive handles tar and compressed tar variants.
func extractTarArchive(src, dest, ext string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	switch ext {
	case ".tar.gz", ".tgz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		reader = gr
	case ".tar.bz2":
		reader = bzip2.NewReader(f)
	case ".tar.xz":
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return nil, err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return nil, err
		}
		names = append(names, hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return nil, err
			}
		case tar.TypeSymlink:
			// Node.js tarballs link bin/npm into lib/node_modules.
			if err := symlink(dest, target, hdr.Linkname); err != nil {
				return nil, err
			}
		default:
			logger.Debug("[DEBUG] Skipping tar entry %s (type %c)\n", hdr.Name, hdr.Typeflag)
		}
	}
	return names, nil
}

// extractZip extracts a .zip archive.
func extractZip(src, dest string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return nil, err
		}
		names = append(names, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = writeFile(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}

// extract7z handles .7z extraction using the sevenzip library.
func extract7z(src, dest string) ([]string, error) {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return nil, err
		}
		names = append(names, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = writeFile(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}

// writeFile creates path with the entry's permission bits. Entries without
// any permission bits get 0644.
func writeFile(path string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// symlink creates target pointing at linkname, which must resolve inside dest.
func symlink(dest, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(linkname) {
		resolved = filepath.Join(filepath.Dir(target), linkname)
	}
	rel, err := filepath.Rel(dest, resolved)
	if err != nil || filepath.IsAbs(linkname) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, target, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_ = os.Remove(target)
	return os.Symlink(linkname, target)
}
