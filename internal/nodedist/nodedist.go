// Package nodedist installs a portable Node.js distribution from an archive
// so the installation steps can run without a system-wide Node.js.
package nodedist

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"openclaw-setup/internal/logger"
)

// Installer unpacks a Node.js archive into Dir.
type Installer struct {
	// Dir receives the extracted distribution.
	Dir string
	// Client downloads remote archives. Defaults to http.DefaultClient.
	Client *http.Client
}

// Install fetches source when it is an https URL, extracts it into Dir and
// returns the directory that holds the node executable.
func (i *Installer) Install(ctx context.Context, source string) (string, error) {
	if i.Dir == "" {
		return "", fmt.Errorf("no install directory configured")
	}

	archive := source
	if isURL(source) {
		tmp, cleanup, err := i.fetch(ctx, source)
		if err != nil {
			return "", err
		}
		defer cleanup()
		archive = tmp
	}
	if !Supported(archive) {
		return "", fmt.Errorf("unsupported archive format: %s", source)
	}

	logger.Info("[INFO] Unpacking Node.js from %s into %s\n", source, i.Dir)
	root, err := Extract(archive, i.Dir)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", source, err)
	}

	binDir, err := FindNode(root)
	if err != nil {
		return "", err
	}
	logger.Debug("[DEBUG] Node.js executable directory: %s\n", binDir)
	return binDir, nil
}

// fetch downloads an https archive into a temp file that keeps the archive's
// extension.
func (i *Installer) fetch(ctx context.Context, source string) (string, func(), error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", source, err)
	}
	if u.Scheme != "https" {
		return "", nil, fmt.Errorf("refusing to download %s: only https is allowed", source)
	}

	tmpDir, err := os.MkdirTemp("", "openclaw-node-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	dest := filepath.Join(tmpDir, path.Base(u.Path))
	client := i.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger.Info("[INFO] Downloading Node.js from %s\n", source)
	if err := downloadFile(ctx, client, source, dest); err != nil {
		cleanup()
		return "", nil, err
	}
	return dest, cleanup, nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}

// executableName is the node binary's file name on this host.
func executableName() string {
	if runtime.GOOS == "windows" {
		return "node.exe"
	}
	return "node"
}

// FindNode returns the shallowest directory under root that contains the
// node executable.
func FindNode(root string) (string, error) {
	name := executableName()
	var (
		found string
		depth = -1
	)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != name {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
			return nil
		}
		if n := strings.Count(p, string(filepath.Separator)); depth < 0 || n < depth {
			found, depth = filepath.Dir(p), n
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("no %s executable found in %s", name, root)
	}
	return found, nil
}

// PathOverride returns step environment overrides that put binDir first on
// PATH, ahead of the current process PATH.
func PathOverride(binDir string) map[string]string {
	current := os.Getenv("PATH")
	if current == "" {
		return map[string]string{"PATH": binDir}
	}
	return map[string]string{"PATH": binDir + string(os.PathListSeparator) + current}
}
