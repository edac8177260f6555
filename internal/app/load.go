package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/assetgrid/internal/pkgjson"
	"github.com/vk/assetgrid/internal/workspace"
)

// baseDir is the project root: the configured base directory, or else the
// directory holding the Gridfile.
func baseDir(cfg *Config) (string, error) {
	if cfg.BaseDir != "" {
		return filepath.Abs(cfg.BaseDir)
	}
	info, err := os.Stat(cfg.GridPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	if info.IsDir() {
		return filepath.Abs(cfg.GridPath)
	}
	return filepath.Abs(filepath.Dir(cfg.GridPath))
}

// loadPackage reads the manifest the Gridfile names. Without one, `pkg` is
// an empty object.
func loadPackage(ws *workspace.Workspace, name string) (*pkgjson.Package, error) {
	if name == "" {
		return pkgjson.Empty(), nil
	}
	raw, err := ws.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading package %s: %w", name, err)
	}
	pkg, err := pkgjson.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", name, err)
	}
	return pkg, nil
}
