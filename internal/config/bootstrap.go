package config

import (
	_ "embed"
	"errors"
	"io"
	"os"
	"path/filepath"
)

//go:embed default.yml
var defaultConfig []byte

// DefaultYAML is the config written on first run when no default file is shipped alongside the binary.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultConfig...)
}

// EnsureUserConfig returns the path of the user's config in dataDir, creating it from
// defaultPath (or the embedded defaults) when missing.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	src, err := os.Open(defaultPath)
	if errors.Is(err, os.ErrNotExist) {
		return userPath, os.WriteFile(userPath, defaultConfig, 0o644)
	}
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(userPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return userPath, nil
}
