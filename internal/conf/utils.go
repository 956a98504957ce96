package conf

import (
	"os"
	"path/filepath"

	"github.com/tphakala/exoplanet-go/internal/errors"
)

const appDirName = "exoplanet-go"

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
// The first entry is where a default config is written when none exists.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", appDirName),
		filepath.Join("/etc", appDirName),
	}, nil
}

// ResolvePath returns the first existing file among name joined onto each
// search directory. An absolute name is checked as is.
func ResolvePath(name string, searchPaths []string) (string, bool) {
	if name == "" {
		return "", false
	}

	if filepath.IsAbs(name) {
		if fileExists(name) {
			return name, true
		}
		return "", false
	}

	for _, dir := range searchPaths {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
