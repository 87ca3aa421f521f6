//go:build !windows

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".config", AppName)
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "state", AppName)
}
