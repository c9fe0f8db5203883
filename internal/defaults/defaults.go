// Package defaults locates the per-user data directory and the config file
// kept there.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/DeepLink/
//	Windows: %AppData%\DeepLink\
//	Linux:   ~/.config/deeplink/
//
// Override with DEEPLINK_DATA_DIR environment variable.
package defaults

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the user config overlaid on the embedded defaults.
const ConfigFileName = "deeplink.yaml"

// DataDir returns the platform-appropriate data directory.
// Set DEEPLINK_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("DEEPLINK_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	// macOS/Windows: title case per platform convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "deeplink"), nil
	}
	return filepath.Join(configDir, "DeepLink"), nil
}

// UserConfig returns the path of the user config file and whether it exists.
func UserConfig() (string, bool) {
	dir, err := DataDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}

// WriteUserConfig writes data as the user config unless one already exists.
func WriteUserConfig(data []byte) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dir, ConfigFileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
