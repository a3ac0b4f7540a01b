package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvPicoSearchConfig = "PICOSEARCH_CONFIG"
	EnvPicoSearchHome   = "PICOSEARCH_HOME"
)

type RuntimePaths struct {
	HomeDir     string
	ConfigPath  string
	DotEnvPath  string
	LogPath     string
	HistoryFile string
}

// ResolveRuntimePaths honours PICOSEARCH_CONFIG first, then PICOSEARCH_HOME,
// then ~/.picosearch.
func ResolveRuntimePaths() RuntimePaths {
	if configPath := expandHome(strings.TrimSpace(os.Getenv(EnvPicoSearchConfig))); configPath != "" {
		return buildRuntimePaths(filepath.Dir(configPath), configPath)
	}

	homeDir := expandHome(strings.TrimSpace(os.Getenv(EnvPicoSearchHome)))
	if homeDir == "" {
		homeDir = defaultHome()
	}

	return buildRuntimePaths(homeDir, filepath.Join(homeDir, "config.json"))
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".picosearch"
	}
	return filepath.Join(home, ".picosearch")
}

func buildRuntimePaths(homeDir, configPath string) RuntimePaths {
	return RuntimePaths{
		HomeDir:     homeDir,
		ConfigPath:  configPath,
		DotEnvPath:  filepath.Join(homeDir, ".env"),
		LogPath:     filepath.Join(homeDir, "picosearch.log"),
		HistoryFile: filepath.Join(homeDir, "history"),
	}
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(home, path[2:])
	}
	return home
}
