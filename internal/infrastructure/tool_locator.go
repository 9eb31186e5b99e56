package infrastructure

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveExecutable locates the tool binary.
// Order: bundle directories, the directory of the running executable, then PATH.
func ResolveExecutable(binary string, bundleDirs []string) (string, error) {
	if filepath.IsAbs(binary) {
		if isExecutableFile(binary) {
			return binary, nil
		}
		return "", fmt.Errorf("%s not found", binary)
	}

	name := binary
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}

	candidates := make([]string, 0, len(bundleDirs)+1)
	candidates = append(candidates, bundleDirs...)
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Dir(execPath))
	}

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, name)
		if isExecutableFile(p) {
			return p, nil
		}
	}

	p, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%s not found in bundle directories or PATH: %w", binary, err)
	}
	return p, nil
}

// BuildEnv returns base with the bundle directories prepended to PATH so bundled helpers
// (ffmpeg and friends) win over system-installed ones
func BuildEnv(base []string, bundleDirs []string) []string {
	var dirs []string
	for _, d := range bundleDirs {
		if d != "" {
			dirs = append(dirs, d)
		}
	}

	env := make([]string, 0, len(base)+1)
	pathValue := ""
	pathKey := "PATH"
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(key, "PATH") {
			pathKey = key
			pathValue = value
			continue
		}
		env = append(env, kv)
	}

	if len(dirs) == 0 {
		if pathValue != "" {
			env = append(env, pathKey+"="+pathValue)
		}
		return env
	}

	prefix := strings.Join(dirs, string(os.PathListSeparator))
	if pathValue != "" {
		prefix += string(os.PathListSeparator) + pathValue
	}
	return append(env, pathKey+"="+prefix)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0111 != 0
}
