package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrAssetNotFound    = errors.New("asset not found")
	ErrPrefabNotFound   = errors.New("prefab not found")
	ErrUnknownPrimitive = errors.New("unknown primitive")
)

const bundleExt = ".json"

// Loader reads prefab bundles from a directory. A bundle is addressed by its
// file name with or without the .json extension.
type Loader struct {
	Dir string
}

// NewLoader returns a loader for dir, creating the directory when it does not exist yet.
func NewLoader(dir string) (*Loader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory %s: %w", dir, err)
	}
	return &Loader{Dir: dir}, nil
}

// Files lists the bundle names available in the directory, sorted. A name
// present both with and without the .json extension is listed once.
func (l *Loader) Files() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", l.Dir, err)
	}

	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), bundleExt)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Load reads and decodes the named bundle.
func (l *Loader) Load(name string) (*Bundle, error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return &b, nil
}

func (l *Loader) resolve(name string) (string, error) {
	candidates := []string{filepath.Join(l.Dir, name)}
	if !strings.HasSuffix(name, bundleExt) {
		candidates = append(candidates, filepath.Join(l.Dir, name+bundleExt))
	}
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Assets: WARNING: cannot stat %s: %v", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrAssetNotFound, name)
}

// Save writes b as the named bundle, replacing any existing file.
func (l *Loader) Save(name string, b *Bundle) (string, error) {
	path := filepath.Join(l.Dir, strings.TrimSuffix(name, bundleExt)+bundleExt)
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
