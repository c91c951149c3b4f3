package loader

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	apperrors "github.com/idg10/rxrewrite/errors"
)

// Loader loads pipeline definitions by name.
type Loader interface {
	Load(name string) (*Definition, error)
}

// FileLoader loads definitions from YAML files on disk.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches the given directories.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

var extensions = []string{".yaml", ".yml"}

// Load searches for {name}.yaml and {name}.yml in each directory, then in
// its subdirectories.
func (l *FileLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range extensions {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}

		var found string
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || found != "" {
				return nil
			}
			if definitionName(path) == name {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if found != "" {
			return LoadFile(found)
		}
	}
	return nil, apperrors.NotFound("pipeline", name).WithDetail("dirs", l.dirs)
}

// List returns the names of the definitions found in the directories,
// sorted and without duplicates.
func (l *FileLoader) List() ([]string, error) {
	seen := make(map[string]bool)
	for _, dir := range l.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if name := definitionName(path); name != "" && !d.IsDir() {
				seen[name] = true
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, apperrors.Internal(fmt.Errorf("listing %s: %w", dir, err))
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func definitionName(path string) string {
	base := filepath.Base(path)
	for _, ext := range extensions {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return ""
}

// LoadFile reads one definition file. A definition without a name is named
// after its file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("pipeline file", path)
		}
		return nil, apperrors.Internal(fmt.Errorf("reading %s: %w", path, err))
	}
	d, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if d.Name == "" {
		d.Name = definitionName(path)
	}
	return d, nil
}

// Parse decodes a YAML definition. Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, apperrors.MalformedExpression("parsing definition: %v", err).WithCause(err)
	}
	return &d, nil
}
