// Package schema loads the host project's data-model schema files. Schemas
// live as YAML or JSON documents under the configured schema directories,
// one file per object, grouped in subdirectories by domain.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Object is one parsed schema document. The object name is derived from the
// file name and injected into the body under "objectName", mirroring what
// the generation service expects.
type Object struct {
	Name string
	Body map[string]any
	Path string
}

// LoadDir walks one schema directory and parses every .yaml/.yml/.json file
// found in its subdirectories. A missing directory is not an error; it just
// contributes nothing.
func LoadDir(dir string) ([]Object, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat schema directory: %w", err)
	}

	var objects []Object
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			return nil
		}
		obj, err := loadFile(path, ext)
		if err != nil {
			return err
		}
		objects = append(objects, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// Load collects schema objects from all configured directories. Later
// directories win on name collisions, matching the directory precedence of
// the host project layout.
func Load(dirs ...string) (map[string]Object, error) {
	merged := map[string]Object{}
	for _, dir := range dirs {
		objects, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, obj := range objects {
			merged[obj.Name] = obj
		}
	}
	return merged, nil
}

// Marshal renders the merged objects as the JSON document the generation
// API consumes: a map of objectName to schema body.
func Marshal(objects map[string]Object) ([]byte, error) {
	doc := make(map[string]map[string]any, len(objects))
	for name, obj := range objects {
		doc[name] = obj.Body
	}
	return json.Marshal(doc)
}

// Names returns the object names in sorted order.
func Names(objects map[string]Object) []string {
	names := make([]string, 0, len(objects))
	for name := range objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadFile(path, ext string) (Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Object{}, fmt.Errorf("read schema file: %w", err)
	}

	body := map[string]any{}
	if ext == ".json" {
		if err := json.Unmarshal(data, &body); err != nil {
			return Object{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &body); err != nil {
			return Object{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	body["objectName"] = name

	return Object{Name: name, Body: body, Path: path}, nil
}
