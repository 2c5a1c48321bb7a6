package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// overrideFile is the YAML shape of a prompt override file: a mapping of
// prompt kind to template text. Kinds not present keep their current template.
type overrideFile map[string]string

// LoadDir applies every .yaml/.yml override file in dir to the library.
// A missing directory is not an error; the built-in templates stay active.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read prompt dir %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := l.loadFile(path); err != nil {
			return fmt.Errorf("load %q: %w", path, err)
		}
	}

	return nil
}

func (l *Library) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overrides overrideFile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}

	for name, text := range overrides {
		kind := Kind(name)
		if _, ok := defaultTexts[kind]; !ok {
			return fmt.Errorf("unknown prompt kind %q", name)
		}
		tmpl, err := template.New(name).Parse(text)
		if err != nil {
			return fmt.Errorf("parse template %q: %w", name, err)
		}
		l.replace(kind, tmpl)
	}

	return nil
}

// WatchAndReload watches dir for override changes and reapplies them.
// Blocks until done is closed. A broken override file is logged and skipped;
// the previous templates stay active.
func (l *Library) WatchAndReload(dir string, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				ext := filepath.Ext(event.Name)
				if ext == ".yaml" || ext == ".yml" {
					if err := l.LoadDir(dir); err != nil {
						slog.Warn("prompt override reload failed",
							slog.String("dir", dir), slog.String("error", err.Error()))
					}
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
