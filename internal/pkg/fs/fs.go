package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Entry struct {
	path string

	listed      bool
	dirs, files map[string]Entry
}

func NewEntry(path string) Entry {
	return Entry{
		path: path,
	}
}

func (e *Entry) list() error {
	path, err := filepath.EvalSymlinks(e.path)
	if err != nil {
		return fmt.Errorf("cannot resolve \"%s\": %w", e.path, err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("cannot read \"%s\" directory: %w", path, err)
	}

	var dirs, files = make(map[string]Entry), make(map[string]Entry)

	for _, entry := range entries {
		path := filepath.Join(e.path, entry.Name())
		info, err := os.Stat(path) // follows symlinks
		if err != nil {
			continue // dangling link
		}
		if info.IsDir() {
			dirs[entry.Name()] = NewEntry(path)
		} else {
			files[entry.Name()] = NewEntry(path)
		}
	}
	e.dirs = dirs
	e.files = files
	e.listed = true
	return nil
}

func (e *Entry) Dirs() (map[string]Entry, error) {
	if !e.listed {
		err := e.list()
		if err != nil {
			return map[string]Entry{}, err
		}
	}
	return e.dirs, nil
}

func (e *Entry) Files() (map[string]Entry, error) {
	if !e.listed {
		err := e.list()
		if err != nil {
			return map[string]Entry{}, err
		}
	}
	return e.files, nil
}

// FilesWithSuffix returns sorted names of files ending with any of suffixes, case insensitive.
func (e *Entry) FilesWithSuffix(suffixes ...string) ([]string, error) {
	files, err := e.Files()
	if err != nil {
		return nil, err
	}

	var names []string
	for name := range files {
		lower := strings.ToLower(name)
		for _, s := range suffixes {
			if strings.HasSuffix(lower, strings.ToLower(s)) {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (e *Entry) Path() string {
	return e.path
}
