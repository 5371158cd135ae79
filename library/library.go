// Package library enumerates sound packs on disk. A pack is a directory under
// the library root; each subfolder of a pack holds interchangeable sound files.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"soundboard/status"
)

var (
	// ErrRootNotFound is returned when the library root is not a directory.
	ErrRootNotFound = errors.New("sounds directory not found")
	// ErrPackNotFound is returned when a pack directory does not exist.
	ErrPackNotFound = errors.New("pack not found")
)

// Library lists packs, subfolders and sound files below a root directory.
type Library struct {
	root   string
	status status.Sink
	logger *slog.Logger

	mu     sync.RWMutex
	packs  []string
	filter func(name string) bool
}

// New creates a Library rooted at root. Problems found while listing are
// reported to sink as well as returned.
func New(root string, sink status.Sink) *Library {
	if sink == nil {
		sink = status.Discard
	}
	return &Library{
		root:   root,
		status: sink,
		logger: slog.With("component", "library"),
	}
}

// SetFilter restricts pools to the files accept returns true for. A nil
// filter admits every regular file.
func (l *Library) SetFilter(accept func(name string) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = accept
}

// Root returns the library's root directory
func (l *Library) Root() string {
	return l.root
}

// Scan re-reads the pack list from disk and returns it
func (l *Library) Scan() ([]string, error) {
	info, err := os.Stat(l.root)
	if err != nil || !info.IsDir() {
		l.setPacks(nil)
		status.Reportf(l.status, "Error: Base sounds directory '%s' not found.", l.root)
		return nil, fmt.Errorf("%s: %w", l.root, ErrRootNotFound)
	}

	packs, err := listDirs(l.root)
	if err != nil {
		l.setPacks(nil)
		status.Reportf(l.status, "Error scanning packs in '%s': %v", l.root, err)
		return nil, fmt.Errorf("failed to scan packs: %w", err)
	}

	l.setPacks(packs)
	if len(packs) == 0 {
		status.Reportf(l.status, "No sound packs found in '%s'.", l.root)
	}
	l.logger.Debug("Scanned packs", slog.String("root", l.root), slog.Int("packs", len(packs)))
	return l.Packs(), nil
}

func (l *Library) setPacks(packs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.packs = packs
}

// Packs returns the pack names found by the last Scan, sorted
func (l *Library) Packs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.packs))
	copy(out, l.packs)
	return out
}

// Subfolders returns the sorted subfolder names of pack
func (l *Library) Subfolders(pack string) ([]string, error) {
	if strings.TrimSpace(pack) == "" {
		return nil, nil
	}
	dir := filepath.Join(l.root, pack)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", pack, ErrPackNotFound)
	}
	return listDirs(dir)
}

// Files returns the paths of the sound files in pack/subfolder. Hidden files
// and files rejected by the filter are skipped. A missing subfolder yields no
// files and no error.
func (l *Library) Files(pack, subfolder string) ([]string, error) {
	if strings.TrimSpace(pack) == "" || strings.TrimSpace(subfolder) == "" {
		return nil, nil
	}
	dir := filepath.Join(l.root, pack, subfolder)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	l.mu.RLock()
	accept := l.filter
	l.mu.RUnlock()

	var files []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		if accept != nil && !accept(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// Pool returns the candidate sounds of pack/subfolder, or nothing when the
// selection is empty or unreadable. Read errors are only logged; the caller
// reports the skipped selection.
func (l *Library) Pool(pack, subfolder string) []string {
	files, err := l.Files(pack, subfolder)
	if err != nil {
		l.logger.Warn("Error accessing files",
			slog.String("dir", filepath.Join(l.root, pack, subfolder)),
			slog.Any("error", err))
		return nil
	}
	return files
}

// listDirs returns the collated names of the directories directly inside dir
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if isDir(dir, e) {
			names = append(names, e.Name())
		}
	}
	sortNames(names)
	return names, nil
}

// isDir follows symlinks so linked packs are listed too
func isDir(parent string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, e.Name()))
	return err == nil && info.IsDir()
}

// sortNames orders names the way a person reading the list expects:
// case-insensitive, numbers compared by value.
func sortNames(names []string) {
	c := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	c.SortStrings(names)
}
