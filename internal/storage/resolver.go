package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unicode"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

// Resolver turns caller-supplied paths into absolute PathSpecs. When permitted roots
// are configured every resolved path must fall inside one of them.
type Resolver struct {
	workDir string
	roots   []string
}

func NewResolver(workDir string, roots []string) (*Resolver, error) {
	if strings.TrimSpace(workDir) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		workDir = wd
	}

	workAbs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	cleanedRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		rootAbs, absErr := filepath.Abs(root)
		if absErr != nil {
			return nil, fmt.Errorf("resolve permitted root %q: %w", root, absErr)
		}
		cleanedRoots = append(cleanedRoots, rootAbs)
	}

	return &Resolver{workDir: workAbs, roots: cleanedRoots}, nil
}

func (r *Resolver) WorkDir() string {
	return r.workDir
}

func (r *Resolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

// Clean validates and normalizes raw without touching the filesystem.
func (r *Resolver) Clean(raw string) (string, error) {
	if raw == "" {
		return "", fserr.New(fserr.InvalidPath, "resolve", raw, "path cannot be empty")
	}

	if strings.Contains(raw, "\x00") || hasControlCharacters(raw) {
		return "", fserr.New(fserr.InvalidPath, "resolve", raw, "path contains invalid characters")
	}

	candidate := raw
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.workDir, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !r.permitted(candidate) {
		return "", fserr.New(fserr.PermissionDenied, "resolve", raw, "path is outside the permitted roots")
	}

	return candidate, nil
}

// Resolve requires the entry to exist. A symlink is reported as EntrySymlink and
// is not followed.
func (r *Resolver) Resolve(raw string) (model.PathSpec, error) {
	spec, err := r.ResolveTarget(raw)
	if err != nil {
		return model.PathSpec{}, err
	}

	if !spec.Exists() {
		return model.PathSpec{}, fserr.New(fserr.NotFound, "resolve", spec.Path, "")
	}

	return spec, nil
}

// ResolveTarget accepts paths that do not exist yet and tags them EntryMissing.
func (r *Resolver) ResolveTarget(raw string) (model.PathSpec, error) {
	cleaned, err := r.Clean(raw)
	if err != nil {
		return model.PathSpec{}, err
	}

	info, err := os.Lstat(cleaned)
	if err != nil {
		if isMissing(err) {
			return model.PathSpec{Path: cleaned, Type: model.EntryMissing}, nil
		}
		return model.PathSpec{}, fserr.FromOS("resolve", cleaned, err)
	}

	return model.PathSpec{Path: cleaned, Type: EntryTypeOf(info.Mode())}, nil
}

// EntryTypeOf maps a file mode onto the entry type tags. Devices, pipes and sockets
// count as files.
func EntryTypeOf(mode fs.FileMode) model.EntryType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return model.EntrySymlink
	case mode.IsDir():
		return model.EntryDirectory
	default:
		return model.EntryFile
	}
}

func (r *Resolver) permitted(candidate string) bool {
	if len(r.roots) == 0 {
		return true
	}

	for _, root := range r.roots {
		if isWithinRoot(root, candidate) {
			return true
		}
	}

	return false
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs
	if !strings.HasSuffix(rootWithSeparator, string(filepath.Separator)) {
		rootWithSeparator += string(filepath.Separator)
	}
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}

// IsWithin reports whether candidate equals parent or lies beneath it.
func IsWithin(parent string, candidate string) bool {
	return isWithinRoot(filepath.Clean(parent), filepath.Clean(candidate))
}
