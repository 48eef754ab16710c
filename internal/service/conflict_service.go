package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

const DefaultRenameMaxAttempts = 100

// resolveConflictTarget decides where an entry bound for desired lands under policy.
// Overwrite returns desired unchanged; clearing it is the caller's job.
func resolveConflictTarget(desired model.PathSpec, policy model.ConflictPolicy, isDir bool, maxAttempts int) (string, bool, bool, error) {
	if !desired.Exists() {
		return desired.Path, false, false, nil
	}

	switch policy {
	case model.ConflictSkip:
		return "", true, false, nil
	case model.ConflictOverwrite:
		return desired.Path, false, false, nil
	case model.ConflictFail:
		return "", false, false, fserr.New(fserr.ConflictUnresolved, "transfer", desired.Path, "destination already exists")
	case model.ConflictRename, "":
		candidate, err := nextFreeName(desired.Path, isDir, maxAttempts)
		if err != nil {
			return "", false, false, err
		}
		return candidate, false, true, nil
	default:
		return "", false, false, fserr.New(fserr.InvalidPath, "transfer", desired.Path, "unknown conflict policy "+string(policy))
	}
}

// nextFreeName tries "name (1).ext" through "name (max).ext". Directories and
// dot-files keep their whole name as the stem.
func nextFreeName(desired string, isDir bool, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRenameMaxAttempts
	}

	parent := filepath.Dir(desired)
	base := filepath.Base(desired)
	stem, ext := base, ""
	if !isDir {
		ext = filepath.Ext(base)
		stem = strings.TrimSuffix(base, ext)
		if stem == "" {
			stem, ext = base, ""
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := filepath.Join(parent, fmt.Sprintf("%s (%d)%s", stem, attempt, ext))
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fserr.FromOS("transfer", candidate, err)
		}
	}

	return "", fserr.New(fserr.ConflictUnresolved, "transfer", desired,
		fmt.Sprintf("no free name after %d attempts", maxAttempts))
}
