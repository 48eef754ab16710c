package storage

import (
	"bytes"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"golang.org/x/crypto/blake2b"

	"go-fileops/pkg/fserr"
)

const defaultCopyBuffer = 256 * 1024

type CopyOptions struct {
	BufferSize int
	// Verify re-reads every copied file and compares BLAKE2b-256 digests.
	Verify bool
}

// CopyTree copies src to dst. Directories are copied recursively, symlinks are
// recreated rather than followed, and dst must not exist. Permission bits and
// timestamps are preserved on a best-effort basis. On failure dst may be partially
// written; callers decide whether to remove it.
func CopyTree(src string, dst string, opts CopyOptions) (int64, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultCopyBuffer
	}

	info, err := os.Lstat(src)
	if err != nil {
		return 0, fserr.FromOS("copy", src, err)
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		return 0, copySymlink(src, dst)
	case info.IsDir():
		return copyDir(src, dst, opts)
	case info.Mode().IsRegular():
		return copyFile(src, dst, info, opts)
	default:
		return 0, fserr.New(fserr.IoError, "copy", src, fmt.Sprintf("unsupported file type %s", info.Mode().Type()))
	}
}

type copiedDir struct {
	path string
	info fs.FileInfo
}

func copyDir(src string, dst string, opts CopyOptions) (int64, error) {
	var (
		total atomic.Int64
		mu    sync.Mutex
		dirs  []copiedDir
	)

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, src, func(fullPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fserr.FromOS("copy", fullPath, walkErr)
		}

		rel, relErr := filepath.Rel(src, fullPath)
		if relErr != nil {
			return fserr.Wrap(fserr.IoError, "copy", fullPath, relErr)
		}
		target := filepath.Join(dst, rel)

		info, infoErr := d.Info()
		if infoErr != nil {
			return fserr.FromOS("copy", fullPath, infoErr)
		}

		switch {
		case info.IsDir():
			if mkErr := os.MkdirAll(target, 0o700); mkErr != nil {
				return fserr.FromOS("copy", target, mkErr)
			}
			mu.Lock()
			dirs = append(dirs, copiedDir{path: target, info: info})
			mu.Unlock()
			return nil
		case info.Mode()&fs.ModeSymlink != 0:
			return copySymlink(fullPath, target)
		case info.Mode().IsRegular():
			written, copyErr := copyFile(fullPath, target, info, opts)
			total.Add(written)
			return copyErr
		default:
			slog.Warn("copy: skipping special file", "path", fullPath, "mode", info.Mode().String())
			return nil
		}
	})
	if err != nil {
		return total.Load(), fserr.FromOS("copy", src, err)
	}

	// Children first, so setting a parent's mtime is not undone by later writes.
	sort.Slice(dirs, func(i, j int) bool {
		return len(dirs[i].path) > len(dirs[j].path)
	})
	for _, dir := range dirs {
		if chmodErr := os.Chmod(dir.path, dir.info.Mode().Perm()); chmodErr != nil {
			slog.Warn("copy: could not preserve permissions", "path", dir.path, "error", chmodErr)
		}
		preserveTimes(dir.path, dir.info)
	}

	return total.Load(), nil
}

func copyFile(src string, dst string, info fs.FileInfo, opts CopyOptions) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fserr.FromOS("copy", src, err)
	}
	defer in.Close()

	if mkErr := os.MkdirAll(filepath.Dir(dst), 0o755); mkErr != nil {
		return 0, fserr.FromOS("copy", dst, mkErr)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm()|0o200)
	if err != nil {
		return 0, fserr.FromOS("copy", dst, err)
	}

	var (
		reader  io.Reader = in
		srcHash hash.Hash
	)
	if opts.Verify {
		srcHash, err = blake2b.New256(nil)
		if err != nil {
			_ = out.Close()
			return 0, fserr.Wrap(fserr.IoError, "verify", dst, err)
		}
		reader = io.TeeReader(in, srcHash)
	}

	written, err := io.CopyBuffer(out, reader, make([]byte, opts.BufferSize))
	if err != nil {
		_ = out.Close()
		return written, fserr.FromOS("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return written, fserr.FromOS("copy", dst, err)
	}

	if opts.Verify {
		dstSum, sumErr := fileDigest(dst)
		if sumErr != nil {
			return written, fserr.FromOS("verify", dst, sumErr)
		}
		if !bytes.Equal(srcHash.Sum(nil), dstSum) {
			return written, fserr.New(fserr.IoError, "verify", dst, "checksum mismatch after copy")
		}
	}

	if chmodErr := os.Chmod(dst, info.Mode().Perm()); chmodErr != nil {
		slog.Warn("copy: could not preserve permissions", "path", dst, "error", chmodErr)
	}
	preserveTimes(dst, info)

	return written, nil
}

func copySymlink(src string, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fserr.FromOS("copy", src, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fserr.FromOS("copy", dst, err)
	}
	return nil
}

func preserveTimes(path string, info fs.FileInfo) {
	if err := os.Chtimes(path, AccessTime(info), info.ModTime()); err != nil {
		slog.Warn("copy: could not preserve timestamps", "path", path, "error", err)
	}
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Mover moves entries between paths that may live on different volumes.
type Mover struct {
	rename    func(oldpath string, newpath string) error
	removeAll func(path string) error
}

func NewMover() *Mover {
	return &Mover{rename: os.Rename, removeAll: os.RemoveAll}
}

var defaultMover = NewMover()

// MovePath moves src to dst with the default Mover.
func MovePath(src string, dst string) error {
	return defaultMover.Move(src, dst)
}

// Move renames src to dst, falling back to copy and remove when the two paths live
// on different volumes. A failed copy is discarded. If the source cannot be removed
// after a complete copy, dst is kept and the error is PartialMove: the removal may
// already have deleted part of src, so dst can be the only complete instance.
func (m *Mover) Move(src string, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fserr.FromOS("move", dst, err)
	}

	err := m.rename(src, dst)
	if err == nil {
		return nil
	}
	if !IsCrossDevice(err) {
		return fserr.FromOS("move", src, err)
	}

	if _, err := CopyTree(src, dst, CopyOptions{}); err != nil {
		if rmErr := m.removeAll(dst); rmErr != nil {
			slog.Warn("move: could not remove partial copy", "path", dst, "error", rmErr)
		}
		return err
	}
	if err := m.removeAll(src); err != nil {
		slog.Error("move: copied across volumes but the source could not be removed",
			"source", src, "destination", dst, "error", err)
		return &fserr.Error{
			Kind:    fserr.PartialMove,
			Op:      "move",
			Path:    src,
			Message: "copied to " + dst + " but the source could not be fully removed",
			Err:     err,
		}
	}
	return nil
}
