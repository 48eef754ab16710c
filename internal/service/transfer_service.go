package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"go-fileops/internal/model"
	"go-fileops/internal/storage"
	"go-fileops/pkg/fserr"
)

type TransferOptions struct {
	RenameMaxAttempts int
	BufferSize        int
	Verify            bool
}

// TransferService moves and copies single entries. Copies are written to a hidden
// staging name next to the target and renamed into place, so the target path never
// shows a half-written entry.
type TransferService struct {
	resolver *storage.Resolver
	opts     TransferOptions

	rename    func(oldPath string, newPath string) error
	removeAll func(path string) error
	copyTree  func(src string, dst string, opts storage.CopyOptions) (int64, error)
}

func NewTransferService(resolver *storage.Resolver, opts TransferOptions) *TransferService {
	if opts.RenameMaxAttempts <= 0 {
		opts.RenameMaxAttempts = DefaultRenameMaxAttempts
	}

	return &TransferService{
		resolver:  resolver,
		opts:      opts,
		rename:    os.Rename,
		removeAll: os.RemoveAll,
		copyTree:  storage.CopyTree,
	}
}

type transferPlan struct {
	source     model.PathSpec
	sourceSize int64
	target     string
	replace    bool
	targetDir  bool
	result     model.TransferResult
	done       bool
}

// Move renames source onto destination. When the rename crosses volumes the entry
// is copied and the source removed; if that removal fails the copy is kept and the
// error is PartialMove.
func (s *TransferService) Move(ctx context.Context, req model.TransferRequest) (model.TransferResult, error) {
	plan, err := s.plan(ctx, "move", req)
	if err != nil || plan.done {
		return plan.result, err
	}
	result := plan.result

	if plan.replace && (plan.source.IsDir() || plan.targetDir) {
		if err := s.removeAll(plan.target); err != nil {
			return result, fserr.FromOS("move", plan.target, err)
		}
	}

	err = s.rename(plan.source.Path, plan.target)
	if err == nil {
		result.Bytes = plan.sourceSize
		slog.Debug("entry moved", "source", plan.source.Path, "destination", plan.target)
		return result, nil
	}
	if !storage.IsCrossDevice(err) {
		return result, fserr.FromOS("move", plan.source.Path, err)
	}

	result.CrossVolume = true
	written, err := s.stageCopy(plan)
	if err != nil {
		return result, err
	}
	result.Bytes = written

	if err := s.removeAll(plan.source.Path); err != nil {
		slog.Error("cross-volume move could not remove source",
			"source", plan.source.Path, "destination", plan.target, "error", err)
		return result, fserr.Wrap(fserr.PartialMove, "move", plan.source.Path, err)
	}

	slog.Info("entry moved across volumes",
		"source", plan.source.Path, "destination", plan.target, "size", humanize.Bytes(uint64(written)))
	return result, nil
}

// Copy duplicates source at destination, recursing into directories.
func (s *TransferService) Copy(ctx context.Context, req model.TransferRequest) (model.TransferResult, error) {
	plan, err := s.plan(ctx, "copy", req)
	if err != nil || plan.done {
		return plan.result, err
	}
	result := plan.result

	written, err := s.stageCopy(plan)
	if err != nil {
		return result, err
	}
	result.Bytes = written

	slog.Debug("entry copied",
		"source", plan.source.Path, "destination", plan.target, "size", humanize.Bytes(uint64(written)))
	return result, nil
}

func (s *TransferService) plan(ctx context.Context, op string, req model.TransferRequest) (transferPlan, error) {
	var plan transferPlan

	if err := ctx.Err(); err != nil {
		return plan, fserr.Wrap(fserr.Cancelled, op, req.Source.Path, err)
	}

	source, err := s.resolver.Resolve(req.Source.Path)
	if err != nil {
		return plan, err
	}
	dest, err := s.resolver.ResolveTarget(req.Destination.Path)
	if err != nil {
		return plan, err
	}

	policy := req.Policy
	if policy == "" {
		policy = model.ConflictRename
	}

	plan.source = source
	plan.result = model.TransferResult{Source: source.Path, Destination: dest.Path}

	if dest.Path == source.Path && (op == "move" || policy == model.ConflictOverwrite) {
		plan.done = true
		return plan, nil
	}
	if source.IsDir() && dest.Path != source.Path && storage.IsWithin(source.Path, dest.Path) {
		return plan, fserr.New(fserr.InvalidPath, op, dest.Path, "cannot place a directory inside itself")
	}

	target, skipped, renamed, err := resolveConflictTarget(dest, policy, source.IsDir(), s.opts.RenameMaxAttempts)
	if err != nil {
		return plan, err
	}
	if skipped {
		plan.result.Skipped = true
		plan.done = true
		return plan, nil
	}

	plan.target = target
	plan.result.Destination = target
	plan.result.Renamed = renamed
	plan.replace = target == dest.Path && dest.Exists()
	plan.targetDir = plan.replace && dest.IsDir()

	if info, statErr := os.Lstat(source.Path); statErr == nil && !info.IsDir() {
		plan.sourceSize = info.Size()
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return plan, fserr.FromOS(op, filepath.Dir(target), err)
	}

	return plan, nil
}

// stageCopy copies the plan's source to a staging sibling of the target and then
// renames it into place. A replaced directory target is removed only after the
// copy has succeeded.
func (s *TransferService) stageCopy(plan transferPlan) (int64, error) {
	staging := stagingPath(plan.target)

	written, err := s.copyTree(plan.source.Path, staging, storage.CopyOptions{
		BufferSize: s.opts.BufferSize,
		Verify:     s.opts.Verify,
	})
	if err != nil {
		s.discard(staging)
		return 0, err
	}

	if plan.replace && (plan.source.IsDir() || plan.targetDir) {
		if err := s.removeAll(plan.target); err != nil {
			s.discard(staging)
			return 0, fserr.FromOS("copy", plan.target, err)
		}
	}

	if err := s.rename(staging, plan.target); err != nil {
		s.discard(staging)
		return 0, fserr.FromOS("copy", plan.target, err)
	}

	return written, nil
}

func (s *TransferService) discard(path string) {
	if err := s.removeAll(path); err != nil {
		slog.Warn("could not remove partial copy", "path", path, "error", err)
	}
}

func stagingPath(target string) string {
	return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".fileops-"+uuid.NewString()[:8]+".partial")
}
