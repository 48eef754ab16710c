package service

import (
	"context"
	"time"

	"go-fileops/internal/batch"
	"go-fileops/internal/event"
	"go-fileops/internal/model"
	"go-fileops/internal/storage"
	"go-fileops/internal/trashstore"
	"go-fileops/pkg/fserr"
)

const (
	OperationMove     = "move"
	OperationCopy     = "copy"
	OperationTrash    = "trash"
	OperationDelete   = "delete"
	OperationUndelete = "undelete"
	OperationPurge    = "purge"
	OperationEmpty    = "empty_trash"
)

// OperationsService runs single and batch mutations, journaling each item and
// announcing it on the event bus.
type OperationsService struct {
	resolver *storage.Resolver
	transfer *TransferService
	trash    *TrashService
	batch    *batch.Coordinator
	audit    *AuditService
	bus      event.Bus
}

func NewOperationsService(resolver *storage.Resolver, transfer *TransferService, trash *TrashService, coordinator *batch.Coordinator, audit *AuditService, bus event.Bus) *OperationsService {
	return &OperationsService{
		resolver: resolver,
		transfer: transfer,
		trash:    trash,
		batch:    coordinator,
		audit:    audit,
		bus:      bus,
	}
}

func (s *OperationsService) Move(ctx context.Context, req model.TransferRequest, actor model.AuditActor) (model.TransferResult, error) {
	_, result, err := s.moveOne(ctx, 0, req, actor)
	return result, err
}

func (s *OperationsService) Copy(ctx context.Context, req model.TransferRequest, actor model.AuditActor) (model.TransferResult, error) {
	_, result, err := s.copyOne(ctx, 0, req, actor)
	return result, err
}

func (s *OperationsService) Trash(ctx context.Context, path string, actor model.AuditActor) (model.TrashRecord, error) {
	record, err := s.trash.Trash(ctx, path, actor)
	s.finishTrash(0, path, record, err, actor)
	return record, err
}

func (s *OperationsService) Delete(ctx context.Context, path string, actor model.AuditActor) error {
	err := s.trash.Delete(ctx, path)
	s.finishDelete(0, path, err, actor)
	return err
}

func (s *OperationsService) Undelete(ctx context.Context, id string, actor model.AuditActor) (model.RestoreData, error) {
	restored, err := s.trash.Undelete(ctx, id)
	s.finishUndelete(0, id, restored, err, actor)
	return restored, err
}

func (s *OperationsService) UndeleteLatest(ctx context.Context, path string, actor model.AuditActor) (model.RestoreData, error) {
	restored, err := s.trash.UndeleteLatest(ctx, path)
	s.finishUndelete(0, path, restored, err, actor)
	return restored, err
}

func (s *OperationsService) UndeleteByTime(ctx context.Context, path string, trashedAt time.Time, actor model.AuditActor) (model.RestoreData, error) {
	restored, err := s.trash.UndeleteByTime(ctx, path, trashedAt)
	s.finishUndelete(0, path, restored, err, actor)
	return restored, err
}

func (s *OperationsService) ListTrash(ctx context.Context) ([]model.TrashRecord, error) {
	return s.trash.List(ctx)
}

// BrowseTrash lists what is physically in the store, including entries trashed
// by other programs.
func (s *OperationsService) BrowseTrash(ctx context.Context) (string, []trashstore.Entry, error) {
	entries, err := s.trash.Browse(ctx)
	return s.trash.StoreName(), entries, err
}

func (s *OperationsService) PurgeTrash(ctx context.Context, id string, actor model.AuditActor) (model.TrashRecord, error) {
	record, err := s.trash.Purge(ctx, id)
	entry := model.AuditEntry{Action: OperationPurge, Actor: actor, Status: AuditSuccess, Path: record.OriginalPath, RecordID: id}
	if err != nil {
		entry.Status, entry.Kind, entry.Error = AuditFailed, string(fserr.KindOf(err)), err.Error()
	}
	s.audit.Log(entry)
	return record, err
}

func (s *OperationsService) EmptyTrash(ctx context.Context, actor model.AuditActor) ([]model.TrashRecord, error) {
	removed, err := s.trash.Empty(ctx)
	entry := model.AuditEntry{Action: OperationEmpty, Actor: actor, Status: AuditSuccess}
	if err != nil {
		entry.Status, entry.Kind, entry.Error = AuditFailed, string(fserr.KindOf(err)), err.Error()
	}
	s.audit.Log(entry)
	s.publish(event.TypeTrashEmptied, "", map[string]int{"removed": len(removed)})
	return removed, err
}

// MvAll moves every item independently. observe may be nil.
func (s *OperationsService) MvAll(ctx context.Context, items []model.TransferItem, policy model.ConflictPolicy, actor model.AuditActor, observe batch.Observer) (model.BatchResult, error) {
	return s.batch.Run(ctx, s.transferItems(items), func(itemCtx context.Context, idx int) (model.Outcome, error) {
		req := model.NewTransferRequest(items[idx].Source, items[idx].Destination, policy)
		outcome, _, _ := s.moveOne(itemCtx, idx, req, actor)
		return outcome, nil
	}, observe)
}

func (s *OperationsService) CopyAll(ctx context.Context, items []model.TransferItem, policy model.ConflictPolicy, actor model.AuditActor, observe batch.Observer) (model.BatchResult, error) {
	return s.batch.Run(ctx, s.transferItems(items), func(itemCtx context.Context, idx int) (model.Outcome, error) {
		req := model.NewTransferRequest(items[idx].Source, items[idx].Destination, policy)
		outcome, _, _ := s.copyOne(itemCtx, idx, req, actor)
		return outcome, nil
	}, observe)
}

// TrashAll trashes every path independently. A failure to record a trashed entry
// aborts the batch.
func (s *OperationsService) TrashAll(ctx context.Context, paths []string, actor model.AuditActor, observe batch.Observer) (model.BatchResult, error) {
	return s.batch.Run(ctx, s.pathItems(paths), func(itemCtx context.Context, idx int) (model.Outcome, error) {
		record, err := s.trash.Trash(itemCtx, paths[idx], actor)
		outcome := s.finishTrash(idx, paths[idx], record, err, actor)
		if isIndexFault(err) {
			return outcome, err
		}
		return outcome, nil
	}, observe)
}

func (s *OperationsService) DeleteAll(ctx context.Context, paths []string, actor model.AuditActor, observe batch.Observer) (model.BatchResult, error) {
	return s.batch.Run(ctx, s.pathItems(paths), func(itemCtx context.Context, idx int) (model.Outcome, error) {
		err := s.trash.Delete(itemCtx, paths[idx])
		return s.finishDelete(idx, paths[idx], err, actor), nil
	}, observe)
}

func (s *OperationsService) UndeleteAll(ctx context.Context, ids []string, actor model.AuditActor, observe batch.Observer) (model.BatchResult, error) {
	items := make([]batch.Item, len(ids))
	for i, id := range ids {
		items[i] = batch.Item{Path: id, Keys: []string{"trash-record:" + id}}
		if record, err := s.trash.Index().Get(ctx, id); err == nil {
			items[i].Keys = append(items[i].Keys, record.OriginalPath)
		}
	}

	return s.batch.Run(ctx, items, func(itemCtx context.Context, idx int) (model.Outcome, error) {
		restored, err := s.trash.Undelete(itemCtx, ids[idx])
		return s.finishUndelete(idx, ids[idx], restored, err, actor), nil
	}, observe)
}

func (s *OperationsService) moveOne(ctx context.Context, idx int, req model.TransferRequest, actor model.AuditActor) (model.Outcome, model.TransferResult, error) {
	result, err := s.transfer.Move(ctx, req)
	outcome := transferOutcome(idx, req, result, err)
	s.audit.LogOutcome(OperationMove, actor, outcome)
	if err == nil && !result.Skipped {
		s.publish(event.TypeEntryMoved, "", event.EntryChange{Path: result.Source, Destination: result.Destination})
	}
	return outcome, result, err
}

func (s *OperationsService) copyOne(ctx context.Context, idx int, req model.TransferRequest, actor model.AuditActor) (model.Outcome, model.TransferResult, error) {
	result, err := s.transfer.Copy(ctx, req)
	outcome := transferOutcome(idx, req, result, err)
	s.audit.LogOutcome(OperationCopy, actor, outcome)
	if err == nil && !result.Skipped {
		s.publish(event.TypeEntryCopied, "", event.EntryChange{Path: result.Source, Destination: result.Destination})
	}
	return outcome, result, err
}

func (s *OperationsService) finishTrash(idx int, path string, record model.TrashRecord, err error, actor model.AuditActor) model.Outcome {
	var outcome model.Outcome
	if err != nil {
		outcome = model.Failed(idx, path, err)
		outcome.RecordID = record.ID
	} else {
		outcome = model.Succeeded(idx, record.OriginalPath)
		outcome.RecordID = record.ID
		outcome.Bytes = record.Metadata.Size
		s.publish(event.TypeEntryTrashed, "", event.EntryChange{Path: record.OriginalPath, RecordID: record.ID})
	}
	s.audit.LogOutcome(OperationTrash, actor, outcome)
	return outcome
}

func (s *OperationsService) finishDelete(idx int, path string, err error, actor model.AuditActor) model.Outcome {
	var outcome model.Outcome
	if err != nil {
		outcome = model.Failed(idx, path, err)
	} else {
		outcome = model.Succeeded(idx, s.cleanKey(path))
		s.publish(event.TypeEntryDeleted, "", event.EntryChange{Path: outcome.Path})
	}
	s.audit.LogOutcome(OperationDelete, actor, outcome)
	return outcome
}

func (s *OperationsService) finishUndelete(idx int, key string, restored model.RestoreData, err error, actor model.AuditActor) model.Outcome {
	var outcome model.Outcome
	if err != nil {
		outcome = model.Failed(idx, key, err)
		outcome.Destination = restored.Restored.Path
	} else {
		outcome = model.Succeeded(idx, restored.Restored.Path)
		outcome.RecordID = restored.ID
		outcome.Destination = restored.Restored.Path
		s.publish(event.TypeEntryRestored, "", event.EntryChange{Path: restored.Restored.Path, RecordID: restored.ID})
	}
	s.audit.LogOutcome(OperationUndelete, actor, outcome)
	return outcome
}

func transferOutcome(idx int, req model.TransferRequest, result model.TransferResult, err error) model.Outcome {
	path := result.Source
	if path == "" {
		path = req.Source.Path
	}

	if err != nil {
		outcome := model.Failed(idx, path, err)
		if fserr.Is(err, fserr.PartialMove) {
			outcome.Destination = result.Destination
			outcome.Bytes = result.Bytes
		}
		return outcome
	}

	outcome := model.Succeeded(idx, path)
	outcome.Skipped = result.Skipped
	if !result.Skipped {
		outcome.Destination = result.Destination
		outcome.Bytes = result.Bytes
	}
	return outcome
}

// transferItems keys each item by its source and destination, so an item that
// reads a path another item writes runs after it.
func (s *OperationsService) transferItems(items []model.TransferItem) []batch.Item {
	out := make([]batch.Item, len(items))
	for i, item := range items {
		out[i] = batch.Item{
			Path: item.Source,
			Keys: []string{s.cleanKey(item.Destination), s.cleanKey(item.Source)},
		}
	}
	return out
}

func (s *OperationsService) pathItems(paths []string) []batch.Item {
	out := make([]batch.Item, len(paths))
	for i, path := range paths {
		out[i] = batch.Item{Path: path, Keys: []string{s.cleanKey(path)}}
	}
	return out
}

func (s *OperationsService) cleanKey(raw string) string {
	if cleaned, err := s.resolver.Clean(raw); err == nil {
		return cleaned
	}
	return raw
}

func (s *OperationsService) publish(eventType event.Type, jobID string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(eventType, jobID, payload))
}
