package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go-fileops/internal/batch"
	"go-fileops/internal/event"
	"go-fileops/internal/repository"
	"go-fileops/internal/storage"
	"go-fileops/internal/trashstore"
	"go-fileops/internal/util"
)

type testEnv struct {
	root       string
	resolver   *storage.Resolver
	scanner    *storage.Scanner
	store      *trashstore.DirStore
	index      *UndeleteIndex
	transfer   *TransferService
	trash      *TrashService
	entries    *EntryService
	audit      *AuditService
	bus        *event.InMemoryBus
	operations *OperationsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(root, 0o755))

	resolver, err := storage.NewResolver(root, []string{root, filepath.Join(base, "trash")})
	require.NoError(t, err)

	store, err := trashstore.NewDirStore(filepath.Join(base, "trash"))
	require.NoError(t, err)

	audit, err := NewAuditService(filepath.Join(base, "audit", "audit.jsonl"))
	require.NoError(t, err)

	env := &testEnv{
		root:     root,
		resolver: resolver,
		scanner:  storage.NewScanner(),
		store:    store,
		audit:    audit,
		bus:      event.NewBus(),
	}
	env.index = NewUndeleteIndex(repository.NewMemoryTrashRepository(), store)
	env.transfer = NewTransferService(resolver, TransferOptions{})
	env.trash = NewTrashService(resolver, env.scanner, store, env.index)
	env.entries = NewEntryService(resolver, env.scanner, util.NewMimeSniffer(0))
	env.operations = NewOperationsService(resolver, env.transfer, env.trash, batch.New(4), audit, env.bus)
	return env
}

func (e *testEnv) path(parts ...string) string {
	return filepath.Join(append([]string{e.root}, parts...)...)
}

func (e *testEnv) write(t *testing.T, rel string, content string) string {
	t.Helper()
	path := e.path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}
