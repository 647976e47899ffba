package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestPutAndGetLatest(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for seq := 1; seq <= 3; seq++ {
				err := store.Put(Checkpoint{RunID: "run-1", Seq: seq, Payload: []byte(`{"stage":"static_analysis"}`)})
				require.NoError(t, err)
			}

			cp, err := store.GetLatest("run-1")
			require.NoError(t, err)
			assert.Equal(t, 3, cp.Seq, "latest seq mismatch")
			assert.JSONEq(t, `{"stage":"static_analysis"}`, string(cp.Payload))
		})
	}
}

func TestPutRejectsNonMonotonicSeq(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(Checkpoint{RunID: "run-1", Seq: 5, Payload: []byte(`{}`)}))

			err := store.Put(Checkpoint{RunID: "run-1", Seq: 5, Payload: []byte(`{}`)})
			require.Error(t, err, "a repeated sequence number must be rejected")
			var writeErr *errors.CheckpointWriteError
			assert.ErrorAs(t, err, &writeErr)

			err = store.Put(Checkpoint{RunID: "run-1", Seq: 3, Payload: []byte(`{}`)})
			assert.Error(t, err, "a regressing sequence number must be rejected")

			// other runs keep their own sequence space
			assert.NoError(t, store.Put(Checkpoint{RunID: "run-2", Seq: 1, Payload: []byte(`{}`)}))
		})
	}
}

func TestGetLatestUnknownRun(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetLatest("no-such-run")
			require.Error(t, err)
			var notFound *errors.CheckpointNotFoundError
			assert.ErrorAs(t, err, &notFound)
		})
	}
}
