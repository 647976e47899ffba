package checkpoint

import (
	"database/sql"
	goerrors "errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    payload TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_run_id ON checkpoints(run_id);
`

// SQLiteStore is the durable checkpoint store backing resumable runs.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put appends a checkpoint. The sequence number must be strictly greater than
// the run's latest persisted one.
func (s *SQLiteStore) Put(cp Checkpoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewCheckpointWriteError(cp.RunID, cp.Seq, err)
	}
	defer tx.Rollback()

	var latest sql.NullInt64
	row := tx.QueryRow(`SELECT MAX(seq) FROM checkpoints WHERE run_id = ?`, cp.RunID)
	if err := row.Scan(&latest); err != nil {
		return errors.NewCheckpointWriteError(cp.RunID, cp.Seq, err)
	}
	if latest.Valid && cp.Seq <= int(latest.Int64) {
		return errors.NewCheckpointWriteError(cp.RunID, cp.Seq,
			fmt.Errorf("sequence must advance past %d", latest.Int64))
	}

	createdAt := cp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO checkpoints (run_id, seq, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, cp.RunID, cp.Seq, string(cp.Payload), createdAt)
	if err != nil {
		return errors.NewCheckpointWriteError(cp.RunID, cp.Seq, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewCheckpointWriteError(cp.RunID, cp.Seq, err)
	}
	return nil
}

// GetLatest returns the run's highest-sequence checkpoint.
func (s *SQLiteStore) GetLatest(runID string) (Checkpoint, error) {
	row := s.db.QueryRow(`
		SELECT run_id, seq, payload, created_at
		FROM checkpoints WHERE run_id = ?
		ORDER BY seq DESC LIMIT 1
	`, runID)

	var cp Checkpoint
	var payload string
	err := row.Scan(&cp.RunID, &cp.Seq, &payload, &cp.CreatedAt)
	if goerrors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, errors.NewCheckpointNotFoundError(runID)
	}
	if err != nil {
		return Checkpoint{}, err
	}

	cp.Payload = []byte(payload)
	return cp, nil
}
