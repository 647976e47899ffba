package sink

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/pkg/shared/files"
)

// FileSink writes the run record as pretty-printed JSON into the results
// directory, one file per run.
type FileSink struct {
	dir    string
	logger hclog.Logger
}

func NewFileSink(logger hclog.Logger, dir string) *FileSink {
	return &FileSink{dir: dir, logger: logger}
}

func (s *FileSink) Deliver(record *RunRecord) error {
	if err := files.CreateFolderIfNotExists(s.dir); err != nil {
		return err
	}

	name := fmt.Sprintf("solguard-report-%s-%s.json", record.RunID, time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if err := files.WriteJSONFile(path, data); err != nil {
		return err
	}
	s.logger.Info("report written", "path", path, "findings", len(record.Findings))
	return nil
}
