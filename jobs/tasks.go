package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRecognitionRun is the task type for scheduled recognition runs.
	TaskTypeRecognitionRun = "revenue:recognition_run"
	// TaskTypeLedgerIntegrity is the task type for the ledger balance sweep.
	TaskTypeLedgerIntegrity = "ledger:integrity_check"
)

// RecognitionRunPayload parameterises one recognition sweep. OrgID zero
// means every organisation with active contracts; AsOf empty means today.
type RecognitionRunPayload struct {
	OrgID  int64  `json:"org_id,omitempty"`
	AsOf   string `json:"as_of,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// NewRecognitionRunTask constructs an Asynq task.
func NewRecognitionRunTask(payload RecognitionRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecognitionRun, data), nil
}

// NewLedgerIntegrityTask constructs the parameterless integrity sweep task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLedgerIntegrity, nil)
}
