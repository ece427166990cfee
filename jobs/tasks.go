package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLocalizationImport imports a batch of translations.
	TaskLocalizationImport = "localization:import"
)

// LocalizationImportPayload is the body of a TaskLocalizationImport task.
type LocalizationImportPayload struct {
	Language     string            `json:"language"`
	Translations map[string]string `json:"translations"`
	RequestedBy  string            `json:"requestedBy,omitempty"`
}

// NewLocalizationImportTask constructs an Asynq task.
func NewLocalizationImportTask(payload LocalizationImportPayload) (*asynq.Task, error) {
	if payload.Language == "" {
		return nil, errors.New("jobs: import language is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLocalizationImport, data, asynq.MaxRetry(3)), nil
}
