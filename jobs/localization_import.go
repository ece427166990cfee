package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/kliq/backoffice/internal/localization"
	"github.com/kliq/backoffice/internal/observability"
	"github.com/kliq/backoffice/internal/shared"
)

// Importer applies translation imports.
type Importer interface {
	Import(ctx context.Context, lang string, translations map[string]string) (localization.ImportResult, error)
}

// LocalizationImportJob processes TaskLocalizationImport tasks.
type LocalizationImportJob struct {
	Importer Importer
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewLocalizationImportJob wires dependencies for the import handler.
func NewLocalizationImportJob(importer Importer, logger *slog.Logger, metrics *observability.Metrics) *LocalizationImportJob {
	return &LocalizationImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle decodes the payload and runs the import. Malformed payloads and
// invalid languages are not retried.
func (j *LocalizationImportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Importer == nil {
		return errors.New("localization import: handler not configured")
	}
	defer func() { j.Metrics.ObserveJob(TaskLocalizationImport, err) }()

	var payload LocalizationImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("localization import: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := j.logger().With(slog.String("language", payload.Language), slog.String("requested_by", payload.RequestedBy))

	result, err := j.Importer.Import(ctx, payload.Language, payload.Translations)
	if err != nil {
		logger.Error("localization import failed", slog.Any("error", err))
		if errors.Is(err, shared.ErrValidation) {
			return fmt.Errorf("localization import: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logger.Info("localization import processed", slog.Int("created", result.Created), slog.Int("updated", result.Updated))
	return nil
}

func (j *LocalizationImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
