package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/docshistory/histories-backend/internal/constants"
	"github.com/docshistory/histories-backend/internal/logging"
	"github.com/sethvargo/go-envconfig"
)

//Reserved field policies.
const (
	//PolicyOverwrite Replace document's own reserved field with the diff.
	PolicyOverwrite = "overwrite"
	//PolicyReject Fail the change when the document uses the reserved field.
	PolicyReject = "reject"
)

//HistoryConfig Configuration of history tracking.
type HistoryConfig struct {
	ProjectID         string `env:"PROJECT_ID, required" validate:"required"`
	HistoryCollection string `env:"HISTORY_COLLECTION,default=histories" validate:"required,excludesall=/"`
	HistoryTopic      string `env:"HISTORY_TOPIC"`
	// Deletions report the commit time of the deletion as the previous update time, the correction
	// keeps a deletion ordered after the last update. Zero disables it.
	DeleteTimestampCorrection time.Duration `env:"DELETE_TIMESTAMP_CORRECTION,default=1ms" validate:"min=0"`
	ReservedFieldPolicy       string        `env:"RESERVED_FIELD_POLICY,default=overwrite" validate:"oneof=overwrite reject"`
	WriteRetryAttempts        uint          `env:"WRITE_RETRY_ATTEMPTS,default=3" validate:"min=1,max=10"`
}

//LoadHistoryConfig Load history config from environment.
func LoadHistoryConfig(ctx context.Context) (*HistoryConfig, error) {
	return LoadHistoryConfigWith(ctx, envconfig.OsLookuper())
}

//LoadHistoryConfigWith Load history config using given lookuper.
func LoadHistoryConfigWith(ctx context.Context, lookuper envconfig.Lookuper) (*HistoryConfig, error) {
	logger := logging.FromContext(ctx)

	var historyConfig HistoryConfig
	if err := envconfig.ProcessWith(ctx, &historyConfig, lookuper); err != nil {
		logger.Debugf("Could not load HistoryConfig: %v", err)
		return nil, err
	}

	if err := Validate.Struct(historyConfig); err != nil {
		logger.Debugf("Invalid HistoryConfig: %v", err)
		return nil, fmt.Errorf("invalid history config: %v", err)
	}

	return &historyConfig, nil
}

//Noop Reports whether all Google Cloud clients should be mocked.
func (c *HistoryConfig) Noop() bool {
	return c.ProjectID == constants.NoopProjectID
}
