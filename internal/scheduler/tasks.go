package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	TaskRebuildLeadCorpus = "knowledge.rebuild_leads"
)

// RebuildLeadCorpusPayload points the worker at an uploaded corpus object.
type RebuildLeadCorpusPayload struct {
	JobID           string   `json:"jobId"`
	ObjectKey       string   `json:"objectKey"`
	FileName        string   `json:"fileName"`
	MetadataColumns []string `json:"metadataColumns,omitempty"`
	RequestedBy     string   `json:"requestedBy,omitempty"`
}

func NewRebuildLeadCorpusTask(payload RebuildLeadCorpusPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.ObjectKey) == "" {
		return nil, fmt.Errorf("object key is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRebuildLeadCorpus, data), nil
}

func ParseRebuildLeadCorpusPayload(task *asynq.Task) (RebuildLeadCorpusPayload, error) {
	var payload RebuildLeadCorpusPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RebuildLeadCorpusPayload{}, fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.ObjectKey == "" {
		return RebuildLeadCorpusPayload{}, fmt.Errorf("%w: object key missing", asynq.SkipRetry)
	}
	return payload, nil
}
