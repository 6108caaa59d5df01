package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilePublisher appends events to a file. Used in dev when LOG_EVENTS is
// set, so the realtime transport can be inspected without Redis.
type FilePublisher struct {
	filePath string
}

// NewFilePublisher creates a FilePublisher, ensuring the directory for
// the log file exists.
func NewFilePublisher(filePath string) (Publisher, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("event log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for event log file: %w", err)
	}
	return &FilePublisher{filePath: filePath}, nil
}

func (p *FilePublisher) PublishMessageCreated(ctx context.Context, evt MessageCreated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal message event: %w", err)
	}

	file, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log file: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("%s message_created %s\n", time.Now().Format(time.RFC3339Nano), payload)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write event to log file: %w", err)
	}
	return nil
}
