// Package jobupdate records the firmware version of a completed deployment
// job on the device it ran on: the reported state of the device's firmware
// shadow and the firmwareVersion attribute of its thing.
package jobupdate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrInvalidEvent is returned for job execution events missing required fields.
var ErrInvalidEvent = errors.New("invalid job execution event")

// JobExecutionEvent is the message IoT Core publishes on
// $aws/events/jobExecution/<jobId>/<status>.
type JobExecutionEvent struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Timestamp int64  `json:"timestamp"`
	Operation string `json:"operation"`
	JobID     string `json:"jobId"`
	ThingArn  string `json:"thingArn"`
	Status    string `json:"status"`
}

// ParseEvent decodes and validates a job execution event.
func ParseEvent(payload []byte) (JobExecutionEvent, error) {
	var event JobExecutionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return event, event.Validate()
}

// Validate checks that every field is present and the timestamp is positive.
func (e JobExecutionEvent) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"eventType": e.EventType,
		"eventId":   e.EventID,
		"operation": e.Operation,
		"jobId":     e.JobID,
		"thingArn":  e.ThingArn,
		"status":    e.Status,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidEvent, strings.Join(missing, ", "))
	}
	if e.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp must be positive, got %d", ErrInvalidEvent, e.Timestamp)
	}
	return nil
}

// ThingName is the last path segment of the thing ARN.
func (e JobExecutionEvent) ThingName() string {
	return e.ThingArn[strings.LastIndex(e.ThingArn, "/")+1:]
}

// JobDocument is the document of a firmware deployment job.
type JobDocument struct {
	Operation string `json:"operation"`
	Version   any    `json:"version"`
}

// NewJobDocument returns the document deploying a firmware version.
func NewJobDocument(operation, version string) JobDocument {
	return JobDocument{Operation: operation, Version: version}
}

// HasVersion reports whether the document names a version to record.
func (d JobDocument) HasVersion() bool {
	switch v := d.Version.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	}
	return true
}
