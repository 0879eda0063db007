package jobupdate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/lex00/wetwire-fleet-go/internal/logging"
)

// ErrUnknownOperation is returned when a job document is not a firmware deployment.
var ErrUnknownOperation = errors.New("operation not recognized")

// VersionAttribute is the thing attribute and shadow field holding the firmware version.
const VersionAttribute = "firmwareVersion"

// IoTClient is the subset of the IoT control plane API used by the handler.
type IoTClient interface {
	GetJobDocument(ctx context.Context, params *iot.GetJobDocumentInput, optFns ...func(*iot.Options)) (*iot.GetJobDocumentOutput, error)
	UpdateThing(ctx context.Context, params *iot.UpdateThingInput, optFns ...func(*iot.Options)) (*iot.UpdateThingOutput, error)
}

// IoTDataClient is the subset of the IoT data plane API used by the handler.
type IoTDataClient interface {
	UpdateThingShadow(ctx context.Context, params *iotdataplane.UpdateThingShadowInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.UpdateThingShadowOutput, error)
}

// Compile-time interface checks
var (
	_ IoTClient     = (*iot.Client)(nil)
	_ IoTDataClient = (*iotdataplane.Client)(nil)
)

// Handler processes job execution events.
type Handler struct {
	IoT  IoTClient
	Data IoTDataClient
	// ShadowName is the named shadow receiving the reported version.
	ShadowName string
	// Operation is the job document operation that marks a firmware deployment.
	Operation string
	Log       log.FieldLogger
}

// Result describes what the handler did with one event.
type Result struct {
	JobID     string
	ThingName string
	Version   any
	// Skipped is set when the job was not a firmware deployment or named no version.
	Skipped bool
}

// Invoke is the Lambda entry point.
func (h *Handler) Invoke(ctx context.Context, event JobExecutionEvent) error {
	_, err := h.Handle(ctx, event)
	return err
}

// Handle records the firmware version of the event's job on its thing.
func (h *Handler) Handle(ctx context.Context, event JobExecutionEvent) (*Result, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	logger := h.logger().WithFields(log.Fields{
		"job_id":    event.JobID,
		"thing_arn": event.ThingArn,
		"status":    event.Status,
		"event_id":  event.EventID,
	})
	logger.Info("job execution event received")

	result := &Result{JobID: event.JobID, ThingName: event.ThingName()}

	doc, err := h.jobDocument(ctx, event.JobID)
	if errors.Is(err, ErrUnknownOperation) {
		logger.WithError(err).Info("ignoring job")
		result.Skipped = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if !doc.HasVersion() {
		logger.Info("job document names no firmware version")
		result.Skipped = true
		return result, nil
	}
	result.Version = doc.Version

	logger = logger.WithFields(log.Fields{
		"thing_name":       result.ThingName,
		"firmware_version": doc.Version,
	})

	if err := h.updateShadow(ctx, result.ThingName, doc.Version); err != nil {
		return nil, err
	}
	logger.WithField("shadow", h.shadowName()).Info("updated shadow")

	if err := h.updateAttribute(ctx, result.ThingName, doc.Version); err != nil {
		return nil, err
	}
	logger.Info("updated thing attribute")

	return result, nil
}

func (h *Handler) jobDocument(ctx context.Context, jobID string) (JobDocument, error) {
	out, err := h.IoT.GetJobDocument(ctx, &iot.GetJobDocumentInput{JobId: aws.String(jobID)})
	if err != nil {
		return JobDocument{}, fmt.Errorf("getting job document %s: %w", jobID, err)
	}

	var doc JobDocument
	if err := json.Unmarshal([]byte(aws.ToString(out.Document)), &doc); err != nil {
		return JobDocument{}, fmt.Errorf("decoding job document %s: %w", jobID, err)
	}
	if doc.Operation != h.operation() {
		return doc, fmt.Errorf("%w: %q", ErrUnknownOperation, doc.Operation)
	}
	return doc, nil
}

type shadowDocument struct {
	State shadowState `json:"state"`
}

type shadowState struct {
	Reported map[string]any `json:"reported"`
}

func (h *Handler) updateShadow(ctx context.Context, thingName string, version any) error {
	payload, err := json.Marshal(shadowDocument{
		State: shadowState{Reported: map[string]any{VersionAttribute: version}},
	})
	if err != nil {
		return fmt.Errorf("encoding shadow update: %w", err)
	}

	_, err = h.Data.UpdateThingShadow(ctx, &iotdataplane.UpdateThingShadowInput{
		ThingName:  aws.String(thingName),
		ShadowName: aws.String(h.shadowName()),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("updating shadow %s of %s: %w", h.shadowName(), thingName, err)
	}
	return nil
}

func (h *Handler) updateAttribute(ctx context.Context, thingName string, version any) error {
	_, err := h.IoT.UpdateThing(ctx, &iot.UpdateThingInput{
		ThingName: aws.String(thingName),
		AttributePayload: &types.AttributePayload{
			Attributes: map[string]string{VersionAttribute: fmt.Sprint(version)},
		},
	})
	if err != nil {
		return fmt.Errorf("updating thing %s: %w", thingName, err)
	}
	return nil
}

func (h *Handler) shadowName() string {
	if h.ShadowName == "" {
		return "firmware"
	}
	return h.ShadowName
}

func (h *Handler) operation() string {
	if h.Operation == "" {
		return "Deploy-ROS-Firmware"
	}
	return h.Operation
}

func (h *Handler) logger() log.FieldLogger {
	if h.Log == nil {
		return logging.Discard()
	}
	return h.Log
}
