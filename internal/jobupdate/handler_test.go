package jobupdate

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIoT struct {
	documents map[string]string
	getErr    error
	updateErr error
	updates   []*iot.UpdateThingInput
}

func (f *fakeIoT) GetJobDocument(_ context.Context, params *iot.GetJobDocumentInput, _ ...func(*iot.Options)) (*iot.GetJobDocumentOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.documents[aws.ToString(params.JobId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &iot.GetJobDocumentOutput{Document: aws.String(doc)}, nil
}

func (f *fakeIoT) UpdateThing(_ context.Context, params *iot.UpdateThingInput, _ ...func(*iot.Options)) (*iot.UpdateThingOutput, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, params)
	return &iot.UpdateThingOutput{}, nil
}

type fakeData struct {
	err     error
	updates []*iotdataplane.UpdateThingShadowInput
}

func (f *fakeData) UpdateThingShadow(_ context.Context, params *iotdataplane.UpdateThingShadowInput, _ ...func(*iotdataplane.Options)) (*iotdataplane.UpdateThingShadowOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, params)
	return &iotdataplane.UpdateThingShadowOutput{Payload: params.Payload}, nil
}

func testEvent() JobExecutionEvent {
	return JobExecutionEvent{
		EventType: "JOB_EXECUTION",
		EventID:   "1c1b6a2e-1e1d-4b4e-9a39-3b0b0f0f0f0f",
		Timestamp: 1700000000,
		Operation: "succeeded",
		JobID:     "job-1",
		ThingArn:  "arn:aws:iot:us-east-1:123456789012:thing/device-thing-1-agent",
		Status:    "SUCCEEDED",
	}
}

func newTestHandler(docs map[string]string) (*Handler, *fakeIoT, *fakeData) {
	iotClient := &fakeIoT{documents: docs}
	data := &fakeData{}
	return &Handler{IoT: iotClient, Data: data}, iotClient, data
}

func TestHandle_RecordsVersion(t *testing.T) {
	h, iotClient, data := newTestHandler(map[string]string{
		"job-1": `{"operation":"Deploy-ROS-Firmware","version":"1.2.3"}`,
	})

	result, err := h.Handle(context.Background(), testEvent())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "device-thing-1-agent", result.ThingName)
	assert.Equal(t, "1.2.3", result.Version)

	require.Len(t, data.updates, 1)
	shadow := data.updates[0]
	assert.Equal(t, "device-thing-1-agent", aws.ToString(shadow.ThingName))
	assert.Equal(t, "firmware", aws.ToString(shadow.ShadowName))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(shadow.Payload, &payload))
	assert.Equal(t, map[string]any{
		"state": map[string]any{"reported": map[string]any{"firmwareVersion": "1.2.3"}},
	}, payload)

	require.Len(t, iotClient.updates, 1)
	update := iotClient.updates[0]
	assert.Equal(t, "device-thing-1-agent", aws.ToString(update.ThingName))
	assert.Equal(t, map[string]string{"firmwareVersion": "1.2.3"}, update.AttributePayload.Attributes)
}

func TestHandle_CustomShadowAndOperation(t *testing.T) {
	h, _, data := newTestHandler(map[string]string{
		"job-1": `{"operation":"Flash","version":7}`,
	})
	h.ShadowName = "fw"
	h.Operation = "Flash"

	result, err := h.Handle(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, float64(7), result.Version)
	require.Len(t, data.updates, 1)
	assert.Equal(t, "fw", aws.ToString(data.updates[0].ShadowName))
}

func TestHandle_NumericVersionAttribute(t *testing.T) {
	h, iotClient, _ := newTestHandler(map[string]string{
		"job-1": `{"operation":"Deploy-ROS-Firmware","version":2}`,
	})

	_, err := h.Handle(context.Background(), testEvent())
	require.NoError(t, err)
	require.Len(t, iotClient.updates, 1)
	assert.Equal(t, "2", iotClient.updates[0].AttributePayload.Attributes["firmwareVersion"])
}

func TestHandle_UnknownOperationSkipped(t *testing.T) {
	h, iotClient, data := newTestHandler(map[string]string{
		"job-1": `{"operation":"Reboot"}`,
	})

	result, err := h.Handle(context.Background(), testEvent())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, data.updates)
	assert.Empty(t, iotClient.updates)
}

func TestHandle_MissingVersionSkipped(t *testing.T) {
	h, iotClient, data := newTestHandler(map[string]string{
		"job-1": `{"operation":"Deploy-ROS-Firmware"}`,
	})

	result, err := h.Handle(context.Background(), testEvent())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, data.updates)
	assert.Empty(t, iotClient.updates)
}

func TestHandle_Errors(t *testing.T) {
	t.Run("invalid event", func(t *testing.T) {
		h, _, _ := newTestHandler(nil)
		event := testEvent()
		event.JobID = ""
		_, err := h.Handle(context.Background(), event)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("job document lookup", func(t *testing.T) {
		h, iotClient, _ := newTestHandler(nil)
		iotClient.getErr = errors.New("throttled")
		_, err := h.Handle(context.Background(), testEvent())
		assert.ErrorContains(t, err, "throttled")
	})

	t.Run("malformed job document", func(t *testing.T) {
		h, _, _ := newTestHandler(map[string]string{"job-1": "not json"})
		_, err := h.Handle(context.Background(), testEvent())
		assert.ErrorContains(t, err, "decoding job document job-1")
	})

	t.Run("shadow update", func(t *testing.T) {
		h, iotClient, data := newTestHandler(map[string]string{
			"job-1": `{"operation":"Deploy-ROS-Firmware","version":"1.0"}`,
		})
		data.err = errors.New("access denied")
		_, err := h.Handle(context.Background(), testEvent())
		assert.ErrorContains(t, err, "updating shadow firmware of device-thing-1-agent")
		assert.Empty(t, iotClient.updates)
	})

	t.Run("thing update", func(t *testing.T) {
		h, iotClient, _ := newTestHandler(map[string]string{
			"job-1": `{"operation":"Deploy-ROS-Firmware","version":"1.0"}`,
		})
		iotClient.updateErr = errors.New("access denied")
		err := h.Invoke(context.Background(), testEvent())
		assert.ErrorContains(t, err, "updating thing device-thing-1-agent")
	})
}
