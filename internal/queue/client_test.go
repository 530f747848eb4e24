package queue

import (
	"encoding/json"
	"testing"
)

func TestDisabledClientEnqueueNoop(t *testing.T) {
	client, err := NewClient(nil)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client without config should be disabled")
	}
	if err := client.EnqueueClearingRun(ClearingRunPayload{RequestedBy: "scheduler"}); err != nil {
		t.Fatalf("disabled enqueue clearing run should be a no-op: %v", err)
	}
	if err := client.EnqueuePayoutNotification(PayoutNotificationPayload{PayoutID: 1, Event: "sent"}); err != nil {
		t.Fatalf("disabled enqueue notification should be a no-op: %v", err)
	}
}

func TestNewClearingRunTask(t *testing.T) {
	task, err := NewClearingRunTask(ClearingRunPayload{RequestedBy: "scheduler"})
	if err != nil {
		t.Fatalf("new clearing run task failed: %v", err)
	}
	if task.Type() != TaskClearingRun {
		t.Fatalf("task type want %s got %s", TaskClearingRun, task.Type())
	}
	var payload ClearingRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unmarshal payload failed: %v", err)
	}
	if payload.RequestedBy != "scheduler" {
		t.Fatalf("requested_by want scheduler got %s", payload.RequestedBy)
	}
}
