package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"contactdesk/pkg/domain"
)

func TestNewSubmissionUsesUTC(t *testing.T) {
	at := time.Date(2024, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	sub := NewSubmission(ana, Reply{Body: "b", Source: domain.ReplyFromModel}, "owner@example.com", at)
	if sub.Message.SubmittedAt.Location() != time.UTC || sub.Message.SubmittedAt.Hour() != 12 {
		t.Fatalf("expected UTC timestamp, got %s", sub.Message.SubmittedAt)
	}
	if len(sub.ID) != 32 {
		t.Fatalf("unexpected id %q", sub.ID)
	}
}

func TestQueueDispatcherEnqueuesThreeJobs(t *testing.T) {
	q := &fakeEnqueuer{}
	sub := NewSubmission(ana, Reply{Body: "body", Source: domain.ReplyFromModel}, "owner@example.com", time.Now())
	if err := (QueueDispatcher{Queue: q}).Dispatch(context.Background(), sub); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	want := []string{"contact_message", "admin_notification", "auto_reply"}
	if strings.Join(q.kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected kinds %v", q.kinds)
	}
	var reply domain.AutoReply
	if err := json.Unmarshal([]byte(q.payloads[2]), &reply); err != nil {
		t.Fatalf("decode auto reply: %v", err)
	}
	if reply.Subject != ReplySubject || reply.Body != "body" {
		t.Fatalf("unexpected auto reply %+v", reply)
	}
}

func TestQueueDispatcherPropagatesEnqueueError(t *testing.T) {
	q := &fakeEnqueuer{failOn: "admin_notification"}
	err := (QueueDispatcher{Queue: q}).Dispatch(context.Background(), Submission{})
	if err == nil || !strings.Contains(err.Error(), "admin_notification") {
		t.Fatalf("expected enqueue error, got %v", err)
	}
	if err := (QueueDispatcher{}).Dispatch(context.Background(), Submission{}); err == nil {
		t.Fatalf("expected error without queue")
	}
}

func TestQueueDispatcherFailedRetryLeavesNoDuplicates(t *testing.T) {
	q := &fakeEnqueuer{failOn: "auto_reply"}
	sub := NewSubmission(ana, Reply{Body: "body", Source: domain.ReplyFromModel}, "owner@example.com", time.Now())
	d := QueueDispatcher{Queue: q}
	for i := 0; i < 2; i++ {
		if err := d.Dispatch(context.Background(), sub); err == nil {
			t.Fatalf("attempt %d: expected auto_reply failure", i+1)
		}
	}
	if len(q.kinds) != 0 {
		t.Fatalf("expected nothing queued after failed attempts, got %v", q.kinds)
	}

	q.failOn = ""
	if err := d.Dispatch(context.Background(), sub); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(q.kinds) != 3 {
		t.Fatalf("expected exactly one set of jobs, got %v", q.kinds)
	}
}

func TestLogDispatcherNeverFails(t *testing.T) {
	if err := (LogDispatcher{}).Dispatch(context.Background(), NewSubmission(ana, Reply{}, "", time.Now())); err != nil {
		t.Fatalf("log dispatcher: %v", err)
	}
}
