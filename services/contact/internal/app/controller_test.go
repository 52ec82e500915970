package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"contactdesk/pkg/domain"
)

func newTestController(gen *fakeGenerator, d Dispatcher, clock *fakeClock) *Controller {
	return NewController(ControllerConfig{
		Confirmer:  NewConfirmer(gen),
		Dispatcher: d,
		AdminEmail: "owner@example.com",
		Now:        clock.Now,
	})
}

func TestSubmitSuccessWithFailingGenerator(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("network down")}
	disp := &recordingDispatcher{}
	clock := newFakeClock()
	c := newTestController(gen, disp, clock)
	c.SetName("Ana")
	c.SetEmail("ana@x.com")
	c.SetMessage("Hi")

	notice, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if notice.Text != MsgSent || notice.Kind != domain.NoticeSuccess {
		t.Fatalf("unexpected notice: %+v", notice)
	}
	if !c.Record().IsZero() {
		t.Fatalf("record should reset, got %+v", c.Record())
	}
	if c.Busy() {
		t.Fatalf("busy should be cleared")
	}
	if c.State() != domain.StateSettled {
		t.Fatalf("expected settled, got %s", c.State())
	}
	shown, ok := c.Notice()
	if !ok || shown.OutcomeNotice != notice {
		t.Fatalf("notice board not updated: %+v ok=%v", shown, ok)
	}

	sub, ok := disp.Last()
	if !ok {
		t.Fatalf("expected dispatch")
	}
	for _, want := range []string{"Ana", "ana@x.com", "Hi"} {
		if !strings.Contains(sub.AutoReply.Body, want) {
			t.Fatalf("fallback body missing %q: %s", want, sub.AutoReply.Body)
		}
	}
	if sub.AutoReply.Body != FallbackReply(ana) {
		t.Fatalf("expected exact fallback body")
	}
	if sub.AutoReply.Subject != ReplySubject || sub.AutoReply.To != "ana@x.com" {
		t.Fatalf("unexpected auto-reply: %+v", sub.AutoReply)
	}
	if sub.Admin.To != "owner@example.com" || sub.Admin.From != "ana@x.com" || !sub.Admin.Timestamp.Equal(clock.Now()) {
		t.Fatalf("unexpected admin notification: %+v", sub.Admin)
	}
	if sub.Message.ID == "" || sub.Message.ID != sub.ID || sub.Message.Metadata["reply_source"] != "fallback" {
		t.Fatalf("unexpected contact message: %+v", sub.Message)
	}
}

func TestSubmitMissingFieldSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{text: "reply"}
	disp := &recordingDispatcher{}
	c := newTestController(gen, disp, newFakeClock())
	rec := domain.ContactRecord{Name: "", Email: "a@b.com", Message: "hi"}
	c.SetRecord(rec)

	notice, err := c.Submit(context.Background())
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if notice.Text != MsgMissingFields || notice.Kind != domain.NoticeError {
		t.Fatalf("unexpected notice: %+v", notice)
	}
	if c.Record() != rec {
		t.Fatalf("record should be unchanged, got %+v", c.Record())
	}
	if gen.Calls() != 0 {
		t.Fatalf("generator must not be called")
	}
	if _, ok := disp.Last(); ok {
		t.Fatalf("nothing should be dispatched")
	}
	if c.Busy() || c.State() != domain.StateIdle {
		t.Fatalf("expected idle and not busy, got busy=%v state=%s", c.Busy(), c.State())
	}
}

func TestSubmitInvalidEmail(t *testing.T) {
	c := newTestController(&fakeGenerator{text: "reply"}, &recordingDispatcher{}, newFakeClock())
	c.SetRecord(domain.ContactRecord{Name: "Ana", Email: "not-an-email", Message: "hi"})
	notice, err := c.Submit(context.Background())
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if notice.Text != MsgInvalidEmail {
		t.Fatalf("unexpected notice: %+v", notice)
	}
	if c.Record().Email != "not-an-email" {
		t.Fatalf("record should be unchanged")
	}
}

func TestSubmitDispatcherFailure(t *testing.T) {
	disp := &recordingDispatcher{err: errors.New("queue full")}
	c := newTestController(&fakeGenerator{text: "reply"}, disp, newFakeClock())
	c.SetRecord(ana)

	notice, err := c.Submit(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if notice.Text != MsgSendFailed || notice.Kind != domain.NoticeError {
		t.Fatalf("unexpected notice: %+v", notice)
	}
	if c.Record() != ana {
		t.Fatalf("record should be kept on failure, got %+v", c.Record())
	}
	if c.Busy() || c.State() != domain.StateIdle {
		t.Fatalf("expected idle and not busy")
	}
}

func TestSubmitDispatcherPanic(t *testing.T) {
	c := newTestController(&fakeGenerator{text: "reply"}, &recordingDispatcher{panic: true}, newFakeClock())
	c.SetRecord(ana)

	notice, err := c.Submit(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if notice.Text != MsgSendFailed {
		t.Fatalf("unexpected notice: %+v", notice)
	}
	if c.Busy() {
		t.Fatalf("busy must be cleared after panic")
	}
}

func TestSubmitRejectsWhileInFlight(t *testing.T) {
	gen := &fakeGenerator{text: "reply", gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := newTestController(gen, &recordingDispatcher{}, newFakeClock())
	c.SetRecord(ana)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-gen.entered

	if !c.Busy() || c.State() != domain.StateGenerating {
		t.Fatalf("expected busy generating, got busy=%v state=%s", c.Busy(), c.State())
	}
	c.SetName("Bob")
	if c.Record().Name != "Ana" {
		t.Fatalf("fields must be locked while busy")
	}
	notice, err := c.Submit(context.Background())
	if !errors.Is(err, ErrSubmitInFlight) || !notice.IsZero() {
		t.Fatalf("expected ErrSubmitInFlight without notice, got %v %+v", err, notice)
	}
	if _, ok := c.Notice(); ok {
		t.Fatalf("notice should be cleared while generating")
	}

	close(gen.gate)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if gen.Calls() != 1 {
		t.Fatalf("expected one generation call, got %d", gen.Calls())
	}
}

func TestSubmitNoticeAutoExpires(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(&fakeGenerator{text: "reply"}, &recordingDispatcher{}, clock)
	c.SetRecord(ana)
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(c.NoticeTTL() - time.Millisecond)
	if _, ok := c.Notice(); !ok {
		t.Fatalf("notice should still show")
	}
	clock.Advance(time.Millisecond)
	if _, ok := c.Notice(); ok {
		t.Fatalf("notice should have expired")
	}
}

func TestDismissNotice(t *testing.T) {
	c := newTestController(&fakeGenerator{}, &recordingDispatcher{}, newFakeClock())
	if _, err := c.Submit(context.Background()); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, ok := c.Notice(); !ok {
		t.Fatalf("validation notice expected")
	}
	c.DismissNotice()
	if _, ok := c.Notice(); ok {
		t.Fatalf("notice should be dismissed")
	}
}

func TestSubmitRecordReplacesFields(t *testing.T) {
	disp := &recordingDispatcher{}
	c := newTestController(&fakeGenerator{text: "reply"}, disp, newFakeClock())
	c.SetName("Stale")
	if _, err := c.SubmitRecord(context.Background(), ana); err != nil {
		t.Fatalf("submit: %v", err)
	}
	sub, _ := disp.Last()
	if sub.Admin.Name != "Ana" {
		t.Fatalf("expected submitted record, got %+v", sub.Admin)
	}
}
