package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"contactdesk/pkg/domain"
)

func TestMemoryStoreSaveIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := domain.ContactMessage{ID: "m-1", Name: "Ana", Email: "ana@x.com", Message: "Hi", SubmittedAt: at}
	if err := s.SaveContactMessage(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	dup := first
	dup.Message = "redelivered"
	if err := s.SaveContactMessage(ctx, dup); err != nil {
		t.Fatalf("save duplicate: %v", err)
	}
	got, ok, err := s.GetContactMessage(ctx, "m-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Message != "Hi" {
		t.Fatalf("duplicate delivery overwrote message: %q", got.Message)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		msg := domain.ContactMessage{ID: id, Name: "n", Email: "e@x.io", Message: "m", SubmittedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.SaveContactMessage(ctx, msg); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	items, err := s.ListContactMessages(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "c" || items[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestMemoryStoreRejectsIncompleteMessage(t *testing.T) {
	s := NewMemoryStore()
	err := s.SaveContactMessage(context.Background(), domain.ContactMessage{Name: "Ana"})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("err = %v, want ErrInvalidMessage", err)
	}
}

func TestContactModelRoundTripKeepsMetadata(t *testing.T) {
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	in := domain.ContactMessage{ID: "m-9", Name: "Ana", Email: "ana@x.com", Message: "Hi", SubmittedAt: at, Metadata: map[string]string{"reply_source": "fallback"}}
	out := modelToContact(contactToModel(in))
	if out.ID != in.ID || !out.SubmittedAt.Equal(at) || out.Metadata["reply_source"] != "fallback" {
		t.Fatalf("model conversion lost data: %+v", out)
	}
	if (ContactMessageModel{}).TableName() != "contact_messages" {
		t.Fatalf("unexpected table name")
	}
}
