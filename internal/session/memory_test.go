package session

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, found, err := store.Get(ctx, 42); err != nil || found {
		t.Fatalf("expected empty store, got found=%v err=%v", found, err)
	}

	sess := Session{
		Step:     StepSignupEmail,
		FullName: "Ada Lovelace",
	}

	if err := store.Put(ctx, 42, sess); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, found, err := store.Get(ctx, 42)
	if err != nil || !found {
		t.Fatalf("expected session after Put, got found=%v err=%v", found, err)
	}

	if got.ChatID != 42 {
		t.Fatalf("expected Put to stamp chat id, got %d", got.ChatID)
	}

	if got.Step != StepSignupEmail || got.FullName != "Ada Lovelace" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if got.UpdatedAt.IsZero() {
		t.Fatalf("expected Put to stamp updated_at")
	}
}

func TestMemoryStorePutReplacesWholesale(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, 7, Session{Step: StepVerifyOTP, Password: "secret"}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if err := store.Put(ctx, 7, Session{Email: "ada@example.com", Token: "tok", LoggedIn: true}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, _, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got.Step != StepNone || got.Password != "" {
		t.Fatalf("expected transient fields replaced, got %+v", got)
	}

	if !got.LoggedIn || got.Email != "ada@example.com" {
		t.Fatalf("expected authenticated session, got %+v", got)
	}
}

func TestMemoryStoreDeleteAndCount(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, chatID := range []int64{1, 2, 3} {
		if err := store.Put(ctx, chatID, Session{}); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil || count != 3 {
		t.Fatalf("expected 3 sessions, got %d err=%v", count, err)
	}

	if err := store.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, found, _ := store.Get(ctx, 2); found {
		t.Fatalf("expected session 2 to be gone")
	}

	count, err = store.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 sessions after delete, got %d err=%v", count, err)
	}

	// Deleting an absent entry is not an error.
	if err := store.Delete(ctx, 99); err != nil {
		t.Fatalf("Delete of absent session returned error: %v", err)
	}

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
