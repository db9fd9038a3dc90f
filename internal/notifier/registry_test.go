package notifier

import (
	"context"
	"errors"
	"testing"
)

type mockNotifier struct {
	name       string
	sendCalled int
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Notify(ctx context.Context, n Notification) error {
	m.sendCalled++
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	if err := r.Register(mock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("expected 'test', got '%s'", got.Name())
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "test"})

	if err := r.Register(&mockNotifier{name: "test"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for nonexistent notifier")
	}
}

func TestRegistry_GetAllSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "webhook"})
	r.Register(&mockNotifier{name: "inbox"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 notifiers, got %d", len(all))
	}
	if all[0].Name() != "inbox" || all[1].Name() != "webhook" {
		t.Errorf("unexpected order: %s, %s", all[0].Name(), all[1].Name())
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", shouldFail: true}
	r.Register(ok)
	r.Register(bad)

	errs := r.NotifyAll(context.Background(), New(KindInfo, "t", "m"))

	if ok.sendCalled != 1 || bad.sendCalled != 1 {
		t.Error("every notifier should be attempted")
	}
	if len(errs) != 1 || errs["bad"] == nil {
		t.Errorf("expected only 'bad' to fail, got %v", errs)
	}
}

func TestRegistry_Notify_JoinsErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "a", shouldFail: true})
	r.Register(&mockNotifier{name: "b"})

	if err := r.Notify(context.Background(), New(KindError, "t", "m")); err == nil {
		t.Error("expected error")
	}

	r2 := NewRegistry()
	r2.Register(&mockNotifier{name: "b"})
	if err := r2.Notify(context.Background(), New(KindError, "t", "m")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNotification_New(t *testing.T) {
	n := New(KindError, "Connection Failed", "bad password")
	if n.ID == "" {
		t.Error("expected id")
	}
	if n.Read {
		t.Error("new notification should be unread")
	}
	if !n.Destructive() {
		t.Error("error kind should be destructive")
	}
	if New(KindSuccess, "", "").Destructive() {
		t.Error("success kind should not be destructive")
	}
}

type deliveryCounter map[string]int

func (d deliveryCounter) RecordNotification(kind, status string) { d[kind+"/"+status]++ }

func TestRegistry_RecordsDeliveries(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "ok"})
	r.Register(&mockNotifier{name: "bad", shouldFail: true})
	counts := deliveryCounter{}
	r.SetRecorder(counts)

	r.Notify(context.Background(), New(KindSuccess, "Connected to MT5", ""))

	if counts["success/ok"] != 1 || counts["success/error"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}
