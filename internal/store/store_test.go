package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"echosync/internal/cases"
	"echosync/internal/testsupport"
)

func TestSaveGeneratesLocalIDAndStampsUpdatedAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	saved, err := st.Save(ctx, &cases.Case{PatientName: "Ahmed Mohamed", MedicalID: "MED-12345"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(saved.CaseID, "local-") {
		t.Fatalf("expected generated local ID, got %q", saved.CaseID)
	}
	if saved.Origin != cases.OriginLocal {
		t.Fatalf("expected local origin, got %q", saved.Origin)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped")
	}

	fetched, err := st.Get(ctx, saved.CaseID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil || fetched.PatientName != "Ahmed Mohamed" {
		t.Fatalf("unexpected fetched case: %#v", fetched)
	}
}

func TestSaveUpsertIsIdempotentPerCaseID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := st.Save(ctx, &cases.Case{CaseID: "local-1", PatientName: "Jane", MedicalID: "M1"})
	if err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	second, err := st.Save(ctx, &cases.Case{CaseID: "local-1", PatientName: "Jane Roe", MedicalID: "M1"})
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Fatalf("expected second UpdatedAt >= first: %v < %v", second.UpdatedAt, first.UpdatedAt)
	}

	list, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(list))
	}
	if list[0].PatientName != "Jane Roe" {
		t.Fatalf("expected latest field values, got %q", list[0].PatientName)
	}
}

func TestRemoveCompleteness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-1", MedicalID: "M1"})
	testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-2", MedicalID: "M2"})

	removed, err := st.Remove(ctx, "local-1")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected Remove to report deletion")
	}

	if got, err := st.Get(ctx, "local-1"); err != nil || got != nil {
		t.Fatalf("expected absent case after Remove, got %#v err %v", got, err)
	}
	list, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].CaseID != "local-2" {
		t.Fatalf("unexpected remaining cases: %#v", list)
	}

	removed, err = st.Remove(ctx, "local-1")
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected false for deleting a non-existent id")
	}
	if list, _ = st.List(ctx); len(list) != 1 {
		t.Fatalf("no-op delete must leave the store unchanged, got %d records", len(list))
	}
}

func TestSubscriberFanOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	var firstCalls, secondCalls int
	var firstSnapshot, secondSnapshot []*cases.Case

	unsubFirst := st.Subscribe(func(snapshot []*cases.Case) {
		firstCalls++
		firstSnapshot = snapshot
	})
	defer unsubFirst()
	unsubSecond := st.Subscribe(func(snapshot []*cases.Case) {
		secondCalls++
		secondSnapshot = snapshot
	})

	testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-1", PatientName: "Omar", MedicalID: "M1"})
	if firstCalls != 1 || secondCalls != 1 {
		t.Fatalf("expected each subscriber called once, got %d/%d", firstCalls, secondCalls)
	}
	if len(firstSnapshot) != 1 || firstSnapshot[0].CaseID != "local-1" {
		t.Fatalf("unexpected first snapshot: %#v", firstSnapshot)
	}
	if len(secondSnapshot) != 1 || secondSnapshot[0].CaseID != firstSnapshot[0].CaseID {
		t.Fatalf("snapshots differ between subscribers: %#v vs %#v", firstSnapshot, secondSnapshot)
	}

	unsubSecond()
	testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-2", MedicalID: "M2"})
	if firstCalls != 2 {
		t.Fatalf("expected remaining subscriber to keep receiving, got %d calls", firstCalls)
	}
	if secondCalls != 1 {
		t.Fatalf("expected unsubscribed listener to stop receiving, got %d calls", secondCalls)
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	var calls int
	st.Subscribe(func([]*cases.Case) {
		panic("listener bug")
	})
	st.Subscribe(func([]*cases.Case) {
		calls++
	})

	testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-1", MedicalID: "M1"})
	if calls != 1 {
		t.Fatalf("expected second subscriber to run despite panic, got %d calls", calls)
	}

	// The store must stay writable after a panicking listener.
	testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-2", MedicalID: "M2"})
	if calls != 2 {
		t.Fatalf("expected delivery to continue on later saves, got %d calls", calls)
	}
}

func TestRemoveDoesNotNotifyOnNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	var calls int
	st.Subscribe(func([]*cases.Case) { calls++ })

	if _, err := st.Remove(context.Background(), "missing"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("no-op delete must not notify, got %d calls", calls)
	}
}

func TestResultRoundTripAndCorruptionDegrade(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	saved := testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-1", MedicalID: "M1"})

	result := &cases.Result{
		EF:         45,
		EDV:        142,
		ESV:        78.1,
		WallMotion: map[string]string{"inferior": cases.WallMotionHypokinetic},
		Confidence: 94,
	}
	if err := st.SaveResult(ctx, saved.CaseID, result); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	fetched, err := st.GetResult(ctx, saved.CaseID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if fetched == nil || fetched.EF != 45 || fetched.CaseID != saved.CaseID {
		t.Fatalf("unexpected result: %#v", fetched)
	}
	if fetched.WallMotion["inferior"] != cases.WallMotionHypokinetic {
		t.Fatalf("unexpected wall motion: %#v", fetched.WallMotion)
	}

	if err := st.SaveResult(ctx, "missing", result); !errors.Is(err, cases.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown case, got %v", err)
	}
}

func TestGetResultMissingCase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, err := st.GetResult(context.Background(), "missing")
	if !errors.Is(err, cases.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListInsertionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for _, id := range []string{"local-3", "local-1", "local-2"} {
		testsupport.SeedCase(t, st, &cases.Case{CaseID: id, MedicalID: "M"})
	}

	list, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	got := make([]string, len(list))
	for i, record := range list {
		got[i] = record.CaseID
	}
	want := []string{"local-3", "local-1", "local-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, got)
		}
	}
}
