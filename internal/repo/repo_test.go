package repo_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"echosync/internal/cases"
	"echosync/internal/remote"
	"echosync/internal/repo"
	"echosync/internal/testsupport"
)

func TestLocalModeTracksStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	r := repo.New(cfg, st, nil, nil)
	defer r.Close()
	if r.Mode() != repo.ModeLocal {
		t.Fatalf("expected local mode, got %q", r.Mode())
	}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(r.List()) != 0 {
		t.Fatal("expected empty snapshot")
	}

	saved, err := r.Create(context.Background(), &cases.Case{
		PatientName: "Ahmed Al-Sayed",
		MedicalID:   "MED-12345",
		ExamDate:    "2024-01-15",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(saved.CaseID, "local-") || saved.Origin != cases.OriginLocal {
		t.Fatalf("expected locally-originated record, got %#v", saved)
	}

	// The store notification keeps the snapshot live without Refresh.
	list := r.List()
	if len(list) != 1 || list[0].CaseID != saved.CaseID {
		t.Fatalf("expected live snapshot after save, got %#v", list)
	}

	removed, err := r.Remove(context.Background(), saved.CaseID)
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	if len(r.List()) != 0 {
		t.Fatal("expected snapshot to drop removed case")
	}
}

func TestLocalModeCloseDetaches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	r := repo.New(cfg, st, nil, nil)
	r.Close()

	testsupport.SeedCase(t, st, &cases.Case{CaseID: "local-1", MedicalID: "M1"})
	if len(r.List()) != 0 {
		t.Fatal("closed repository must not keep receiving snapshots")
	}
}

func TestRemoteModeRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemote(srv.URL))
	rc := remote.NewFromConfig(cfg)
	r := repo.New(cfg, nil, rc, nil)
	defer r.Close()
	if r.Mode() != repo.ModeRemote {
		t.Fatalf("expected remote mode, got %q", r.Mode())
	}

	ctx := context.Background()
	created, err := r.Create(ctx, &cases.Case{
		PatientName: "Fatima Hassan",
		MedicalID:   "MED-12346",
		ExamDate:    "2024-01-20",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.CaseID == "" || created.Origin != cases.OriginRemote {
		t.Fatalf("expected server-assigned remote record, got %#v", created)
	}

	// Create re-lists, so the snapshot already holds the new case.
	list := r.List()
	if len(list) != 1 || list[0].CaseID != created.CaseID {
		t.Fatalf("expected snapshot after create, got %#v", list)
	}

	got, err := r.Get(ctx, created.CaseID)
	if err != nil || got == nil || got.PatientName != "Fatima Hassan" {
		t.Fatalf("Get: %#v err=%v", got, err)
	}
	if missing, err := r.Get(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("expected nil for absent case, got %#v err=%v", missing, err)
	}

	removed, err := r.Remove(ctx, created.CaseID)
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	if len(r.List()) != 0 {
		t.Fatal("expected snapshot emptied after delete + re-list")
	}
	if removed, err := r.Remove(ctx, created.CaseID); err != nil || removed {
		t.Fatalf("expected absent delete to report false, got removed=%v err=%v", removed, err)
	}
}

func TestRemoteRefreshFailureKeepsSnapshot(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemote(srv.URL))
	r := repo.New(cfg, nil, remote.NewFromConfig(cfg), nil)
	defer r.Close()

	ctx := context.Background()
	if _, err := r.Create(ctx, &cases.Case{PatientName: "Omar Khaled", MedicalID: "MED-12347", ExamDate: "2024-01-25"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error state: %v", err)
	}

	backend.failList.Store(true)
	if err := r.Refresh(ctx); err == nil {
		t.Fatal("expected refresh failure")
	}
	if r.Err() == nil {
		t.Fatal("expected error state after failed refresh")
	}
	if len(r.List()) != 1 {
		t.Fatal("expected previous good snapshot retained")
	}

	backend.failList.Store(false)
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if r.Err() != nil {
		t.Fatal("expected error state cleared by successful refresh")
	}
}

// fakeBackend is a minimal in-memory stand-in for the case API.
type fakeBackend struct {
	mux      *http.ServeMux
	failList atomic.Bool

	records map[string]*cases.Case
	nextID  int
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		mux:     http.NewServeMux(),
		records: map[string]*cases.Case{},
	}
	b.mux.HandleFunc("GET /api/cases", func(w http.ResponseWriter, r *http.Request) {
		if b.failList.Load() {
			http.Error(w, "backend unavailable", http.StatusInternalServerError)
			return
		}
		list := make([]*cases.Case, 0, len(b.records))
		for _, record := range b.records {
			list = append(list, record)
		}
		json.NewEncoder(w).Encode(list)
	})
	b.mux.HandleFunc("POST /api/cases", func(w http.ResponseWriter, r *http.Request) {
		var record cases.Case
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.nextID++
		record.CaseID = fmt.Sprintf("c-%d", b.nextID)
		record.Origin = cases.OriginRemote
		b.records[record.CaseID] = &record
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(remote.CreateAck{CaseID: record.CaseID})
	})
	b.mux.HandleFunc("GET /api/cases/{id}", func(w http.ResponseWriter, r *http.Request) {
		record, ok := b.records[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Case not found"})
			return
		}
		json.NewEncoder(w).Encode(record)
	})
	b.mux.HandleFunc("DELETE /api/cases/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := b.records[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Case not found"})
			return
		}
		delete(b.records, id)
		w.WriteHeader(http.StatusNoContent)
	})
	return b
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}
