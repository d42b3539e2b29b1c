package server_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"echosync/internal/analysis"
	"echosync/internal/cases"
	"echosync/internal/config"
	"echosync/internal/remote"
	"echosync/internal/server"
	"echosync/internal/store"
	"echosync/internal/testsupport"
)

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *store.Store, *remote.Client) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	srv := server.New(cfg, st, analysis.New(nil), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := remote.New(ts.URL, nil, nil)
	return cfg, st, client
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	_, _, client := newTestServer(t)
	ctx := context.Background()

	ack, err := client.Create(ctx, remote.NewCase{Case: cases.Case{
		PatientName: "Ahmed Mohamed",
		MedicalID:   "MED-12345",
		ExamDate:    "2024-11-15",
	}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(ack.CaseID, "c-") {
		t.Fatalf("expected server-assigned id, got %q", ack.CaseID)
	}

	record, err := client.Get(ctx, ack.CaseID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.PatientName != "Ahmed Mohamed" || record.Origin != cases.OriginRemote {
		t.Fatalf("unexpected record: %#v", record)
	}

	// Placeholder result exists before any analysis runs.
	result, err := client.Results(ctx, ack.CaseID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if result.CaseID != ack.CaseID || result.EF != 0 {
		t.Fatalf("expected placeholder result, got %#v", result)
	}

	if err := client.Delete(ctx, ack.CaseID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := client.Get(ctx, ack.CaseID); !errors.Is(err, cases.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListFilterAndOrdering(t *testing.T) {
	_, st, client := newTestServer(t)
	ctx := context.Background()

	first := testsupport.SeedCase(t, st, &cases.Case{PatientName: "Ahmed Mohamed", MedicalID: "MED-12345", ExamDate: "2024-11-15"})
	second := testsupport.SeedCase(t, st, &cases.Case{PatientName: "Fatma Hassan", MedicalID: "MED-12346", ExamDate: "2024-11-15"})

	list, err := client.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(list))
	}
	if list[0].UpdatedAt.Before(list[1].UpdatedAt) {
		t.Fatalf("expected most recently updated first, got %#v", list)
	}

	filtered, err := client.List(ctx, "fatma")
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].CaseID != second.CaseID {
		t.Fatalf("expected substring match on patient name, got %#v", filtered)
	}

	byID, err := client.List(ctx, first.CaseID)
	if err != nil {
		t.Fatalf("List by id: %v", err)
	}
	if len(byID) != 1 || byID[0].CaseID != first.CaseID {
		t.Fatalf("expected match on case id, got %#v", byID)
	}
}

func TestCreateValidation(t *testing.T) {
	_, _, client := newTestServer(t)

	_, err := client.Create(context.Background(), remote.NewCase{Case: cases.Case{
		PatientName: "Ahmed Mohamed",
	}})
	if !errors.Is(err, cases.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "medicalId") || !strings.Contains(err.Error(), "examDate") {
		t.Fatalf("expected per-field detail in message, got %v", err)
	}
}

func TestMultipartUploadStoresVideo(t *testing.T) {
	cfg, _, client := newTestServer(t)
	ctx := context.Background()

	ack, err := client.Create(ctx, remote.NewCase{
		Case: cases.Case{
			PatientName: "Omar Khaled",
			MedicalID:   "MED-12347",
			ExamDate:    "2024-11-14",
			Age:         71,
		},
		Video:     bytes.NewReader([]byte("fake clip bytes")),
		VideoName: "exam.mp4",
	})
	if err != nil {
		t.Fatalf("Create multipart: %v", err)
	}

	record, err := client.Get(ctx, ack.CaseID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.VideoURL != "/videos/"+ack.CaseID+".mp4" {
		t.Fatalf("unexpected video url %q", record.VideoURL)
	}
	if record.Age != 71 {
		t.Fatalf("expected age carried through the form, got %d", record.Age)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.MediaDir, ack.CaseID+".mp4"))
	if err != nil {
		t.Fatalf("read stored video: %v", err)
	}
	if string(data) != "fake clip bytes" {
		t.Fatalf("stored video corrupted: %q", data)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	_, st, client := newTestServer(t)
	ctx := context.Background()
	saved := testsupport.SeedCase(t, st, &cases.Case{PatientName: "Ahmed Mohamed", MedicalID: "MED-12345", ExamDate: "2024-11-15"})

	resp, err := http.Post(client.BaseURL()+"/api/cases/"+saved.CaseID+"/analyze", "application/json", nil)
	if err != nil {
		t.Fatalf("analyze request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result, err := client.Results(ctx, saved.CaseID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if result.EF == 0 || len(result.WallMotion) != len(cases.WallRegions) {
		t.Fatalf("expected generated result, got %#v", result)
	}
}

func TestPatientsGrouping(t *testing.T) {
	_, st, client := newTestServer(t)
	ctx := context.Background()

	testsupport.SeedCase(t, st, &cases.Case{PatientName: "Ahmed Mohamed", MedicalID: "MED-12345", ExamDate: "2024-11-15"})
	testsupport.SeedCase(t, st, &cases.Case{PatientName: "Ahmed Mohamed", MedicalID: "MED-12345", ExamDate: "2024-11-20"})
	testsupport.SeedCase(t, st, &cases.Case{PatientName: "Fatma Hassan", MedicalID: "MED-12346", ExamDate: "2024-11-15"})

	patients, err := client.Patients(ctx)
	if err != nil {
		t.Fatalf("Patients: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("expected 2 patients, got %#v", patients)
	}
	if patients[0].MedicalID != "MED-12345" || patients[0].CaseCount != 2 {
		t.Fatalf("expected grouped cases, got %#v", patients[0])
	}
}

func TestMutationsRequireToken(t *testing.T) {
	_, st, client := newTestServer(t, testsupport.WithAPIToken("secret-token"))
	ctx := context.Background()
	saved := testsupport.SeedCase(t, st, &cases.Case{PatientName: "Ahmed Mohamed", MedicalID: "MED-12345", ExamDate: "2024-11-15"})

	// Reads stay open.
	if _, err := client.List(ctx, ""); err != nil {
		t.Fatalf("List: %v", err)
	}

	if err := client.Delete(ctx, saved.CaseID); err == nil {
		t.Fatal("expected unauthorized delete to fail")
	}
	if got, _ := st.Get(ctx, saved.CaseID); got == nil {
		t.Fatal("unauthorized delete must not remove the case")
	}
}

func TestLoginFlow(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	_, _, client := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth = []config.AuthUser{{
			Username:     "dr.sara",
			PasswordHash: string(hash),
			Role:         "cardiologist",
			TenantID:     "clinic-9",
		}}
	})
	ctx := context.Background()

	session, err := client.Login(ctx, "dr.sara", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Token == "" || session.User.Role != "cardiologist" || session.User.TenantID != "clinic-9" {
		t.Fatalf("unexpected session: %#v", session)
	}

	if _, err := client.Login(ctx, "dr.sara", "wrong"); !errors.Is(err, cases.ErrValidation) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if _, err := client.Login(ctx, "nobody", "s3cret"); !errors.Is(err, cases.ErrValidation) {
		t.Fatalf("expected unknown user rejection, got %v", err)
	}
}

func TestLoginOpenModeAcceptsAnyUser(t *testing.T) {
	_, _, client := newTestServer(t)

	session, err := client.Login(context.Background(), "demo", "anything")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.Role != "doctor" || session.User.ID != "u-demo" {
		t.Fatalf("unexpected demo session: %#v", session)
	}
}

func TestSeedDemoCases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := server.SeedDemoCases(ctx, st, nil); err != nil {
		t.Fatalf("SeedDemoCases: %v", err)
	}
	list, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 demo cases, got %d", len(list))
	}

	result, err := st.GetResult(ctx, "c-demo-1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result == nil || result.EF != 45 {
		t.Fatalf("expected seeded result, got %#v", result)
	}

	// Seeding again is a no-op.
	if err := server.SeedDemoCases(ctx, st, nil); err != nil {
		t.Fatalf("SeedDemoCases again: %v", err)
	}
	if list, _ := st.List(ctx); len(list) != 3 {
		t.Fatalf("expected seeding to be idempotent, got %d cases", len(list))
	}
}
