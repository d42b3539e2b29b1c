package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"echosync/internal/cases"
	"echosync/internal/config"
)

// Store manages case persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	subs subscribers
}

// Open initializes or connects to the case database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the case database.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// NewLocalCaseID generates an identifier for a case created on this device.
// The timestamp component keeps IDs unique across rapid successive creates;
// the random suffix guards against clock ties.
func NewLocalCaseID() string {
	return fmt.Sprintf("local-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// List returns all stored cases in insertion order. Callers that need a
// recency ordering must sort explicitly.
func (s *Store) List(ctx context.Context) ([]*cases.Case, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+caseColumns+` FROM case_records ORDER BY rowid`)
	if err != nil {
		return nil, cases.Wrap(cases.ErrPersistence, "store", "list", "", err)
	}
	defer rows.Close()

	var list []*cases.Case
	for rows.Next() {
		record, err := scanCase(rows)
		if err != nil {
			return nil, cases.Wrap(cases.ErrPersistence, "store", "list", "scan row", err)
		}
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, cases.Wrap(cases.ErrPersistence, "store", "list", "iterate rows", err)
	}
	return list, nil
}

// Get fetches a case by identifier. Returns nil when absent.
func (s *Store) Get(ctx context.Context, caseID string) (*cases.Case, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM case_records WHERE case_id = ?`, caseID)
	record, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cases.Wrap(cases.ErrPersistence, "store", "get", caseID, err)
	}
	return record, nil
}

// Save upserts a case by its identifier, generating a local ID when the
// record has none, and always stamps UpdatedAt. Subscribers are notified
// synchronously after the write commits. The stored record is returned.
func (s *Store) Save(ctx context.Context, record *cases.Case) (*cases.Case, error) {
	if record == nil {
		return nil, cases.Wrap(cases.ErrValidation, "store", "save", "missing case", nil)
	}

	stored := record.Clone()
	if strings.TrimSpace(stored.CaseID) == "" {
		stored.CaseID = NewLocalCaseID()
		stored.Origin = cases.OriginLocal
	}
	if stored.Origin == "" {
		stored.Origin = cases.OriginLocal
	}
	stored.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO case_records (
            case_id, patient_name, medical_id, exam_date, updated_at,
            video_url, segmented_video_url, clinical_notes, age, gender, origin
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(case_id) DO UPDATE SET
            patient_name = excluded.patient_name,
            medical_id = excluded.medical_id,
            exam_date = excluded.exam_date,
            updated_at = excluded.updated_at,
            video_url = excluded.video_url,
            segmented_video_url = excluded.segmented_video_url,
            clinical_notes = excluded.clinical_notes,
            age = excluded.age,
            gender = excluded.gender,
            origin = excluded.origin`,
		stored.CaseID,
		stored.PatientName,
		stored.MedicalID,
		nullableString(stored.ExamDate),
		stored.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(stored.VideoURL),
		nullableString(stored.SegmentedVideoURL),
		nullableString(stored.ClinicalNotes),
		stored.Age,
		nullableString(stored.Gender),
		string(stored.Origin),
	)
	if err != nil {
		return nil, cases.Wrap(cases.ErrPersistence, "store", "save", stored.CaseID, err)
	}

	s.notify(ctx)
	return stored, nil
}

// Remove deletes a case by identifier. Returns true only when a record
// existed; a no-op delete does not notify subscribers.
func (s *Store) Remove(ctx context.Context, caseID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM case_records WHERE case_id = ?`, caseID)
	if err != nil {
		return false, cases.Wrap(cases.ErrPersistence, "store", "remove", caseID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, cases.Wrap(cases.ErrPersistence, "store", "remove", "rows affected", err)
	}
	if affected == 0 {
		return false, nil
	}
	s.notify(ctx)
	return true, nil
}

const caseColumns = "case_id, patient_name, medical_id, exam_date, updated_at, video_url, segmented_video_url, clinical_notes, age, gender, origin"

func scanCase(scanner interface{ Scan(dest ...any) error }) (*cases.Case, error) {
	var (
		caseID       string
		patientName  string
		medicalID    string
		examDate     sql.NullString
		updatedRaw   string
		videoURL     sql.NullString
		segmentedURL sql.NullString
		notes        sql.NullString
		age          sql.NullInt64
		gender       sql.NullString
		originRaw    string
	)

	if err := scanner.Scan(
		&caseID,
		&patientName,
		&medicalID,
		&examDate,
		&updatedRaw,
		&videoURL,
		&segmentedURL,
		&notes,
		&age,
		&gender,
		&originRaw,
	); err != nil {
		return nil, err
	}

	record := &cases.Case{
		CaseID:            caseID,
		PatientName:       patientName,
		MedicalID:         medicalID,
		ExamDate:          examDate.String,
		VideoURL:          videoURL.String,
		SegmentedVideoURL: segmentedURL.String,
		ClinicalNotes:     notes.String,
		Gender:            gender.String,
	}
	if age.Valid {
		record.Age = int(age.Int64)
	}
	if origin, ok := cases.ParseOrigin(originRaw); ok {
		record.Origin = origin
	} else {
		record.Origin = cases.OriginLocal
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
