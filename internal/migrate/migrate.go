package migrate

import (
	"context"
	"errors"
	"log/slog"

	"echosync/internal/cases"
	"echosync/internal/logging"
	"echosync/internal/remote"
)

// Creator is the slice of the remote adapter the engine needs.
type Creator interface {
	Create(ctx context.Context, payload remote.NewCase) (*remote.CreateAck, error)
}

// Source is the slice of the local store the engine reads from and prunes.
type Source interface {
	List(ctx context.Context) ([]*cases.Case, error)
	Remove(ctx context.Context, caseID string) (bool, error)
}

// Options controls batch behaviour.
type Options struct {
	// RemoveAfterUpload deletes each local record once its remote copy
	// exists. A delete failure is swallowed; the upload already succeeded.
	RemoveAfterUpload bool
}

// Progress is the cumulative snapshot delivered after every case, exactly
// once per case and in order. Index is 1-based.
type Progress struct {
	Index       int
	Total       int
	Uploaded    int
	Failed      int
	LocalCaseID string
	Remote      *remote.CreateAck
	Err         string
}

// UploadedCase records one successful transfer.
type UploadedCase struct {
	LocalCaseID string
	Remote      remote.CreateAck
}

// FailedCase records one failed transfer.
type FailedCase struct {
	LocalCaseID string
	Err         string
}

// Report is the complete partition of the processed snapshot.
type Report struct {
	Uploaded []UploadedCase
	Failed   []FailedCase
}

// ErrNoCreator is returned before any case is touched when the engine has no
// working create operation to migrate through.
var ErrNoCreator = errors.New("migrate: remote adapter unavailable")

// Engine runs local-to-remote case migrations.
type Engine struct {
	source Source
	logger *slog.Logger
}

// New constructs an Engine around a local case source.
func New(source Source, logger *slog.Logger) *Engine {
	return &Engine{
		source: source,
		logger: logging.NewComponentLogger(logger, "migrate"),
	}
}

// Run transfers every locally-stored case through the creator. The snapshot
// is read once up front; cases are processed strictly sequentially in store
// order. Cancelling ctx stops the batch between cases; work already done is
// still reported. The returned report is valid even alongside a non-nil
// error.
func (e *Engine) Run(ctx context.Context, creator Creator, opts Options, onProgress func(Progress)) (*Report, error) {
	if creator == nil {
		return nil, ErrNoCreator
	}

	snapshot, err := e.source.List(ctx)
	if err != nil {
		return nil, cases.Wrap(cases.ErrPersistence, "migrate", "read snapshot", "", err)
	}

	report := &Report{}
	total := len(snapshot)
	e.logger.Info("migration started", logging.Args(logging.Int("total", total))...)

	for i, record := range snapshot {
		if ctx.Err() != nil {
			e.logger.Warn("migration cancelled", logging.Args(
				logging.Int("processed", i),
				logging.Int("total", total),
			)...)
			return report, ctx.Err()
		}

		progress := Progress{
			Index:       i + 1,
			Total:       total,
			LocalCaseID: record.CaseID,
		}

		ack, err := creator.Create(ctx, remote.NewCase{Case: metadataOnly(record)})
		if err != nil {
			report.Failed = append(report.Failed, FailedCase{LocalCaseID: record.CaseID, Err: err.Error()})
			progress.Err = err.Error()
			e.logger.Warn("case migration failed", logging.Args(
				logging.String("case_id", record.CaseID),
				logging.Error(err),
			)...)
		} else {
			report.Uploaded = append(report.Uploaded, UploadedCase{LocalCaseID: record.CaseID, Remote: *ack})
			progress.Remote = ack
			if opts.RemoveAfterUpload {
				if _, err := e.source.Remove(ctx, record.CaseID); err != nil {
					// The remote copy exists; losing the local prune is
					// recoverable and must not fail this item.
					e.logger.Warn("local prune failed", logging.Args(
						logging.String("case_id", record.CaseID),
						logging.Error(err),
					)...)
				}
			}
		}

		progress.Uploaded = len(report.Uploaded)
		progress.Failed = len(report.Failed)
		if onProgress != nil {
			onProgress(progress)
		}
	}

	e.logger.Info("migration finished", logging.Args(
		logging.Int("uploaded", len(report.Uploaded)),
		logging.Int("failed", len(report.Failed)),
	)...)
	return report, nil
}

// metadataOnly strips fields that cannot transfer. The video reference is
// local-only and not retransmittable; the backend assigns its own ID.
func metadataOnly(record *cases.Case) cases.Case {
	return cases.Case{
		PatientName:   record.PatientName,
		MedicalID:     record.MedicalID,
		ExamDate:      record.ExamDate,
		ClinicalNotes: record.ClinicalNotes,
		Age:           record.Age,
		Gender:        record.Gender,
	}
}
