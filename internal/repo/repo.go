package repo

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"echosync/internal/cases"
	"echosync/internal/config"
	"echosync/internal/logging"
	"echosync/internal/remote"
	"echosync/internal/store"
)

// Mode identifies the backend a repository was constructed against.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Repository presents one surface over either the local case store or the
// remote API. The backend is chosen once at construction from config and
// never re-evaluated per call.
type Repository struct {
	mode   Mode
	store  *store.Store
	remote *remote.Client
	logger *slog.Logger

	mu          sync.Mutex
	snapshot    []*cases.Case
	lastErr     error
	unsubscribe func()
}

// New builds a repository over the configured backend. In local mode the
// snapshot tracks store notifications; in remote mode it is refreshed on
// demand. Callers should Refresh once before reading List.
func New(cfg *config.Config, st *store.Store, rc *remote.Client, logger *slog.Logger) *Repository {
	r := &Repository{
		store:  st,
		remote: rc,
		logger: logging.NewComponentLogger(logger, "repo"),
	}
	if cfg.Remote.Enabled {
		r.mode = ModeRemote
	} else {
		r.mode = ModeLocal
		r.unsubscribe = st.Subscribe(func(snapshot []*cases.Case) {
			r.setSnapshot(snapshot)
		})
	}
	return r
}

// Mode reports the backend chosen at construction.
func (r *Repository) Mode() Mode {
	return r.mode
}

// Refresh re-reads the backend. A failed load keeps the previous good
// snapshot and records the failure for Err; the repository always settles
// in a usable state.
func (r *Repository) Refresh(ctx context.Context) error {
	var (
		snapshot []*cases.Case
		err      error
	)
	switch r.mode {
	case ModeRemote:
		snapshot, err = r.remote.List(ctx, "")
	default:
		snapshot, err = r.store.List(ctx)
	}
	if err != nil {
		r.logger.Warn("refresh failed", logging.Args(logging.Error(err))...)
		r.setError(err)
		return err
	}
	r.setSnapshot(snapshot)
	return nil
}

// List returns the current snapshot without touching the backend.
func (r *Repository) List() []*cases.Case {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*cases.Case, len(r.snapshot))
	for i, record := range r.snapshot {
		out[i] = record.Clone()
	}
	return out
}

// Get fetches one case from the backend, nil when absent.
func (r *Repository) Get(ctx context.Context, caseID string) (*cases.Case, error) {
	if r.mode == ModeRemote {
		record, err := r.remote.Get(ctx, caseID)
		if err != nil {
			if errors.Is(err, cases.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return record, nil
	}
	return r.store.Get(ctx, caseID)
}

// Create stores a new case through the backend and returns the stored
// record. Remote mode posts metadata and re-lists so the snapshot includes
// the server-assigned record.
func (r *Repository) Create(ctx context.Context, record *cases.Case) (*cases.Case, error) {
	if r.mode == ModeRemote {
		ack, err := r.remote.Create(ctx, remote.NewCase{Case: *record})
		if err != nil {
			return nil, err
		}
		if err := r.Refresh(ctx); err != nil {
			r.logger.Warn("re-list after create failed", logging.Args(
				logging.String("case_id", ack.CaseID),
				logging.Error(err),
			)...)
		}
		stored := record.Clone()
		stored.CaseID = ack.CaseID
		stored.Origin = cases.OriginRemote
		return stored, nil
	}
	return r.store.Save(ctx, record)
}

// Remove deletes one case. Remote mode issues the delete and then an
// explicit re-list; local mode relies on the store notification.
func (r *Repository) Remove(ctx context.Context, caseID string) (bool, error) {
	if r.mode == ModeRemote {
		if err := r.remote.Delete(ctx, caseID); err != nil {
			if errors.Is(err, cases.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if err := r.Refresh(ctx); err != nil {
			r.logger.Warn("re-list after delete failed", logging.Args(
				logging.String("case_id", caseID),
				logging.Error(err),
			)...)
		}
		return true, nil
	}
	return r.store.Remove(ctx, caseID)
}

// Results returns the analysis result for a case, nil when none exists.
func (r *Repository) Results(ctx context.Context, caseID string) (*cases.Result, error) {
	if r.mode == ModeRemote {
		result, err := r.remote.Results(ctx, caseID)
		if err != nil {
			if errors.Is(err, cases.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return result, nil
	}
	result, err := r.store.GetResult(ctx, caseID)
	if err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// Err reports the most recent load failure, cleared by the next successful
// refresh or snapshot delivery.
func (r *Repository) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Close detaches the repository from store notifications.
func (r *Repository) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (r *Repository) setSnapshot(snapshot []*cases.Case) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = snapshot
	r.lastErr = nil
}

func (r *Repository) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
}
