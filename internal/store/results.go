package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"echosync/internal/cases"
)

// SaveResult attaches an analysis result to an existing case. Saving against
// an unknown case ID is a not-found error, not an implicit create.
func (s *Store) SaveResult(ctx context.Context, caseID string, result *cases.Result) error {
	if result == nil {
		return cases.Wrap(cases.ErrValidation, "store", "save result", "missing result", nil)
	}
	payload := *result
	payload.CaseID = caseID
	data, err := json.Marshal(payload)
	if err != nil {
		return cases.Wrap(cases.ErrPersistence, "store", "save result", caseID, err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE case_records SET result_json = ? WHERE case_id = ?`, string(data), caseID)
	if err != nil {
		return cases.Wrap(cases.ErrPersistence, "store", "save result", caseID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return cases.Wrap(cases.ErrPersistence, "store", "save result", "rows affected", err)
	}
	if affected == 0 {
		return cases.Wrap(cases.ErrNotFound, "store", "save result", caseID, nil)
	}
	s.notify(ctx)
	return nil
}

// GetResult fetches the stored analysis result for a case. Returns nil when
// the case has no result yet; a corrupt stored blob also degrades to nil
// rather than failing the read path.
func (s *Store) GetResult(ctx context.Context, caseID string) (*cases.Result, error) {
	var blob sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT result_json FROM case_records WHERE case_id = ?`, caseID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cases.Wrap(cases.ErrNotFound, "store", "get result", caseID, nil)
	}
	if err != nil {
		return nil, cases.Wrap(cases.ErrPersistence, "store", "get result", caseID, err)
	}
	if !blob.Valid || blob.String == "" {
		return nil, nil
	}

	var result cases.Result
	if err := json.Unmarshal([]byte(blob.String), &result); err != nil {
		return nil, nil
	}
	result.CaseID = caseID
	return &result, nil
}
