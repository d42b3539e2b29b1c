package server

import (
	"context"
	"fmt"
	"log/slog"

	"echosync/internal/cases"
	"echosync/internal/logging"
	"echosync/internal/store"
)

type demoCase struct {
	record cases.Case
	result *cases.Result
}

var demoCases = []demoCase{
	{
		record: cases.Case{
			CaseID:        "c-demo-1",
			PatientName:   "Ahmed Mohamed",
			MedicalID:     "MED-12345",
			ExamDate:      "2024-11-15",
			ClinicalNotes: "Patient complains of chest pain and shortness of breath.",
			Age:           58,
			Gender:        "male",
			Origin:        cases.OriginRemote,
		},
		result: &cases.Result{
			EF:  45,
			EDV: 142,
			ESV: 82,
			WallMotion: map[string]string{
				"anterior": cases.WallMotionNormal,
				"lateral":  cases.WallMotionNormal,
				"inferior": cases.WallMotionHypokinetic,
				"septal":   cases.WallMotionNormal,
			},
			Confidence: 94,
		},
	},
	{
		record: cases.Case{
			CaseID:        "c-demo-2",
			PatientName:   "Fatma Hassan",
			MedicalID:     "MED-12346",
			ExamDate:      "2024-11-15",
			ClinicalNotes: "Routine checkup.",
			Age:           62,
			Gender:        "female",
			Origin:        cases.OriginRemote,
		},
	},
	{
		record: cases.Case{
			CaseID:        "c-demo-3",
			PatientName:   "Omar Khaled",
			MedicalID:     "MED-12347",
			ExamDate:      "2024-11-14",
			ClinicalNotes: "History of hypertension.",
			Age:           71,
			Gender:        "male",
			Origin:        cases.OriginRemote,
		},
		result: &cases.Result{
			EF:  38,
			EDV: 165,
			ESV: 102,
			WallMotion: map[string]string{
				"anterior": cases.WallMotionHypokinetic,
				"lateral":  cases.WallMotionNormal,
				"inferior": cases.WallMotionHypokinetic,
				"septal":   cases.WallMotionNormal,
			},
			Confidence: 89,
		},
	},
}

// SeedDemoCases loads sample cases into an empty store so a fresh install
// has something to show. A store that already holds cases is left alone.
func SeedDemoCases(ctx context.Context, st *store.Store, logger *slog.Logger) error {
	existing, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("seed demo cases: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, demo := range demoCases {
		record := demo.record
		saved, err := st.Save(ctx, &record)
		if err != nil {
			return fmt.Errorf("seed demo case %s: %w", record.CaseID, err)
		}
		if demo.result != nil {
			result := *demo.result
			result.CaseID = saved.CaseID
			if err := st.SaveResult(ctx, saved.CaseID, &result); err != nil {
				return fmt.Errorf("seed demo result %s: %w", saved.CaseID, err)
			}
		}
	}
	logging.NewComponentLogger(logger, "api-server").Info("demo cases seeded",
		logging.Args(logging.Int("count", len(demoCases)))...)
	return nil
}
