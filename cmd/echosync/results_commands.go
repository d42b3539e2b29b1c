package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"echosync/internal/analysis"
	"echosync/internal/cases"
	"echosync/internal/config"
	"echosync/internal/repo"
	"echosync/internal/store"
	"echosync/internal/textutil"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "results <case-id>",
		Short: "Show analysis results for a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(func(cfg *config.Config, r *repo.Repository) error {
				result, err := r.Results(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if result == nil {
					return fmt.Errorf("no results for case %s", args[0])
				}

				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Ejection fraction", fmt.Sprintf("%.1f%%", result.EF)},
					{"Classification", cases.EFStatus(result.EF)},
					{"End-diastolic volume", fmt.Sprintf("%.1f mL", result.EDV)},
					{"End-systolic volume", fmt.Sprintf("%.1f mL", result.ESV)},
					{"Confidence", fmt.Sprintf("%.0f%%", result.Confidence)},
				}
				for _, region := range cases.WallRegions {
					if motion, ok := result.WallMotion[region]; ok {
						rows = append(rows, []string{"Wall motion (" + region + ")", motion})
					}
				}
				if result.SegmentedVideoURL != "" {
					rows = append(rows, []string{"Segmented clip", result.SegmentedVideoURL})
				}
				fmt.Fprintln(out, renderTable([]string{"Measurement", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newPatientsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "patients",
		Short: "List patients grouped by medical ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(func(cfg *config.Config, r *repo.Repository) error {
				if err := r.Refresh(cmd.Context()); err != nil {
					return err
				}

				byMedicalID := make(map[string]*cases.Patient)
				order := make([]string, 0)
				for _, record := range r.List() {
					if record.MedicalID == "" {
						continue
					}
					patient, ok := byMedicalID[record.MedicalID]
					if !ok {
						patient = &cases.Patient{
							MedicalID:   record.MedicalID,
							PatientName: record.PatientName,
						}
						byMedicalID[record.MedicalID] = patient
						order = append(order, record.MedicalID)
					}
					patient.CaseCount++
				}

				out := cmd.OutOrStdout()
				if len(order) == 0 {
					fmt.Fprintln(out, "No patients found.")
					return nil
				}
				rows := make([][]string, 0, len(order))
				for _, id := range order {
					patient := byMedicalID[id]
					rows = append(rows, []string{
						patient.MedicalID,
						textutil.NormalizeName(patient.PatientName),
						strconv.Itoa(patient.CaseCount),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Medical ID", "Patient", "Cases"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <case-id>",
		Short: "Run the analyzer against a locally stored case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				analyzer := analysis.New(nil)
				result, err := analyzer.Complete(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Analysis complete for %s\n", args[0])
				fmt.Fprintf(out, "EF %.1f%% (%s), EDV %.1f mL, ESV %.1f mL, confidence %.0f%%\n",
					result.EF, cases.EFStatus(result.EF), result.EDV, result.ESV, result.Confidence)
				return nil
			})
		},
	}
}
