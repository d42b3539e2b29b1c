package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"echosync/internal/cases"
	"echosync/internal/config"
	"echosync/internal/remote"
	"echosync/internal/repo"
	"echosync/internal/textutil"
)

func newCasesCommand(ctx *commandContext) *cobra.Command {
	casesCmd := &cobra.Command{
		Use:   "cases",
		Short: "Manage echocardiography cases",
	}

	casesCmd.AddCommand(newCasesListCommand(ctx))
	casesCmd.AddCommand(newCasesShowCommand(ctx))
	casesCmd.AddCommand(newCasesAddCommand(ctx))
	casesCmd.AddCommand(newCasesRemoveCommand(ctx))

	return casesCmd
}

func newCasesListCommand(ctx *commandContext) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases from the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(func(cfg *config.Config, r *repo.Repository) error {
				if err := r.Refresh(cmd.Context()); err != nil {
					return err
				}
				list := r.List()
				filtered := make([]*cases.Case, 0, len(list))
				for _, record := range list {
					if record.Matches(query) {
						filtered = append(filtered, record)
					}
				}
				cases.SortByUpdatedDesc(filtered)

				out := cmd.OutOrStdout()
				if len(filtered) == 0 {
					fmt.Fprintln(out, "No cases found.")
					return nil
				}

				rows := make([][]string, 0, len(filtered))
				for _, record := range filtered {
					rows = append(rows, []string{
						record.CaseID,
						textutil.NormalizeName(record.PatientName),
						record.MedicalID,
						record.ExamDate,
						string(record.Origin),
						record.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Case ID", "Patient", "Medical ID", "Exam Date", "Origin", "Updated"},
					rows, nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by patient name, medical ID, or case ID")
	return cmd
}

func newCasesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <case-id>",
		Short: "Show a single case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(func(cfg *config.Config, r *repo.Repository) error {
				record, err := r.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("case %s not found", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Case ID:     %s\n", record.CaseID)
				fmt.Fprintf(out, "Patient:     %s\n", textutil.NormalizeName(record.PatientName))
				fmt.Fprintf(out, "Medical ID:  %s\n", record.MedicalID)
				fmt.Fprintf(out, "Exam date:   %s\n", record.ExamDate)
				fmt.Fprintf(out, "Origin:      %s\n", record.Origin)
				fmt.Fprintf(out, "Updated:     %s\n", record.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
				if record.Age > 0 {
					fmt.Fprintf(out, "Age:         %d\n", record.Age)
				}
				if record.Gender != "" {
					fmt.Fprintf(out, "Gender:      %s\n", record.Gender)
				}
				if record.VideoURL != "" {
					fmt.Fprintf(out, "Video:       %s\n", record.VideoURL)
				}
				if record.SegmentedVideoURL != "" {
					fmt.Fprintf(out, "Segmented:   %s\n", record.SegmentedVideoURL)
				}
				if record.ClinicalNotes != "" {
					fmt.Fprintf(out, "Notes:       %s\n", record.ClinicalNotes)
				}
				return nil
			})
		},
	}
}

func newCasesAddCommand(ctx *commandContext) *cobra.Command {
	var (
		patientName string
		medicalID   string
		examDate    string
		age         int
		gender      string
		notes       string
		videoPath   string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new case",
		RunE: func(cmd *cobra.Command, args []string) error {
			record := &cases.Case{
				PatientName:   patientName,
				MedicalID:     medicalID,
				ExamDate:      examDate,
				Age:           age,
				Gender:        gender,
				ClinicalNotes: notes,
			}

			var videoName string
			var videoSize int64
			if videoPath != "" {
				info, err := os.Stat(videoPath)
				if err != nil {
					return fmt.Errorf("video file: %w", err)
				}
				videoName = filepath.Base(videoPath)
				videoSize = info.Size()
			}
			if err := cases.ValidateUpload(record, videoName, videoSize); err != nil {
				return err
			}

			return ctx.withRepository(func(cfg *config.Config, r *repo.Repository) error {
				if r.Mode() == repo.ModeRemote && videoPath != "" {
					return addRemoteWithVideo(cmd, ctx, record, videoPath)
				}

				saved, err := r.Create(cmd.Context(), record)
				if err != nil {
					return err
				}
				if videoPath != "" {
					videoURL, err := importVideo(cfg, saved.CaseID, videoPath)
					if err != nil {
						return err
					}
					saved.VideoURL = videoURL
					if saved, err = r.Create(cmd.Context(), saved); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created case %s\n", saved.CaseID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&patientName, "name", "", "Patient name")
	cmd.Flags().StringVar(&medicalID, "medical-id", "", "Medical record identifier")
	cmd.Flags().StringVar(&examDate, "exam-date", "", "Exam date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&age, "age", 0, "Patient age")
	cmd.Flags().StringVar(&gender, "gender", "", "Patient gender")
	cmd.Flags().StringVar(&notes, "notes", "", "Clinical notes")
	cmd.Flags().StringVar(&videoPath, "video", "", "Path to the exam video clip")
	return cmd
}

func addRemoteWithVideo(cmd *cobra.Command, ctx *commandContext, record *cases.Case, videoPath string) error {
	client, err := ctx.remoteClient()
	if err != nil {
		return err
	}
	file, err := os.Open(videoPath)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	ack, err := client.Create(cmd.Context(), remote.NewCase{
		Case:      *record,
		Video:     file,
		VideoName: filepath.Base(videoPath),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created case %s\n", ack.CaseID)
	return nil
}

// importVideo copies a clip into the media directory named after its case.
func importVideo(cfg *config.Config, caseID, videoPath string) (string, error) {
	src, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(textutil.SanitizeFileName(videoPath)))
	dest := filepath.Join(cfg.Paths.MediaDir, caseID+ext)
	dst, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("import video: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("import video: %w", err)
	}
	return dest, nil
}

func newCasesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <case-id>",
		Short: "Remove a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(func(cfg *config.Config, r *repo.Repository) error {
				removed, err := r.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("case %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed case %s\n", args[0])
				return nil
			})
		},
	}
}
