package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightpath/studyplan-core/internal/dto"
	"github.com/brightpath/studyplan-core/internal/models"
)

func (a *App) extractCmd() *cobra.Command {
	var (
		courseID string
		textPath string
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run topic extraction for one course against a syllabus text file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureExtraction(); err != nil {
				return err
			}
			text, err := os.ReadFile(textPath)
			if err != nil {
				return fmt.Errorf("reading syllabus text: %w", err)
			}
			reqCtx := models.RequestContext{UserID: a.userID, Elevated: true}
			req := dto.ExtractRequest{
				CourseID: courseID,
				Text:     string(text),
				Mode:     models.ExtractionMode(mode),
			}
			outcome, err := a.extraction.Extract(cmd.Context(), reqCtx, req)
			if err != nil {
				return err
			}
			if outcome.InProgress {
				fmt.Printf("extraction already running: run %s\n", outcome.Run.ID)
				return nil
			}
			fmt.Printf("run %s completed: status=%s inserted=%d needs_review=%v\n",
				outcome.Run.ID, outcome.Run.Status, outcome.Run.Result.InsertedCount, outcome.Run.Status == models.ExtractionNeedsReview)
			return nil
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "course id (required)")
	cmd.Flags().StringVar(&textPath, "text", "", "path to the syllabus text file (required)")
	cmd.Flags().StringVar(&mode, "mode", string(models.ExtractionModeReplace), "replace or append")
	cmd.MarkFlagRequired("course") //nolint:errcheck
	cmd.MarkFlagRequired("text")   //nolint:errcheck
	return cmd
}
