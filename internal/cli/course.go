package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/brightpath/studyplan-core/internal/models"
)

func (a *App) courseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Manage courses in the local store",
	}
	cmd.AddCommand(a.courseAddCmd())
	return cmd
}

func (a *App) courseAddCmd() *cobra.Command {
	var examDate string
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Register a course with an exam date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureStore(); err != nil {
				return err
			}
			exam, err := time.Parse("2006-01-02", examDate)
			if err != nil {
				return fmt.Errorf("parsing --exam-date: %w", err)
			}
			course := &models.Course{
				ID:       uuid.NewString(),
				UserID:   a.userID,
				Title:    args[0],
				ExamDate: exam,
				Status:   models.CourseActive,
			}
			if err := a.courses.Create(cmd.Context(), course); err != nil {
				return err
			}
			fmt.Printf("created course %s (%s)\n", course.ID, course.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&examDate, "exam-date", "", "exam date, YYYY-MM-DD (required)")
	cmd.MarkFlagRequired("exam-date") //nolint:errcheck
	return cmd
}
