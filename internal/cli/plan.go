package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightpath/studyplan-core/internal/dto"
	"github.com/brightpath/studyplan-core/internal/models"
	"github.com/brightpath/studyplan-core/internal/service"
	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

func (a *App) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate or inspect a user's study plan",
	}
	cmd.AddCommand(a.planGenerateCmd())
	cmd.AddCommand(a.planShowCmd())
	return cmd
}

func (a *App) planGenerateCmd() *cobra.Command {
	var (
		reschedule         bool
		includeMissedItems bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run plan generation for the active user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			reqCtx := models.RequestContext{UserID: a.userID, Elevated: true}
			req := dto.GeneratePlanRequest{Reschedule: reschedule, IncludeMissedItems: includeMissedItems}
			result, err := a.planner.Generate(cmd.Context(), reqCtx, req)
			if err != nil {
				var appErr *appErrors.Error
				if errors.As(err, &appErr) && appErr.Code == appErrors.ErrInfeasible.Code {
					fmt.Printf("plan infeasible: shortfall=%.1fh\n", result.Verdict.ShortfallHours)
					for _, s := range (&service.FeasibilityService{}).Suggestions(result.Verdict) {
						fmt.Printf("  - %s\n", s)
					}
					return nil
				}
				return err
			}
			fmt.Printf("generated plan v%d: %d days, %d items, coverage=%.0f%%\n",
				result.PlanVersion, len(result.Days), len(result.Items), result.Verdict.CoverageRatio*100)
			for _, w := range result.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reschedule, "reschedule", false, "discard and regenerate future days")
	cmd.Flags().BoolVar(&includeMissedItems, "include-missed", true, "boost urgency for missed items")
	return cmd
}

func (a *App) planShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current plan version's days and items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureStore(); err != nil {
				return err
			}
			days, items, err := a.plans.CurrentVersionDays(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			if len(days) == 0 {
				fmt.Println("no plan found")
				return nil
			}
			byDay := map[string][]models.StudyPlanItem{}
			for _, it := range items {
				byDay[it.DayID] = append(byDay[it.DayID], it)
			}
			for _, d := range days {
				fmt.Printf("%s  %.1fh  off=%v\n", d.Date.Format("2006-01-02"), d.TotalHours, d.IsOffDay)
				for _, it := range byDay[d.ID] {
					fmt.Printf("    topic=%s course=%s %.2fh review=%v\n", it.TopicID, it.CourseID, it.AllocatedHours, it.IsReview)
				}
			}
			return nil
		},
	}
}
