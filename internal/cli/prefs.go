package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brightpath/studyplan-core/internal/models"
)

func (a *App) prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "View or set a user's schedule preferences",
	}
	cmd.AddCommand(a.prefsShowCmd())
	cmd.AddCommand(a.prefsSetCmd())
	return cmd
}

func (a *App) prefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active user's schedule preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureStore(); err != nil {
				return err
			}
			p, err := a.prefs.GetByUser(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			fmt.Printf("daily_capacity=%.1fh weekly_off_days=%v blackout_dates=%v\n",
				p.DailyCapacity, p.WeeklyOffDays, p.BlackoutDates)
			return nil
		},
	}
}

func (a *App) prefsSetCmd() *cobra.Command {
	var (
		dailyCapacity float64
		offDays       string
		blackout      string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Upsert the active user's schedule preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureStore(); err != nil {
				return err
			}
			prefs := models.UserSchedulePreferences{
				UserID:        a.userID,
				DailyCapacity: dailyCapacity,
				WeeklyOffDays: splitNonEmpty(offDays),
				BlackoutDates: splitNonEmpty(blackout),
			}
			if err := a.prefs.Upsert(cmd.Context(), prefs); err != nil {
				return err
			}
			fmt.Println("preferences saved")
			return nil
		},
	}
	cmd.Flags().Float64Var(&dailyCapacity, "daily-capacity", models.DefaultDailyCapacity, "hours available per study day")
	cmd.Flags().StringVar(&offDays, "off-days", "", "comma-separated weekday names, e.g. saturday,sunday")
	cmd.Flags().StringVar(&blackout, "blackout", "", "comma-separated YYYY-MM-DD dates")
	return cmd
}

func splitNonEmpty(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
