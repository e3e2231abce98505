// Package cli implements schedulerctl, the operator tool that runs
// extraction and plan generation against a local embedded SQLite store
// instead of the HTTP API (spec §2 row 14). Grounded in
// javiermolinar-sancho's internal/ui: a cobra.Command tree built once in
// NewApp, with per-subcommand builder methods registered via AddCommand.
package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightpath/studyplan-core/internal/repository/sqlite"
	"github.com/brightpath/studyplan-core/internal/service"
	"github.com/brightpath/studyplan-core/pkg/jobs"
	"github.com/brightpath/studyplan-core/pkg/llm"
)

// Version is set at build time.
var Version = "dev"

// App holds schedulerctl's CLI state: the cobra command tree plus every
// collaborator lazily opened against the --db path once a subcommand runs.
type App struct {
	root *cobra.Command
	logr *zap.Logger

	dbPath  string
	apiKey  string
	model   string
	userID  string

	db *sqlx.DB

	courses *sqlite.CourseRepository
	files   *sqlite.FileRepository
	runs    *sqlite.ExtractionRunRepository
	topics  *sqlite.TopicRepository
	prefs   *sqlite.PreferencesRepository
	plans   *sqlite.PlanRepository

	extraction *service.ExtractionOrchestratorService
	planner    *service.PlanGenerationService
}

// NewApp builds the schedulerctl command tree.
func NewApp() *App {
	logr, _ := zap.NewProduction()
	if logr == nil {
		logr = zap.NewNop()
	}
	a := &App{logr: logr}

	a.root = &cobra.Command{
		Use:   "schedulerctl",
		Short: "Operator CLI for the study plan scheduler core",
		Long: `schedulerctl runs extraction and plan generation against a local
embedded SQLite store, for operators diagnosing or batch-processing a
user's courses without going through the HTTP API.`,
	}

	a.root.PersistentFlags().StringVar(&a.dbPath, "db", "./schedulerctl.db", "path to the local SQLite store")
	a.root.PersistentFlags().StringVar(&a.apiKey, "api-key", os.Getenv("OPENAI_API_KEY"), "model API key (defaults to $OPENAI_API_KEY)")
	a.root.PersistentFlags().StringVar(&a.model, "model", "gpt-4o-mini", "generative model name")
	a.root.PersistentFlags().StringVar(&a.userID, "user", "operator", "user id to act as")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.courseCmd())
	a.root.AddCommand(a.extractCmd())
	a.root.AddCommand(a.planCmd())
	a.root.AddCommand(a.prefsCmd())
	a.root.AddCommand(a.bulkCmd())

	return a
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close releases the database handle, if opened.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) ensureStore() error {
	if a.db != nil {
		return nil
	}
	db, err := sqlite.Open(a.dbPath)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	a.db = db
	a.courses = sqlite.NewCourseRepository(db)
	a.files = sqlite.NewFileRepository(db)
	a.runs = sqlite.NewExtractionRunRepository(db)
	a.topics = sqlite.NewTopicRepository(db)
	a.prefs = sqlite.NewPreferencesRepository(db)
	a.plans = sqlite.NewPlanRepository(db)
	return nil
}

func (a *App) ensureExtraction() error {
	if a.extraction != nil {
		return nil
	}
	if err := a.ensureStore(); err != nil {
		return err
	}
	model := a.newModel()
	graph := service.NewTopicGraphService(uuid.NewString)
	a.extraction = service.NewExtractionOrchestratorService(
		a.courses, a.files, a.files, a.runs, a.topics, graph, model,
		service.ExtractionOrchestratorConfig{DailyQuotaPerUser: 1_000_000},
	)
	return nil
}

func (a *App) ensurePlanner() error {
	if a.planner != nil {
		return nil
	}
	if err := a.ensureStore(); err != nil {
		return err
	}
	model := a.newModel()
	calendar := service.NewCalendarService()
	feasibility := service.NewFeasibilityService()
	scheduler := service.NewSchedulerService(calendar, model, service.SchedulerConfig{
		MinDailyHoursPerCourse: 0.5,
		MaxDailyShareDefault:   0.70,
		MaxDailyShareDominant:  0.80,
		DominantShareThreshold: 0.50,
	})
	validator := service.NewScheduleValidatorService(calendar)
	a.planner = service.NewPlanGenerationService(
		a.courses, a.topics, a.prefs, a.plans, a.plans, calendar,
		feasibility, scheduler, validator,
		service.PlanGenerationConfig{HorizonCapDays: 90},
	)
	return nil
}

func (a *App) newModel() llm.GenerativeModel {
	return llm.NewOpenAIModel(a.apiKey, a.model, 0, 0, a.logr)
}

// newJobQueue adapts pkg/jobs.Queue to a bounded-concurrency bulk runner:
// the handler records its own outcome and always returns nil so Queue
// never retries a job that has already been accounted for.
func newJobQueue(workers int, handle jobs.Handler) *jobs.Queue {
	return jobs.NewQueue("schedulerctl-bulk", handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: workers * 4,
	})
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("schedulerctl %s\n", Version)
		},
	}
}
