package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/brightpath/studyplan-core/internal/dto"
	"github.com/brightpath/studyplan-core/internal/models"
	"github.com/brightpath/studyplan-core/pkg/jobs"
)

// bulkJob is one manifest line: a course to extract against a syllabus
// text file, handed to the worker pool as a jobs.Job payload.
type bulkJob struct {
	courseID string
	textPath string
}

// bulkOutcome is recorded once per manifest line after its single attempt;
// the handler never asks jobs.Queue to retry, so exactly one outcome is
// recorded per job.
type bulkOutcome struct {
	job bulkJob
	err error
}

func (a *App) bulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Run extraction over many courses concurrently",
	}
	cmd.AddCommand(a.bulkExtractCmd())
	return cmd
}

func (a *App) bulkExtractCmd() *cobra.Command {
	var (
		manifestPath string
		workers      int
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract topics for every (course,syllabus-file) pair in a manifest",
		Long: `Reads a manifest of "courseID,path/to/syllabus.txt" lines, one per
course, and runs extraction for each concurrently using a bounded worker
pool. Never touches the HTTP surface; intended for operators backfilling
or re-running extraction across many courses at once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureExtraction(); err != nil {
				return err
			}
			jobList, err := readManifest(manifestPath)
			if err != nil {
				return err
			}
			if len(jobList) == 0 {
				fmt.Println("manifest is empty")
				return nil
			}

			var (
				mu      sync.Mutex
				results []bulkOutcome
				wg      sync.WaitGroup
			)
			wg.Add(len(jobList))

			queue := newJobQueue(workers, func(ctx context.Context, j jobs.Job) error {
				defer wg.Done()
				bj := j.Payload.(bulkJob)
				outcome := bulkOutcome{job: bj}
				outcome.err = a.runExtractionJob(ctx, bj)
				mu.Lock()
				results = append(results, outcome)
				mu.Unlock()
				return nil
			})
			queue.Start(cmd.Context())
			defer queue.Stop()

			for i, bj := range jobList {
				if err := queue.Enqueue(jobs.Job{ID: fmt.Sprintf("bulk-%d", i), Type: "extract", Payload: bj}); err != nil {
					return fmt.Errorf("enqueuing %s: %w", bj.courseID, err)
				}
			}
			wg.Wait()

			var failed int
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Printf("FAIL  course=%s file=%s: %v\n", r.job.courseID, r.job.textPath, r.err)
					continue
				}
				fmt.Printf("OK    course=%s file=%s\n", r.job.courseID, r.job.textPath)
			}
			fmt.Printf("%d/%d succeeded\n", len(results)-failed, len(results))
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the manifest file (required)")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent extraction workers")
	cmd.MarkFlagRequired("manifest") //nolint:errcheck
	return cmd
}

func (a *App) runExtractionJob(ctx context.Context, bj bulkJob) error {
	text, err := os.ReadFile(bj.textPath)
	if err != nil {
		return fmt.Errorf("reading syllabus text: %w", err)
	}
	reqCtx := models.RequestContext{UserID: a.userID, Elevated: true}
	req := dto.ExtractRequest{
		CourseID: bj.courseID,
		Text:     string(text),
		Mode:     models.ExtractionModeReplace,
	}
	_, err = a.extraction.Extract(ctx, reqCtx, req)
	return err
}

func readManifest(path string) ([]bulkJob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	var jobList []bulkJob
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed manifest line %q: expected courseID,path", line)
		}
		jobList = append(jobList, bulkJob{
			courseID: strings.TrimSpace(parts[0]),
			textPath: strings.TrimSpace(parts[1]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return jobList, nil
}
