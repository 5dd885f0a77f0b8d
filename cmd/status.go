package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kaskra/MLGV/internal/batch"
	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobStatus mirrors the fields of the status and list responses we display.
type jobStatus struct {
	ID             string       `json:"id"`
	State          string       `json:"state"`
	Config         batch.Config `json:"config"`
	Frames         int          `json:"frames"`
	Processed      int          `json:"processed"`
	OutputDir      string       `json:"outputDir"`
	HasGroundTruth bool         `json:"hasGroundTruth"`
	MeanEPE        float64      `json:"meanEpe"`
	MeanD1         float64      `json:"meanD1"`
	Elapsed        float64      `json:"elapsed"`
	FPS            float64      `json:"fps"`
	Error          string       `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func fetchJSON(url string, v any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(url string) error {
	var jobs []jobStatus
	if _, err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job.ID)
		fmt.Printf("  State: %s\n", job.State)
		fmt.Printf("  Input: %s\n", job.Config.InputDir)
		fmt.Printf("  Window size: %d\n", job.Config.WindowSize)
		fmt.Printf("  Frames: %d/%d\n", job.Processed, job.Frames)
		if job.HasGroundTruth && job.State == "completed" {
			fmt.Printf("  Mean D1: %.2f%%\n", 100*job.MeanD1)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	var status jobStatus
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Job: %s\n", status.ID)
	fmt.Printf("State: %s\n", status.State)
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  Input: %s\n", status.Config.InputDir)
	fmt.Printf("  Output: %s\n", status.OutputDir)
	fmt.Printf("  Window size: %d\n", status.Config.WindowSize)
	fmt.Printf("  Max disparity: %d\n", status.Config.MaxDisparity)
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Frames: %d/%d\n", status.Processed, status.Frames)
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.FPS > 0 {
		fmt.Printf("  Throughput: %.2f frames/sec\n", status.FPS)
	}
	if status.HasGroundTruth && status.State == "completed" {
		fmt.Printf("  Mean EPE: %.3f px\n", status.MeanEPE)
		fmt.Printf("  Mean D1: %.2f%%\n", 100*status.MeanD1)
	}

	if status.Error != "" {
		fmt.Printf("\nError: %s\n", status.Error)
	}

	return nil
}
