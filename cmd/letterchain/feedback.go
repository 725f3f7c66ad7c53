package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/server"
)

var (
	feedbackFlags      documentFlags
	feedbackText       string
	feedbackPrevious   string
	feedbackResultPath string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Revise a previous cover letter using your feedback",
	Long: "Feedback regenerates a letter from the previous draft and your comments. Pass --result with the " +
		"JSON output of an earlier run to reuse its parsed profiles and matches instead of parsing again.",
	RunE: runFeedback,
}

func init() {
	addDocumentFlags(feedbackCmd, &feedbackFlags)
	feedbackCmd.Flags().StringVarP(&feedbackText, "feedback", "f", "", "What to change in the letter (required)")
	feedbackCmd.Flags().StringVarP(&feedbackPrevious, "previous", "p", "", "Path to the previous letter text")
	feedbackCmd.Flags().StringVar(&feedbackResultPath, "result", "", "Path to the JSON result of a previous run")
	rootCmd.AddCommand(feedbackCmd)
}

// loadPrevious returns the previous letter and, from --result, its snapshot.
func loadPrevious() (string, *pipeline.Snapshot, error) {
	var letter string
	var snapshot *pipeline.Snapshot

	if feedbackResultPath != "" {
		data, err := os.ReadFile(feedbackResultPath)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read result file: %w", err)
		}
		var prev pipeline.Result
		if err := json.Unmarshal(data, &prev); err != nil {
			return "", nil, fmt.Errorf("failed to parse result file: %w", err)
		}
		letter = prev.CoverLetter
		snapshot = &prev.Snapshot
	}
	if feedbackPrevious != "" {
		data, err := os.ReadFile(feedbackPrevious)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read previous letter: %w", err)
		}
		letter = string(data)
	}
	if strings.TrimSpace(letter) == "" {
		return "", nil, fmt.Errorf("either --previous or --result with a cover letter is required")
	}
	return letter, snapshot, nil
}

func runFeedback(cmd *cobra.Command, _ []string) error {
	f := &feedbackFlags
	if strings.TrimSpace(feedbackText) == "" {
		return fmt.Errorf("--feedback is required")
	}
	if err := f.validate(); err != nil {
		return err
	}
	previous, snapshot, err := loadPrevious()
	if err != nil {
		return err
	}
	resume, job, err := f.readDocuments()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := server.FeedbackRequest{
		GenerateRequest: server.GenerateRequest{ResumeText: resume, JobText: job, JobURL: f.jobURL, Tone: f.tone},
		PreviousLetter:  previous,
		Feedback:        feedbackText,
		Snapshot:        snapshot,
	}

	var res *pipeline.Result
	if f.remote != "" {
		res, err = newRemote(f.remote).Feedback(ctx, req, progressPrinter(cmd.ErrOrStderr(), f.verbose))
	} else {
		res, err = feedbackLocal(ctx, cmd, f, req)
	}
	if err != nil {
		return err
	}

	reportResult(cmd.ErrOrStderr(), f, res)
	return writeResult(cmd.OutOrStdout(), f, res)
}

func feedbackLocal(ctx context.Context, cmd *cobra.Command, f *documentFlags, req server.FeedbackRequest) (*pipeline.Result, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if f.browser {
		cfg.UseBrowser = true
	}
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if req.JobText == "" {
		req.JobText, err = fetchJob(ctx, a, req.JobURL, cmd.ErrOrStderr(), f.verbose)
		if err != nil {
			return nil, err
		}
	}

	in := pipeline.FeedbackInput{
		Input:          pipeline.Input{ResumeText: req.ResumeText, JobText: req.JobText, Tone: req.Tone},
		PreviousLetter: req.PreviousLetter,
		Feedback:       req.Feedback,
		Snapshot:       req.Snapshot,
	}
	return a.controller.Feedback(ctx, in, progressPrinter(cmd.ErrOrStderr(), f.verbose))
}
