package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pynay/LetterChain/internal/extraction"
	"github.com/pynay/LetterChain/internal/fetch"
	"github.com/pynay/LetterChain/internal/observability"
	"github.com/pynay/LetterChain/internal/pipeline"
)

// documentFlags are the input flags shared by generate and feedback.
type documentFlags struct {
	resumePath string
	jobPath    string
	jobURL     string
	tone       string
	outPath    string
	asJSON     bool
	verbose    bool
	browser    bool
	remote     string
}

func (f *documentFlags) validate() error {
	if f.resumePath == "" {
		return fmt.Errorf("--resume is required")
	}
	if f.jobPath == "" && f.jobURL == "" {
		return fmt.Errorf("either --job or --job-url is required")
	}
	if f.jobPath != "" && f.jobURL != "" {
		return fmt.Errorf("--job and --job-url are mutually exclusive")
	}
	if f.jobURL != "" {
		if err := fetch.ValidateURL(f.jobURL); err != nil {
			return err
		}
	}
	return nil
}

// readDocuments extracts the resume and, when given as a file, the job posting.
func (f *documentFlags) readDocuments() (resume, job string, err error) {
	extractor := extraction.New()
	resume, err = extractor.ExtractFile(f.resumePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read resume: %w", err)
	}
	if f.jobPath != "" {
		job, err = extractor.ExtractFile(f.jobPath)
		if err != nil {
			return "", "", fmt.Errorf("failed to read job posting: %w", err)
		}
	}
	return resume, job, nil
}

// fetchJob fetches the job posting text for local runs.
func fetchJob(ctx context.Context, a *app, url string, progress io.Writer, verbose bool) (string, error) {
	if verbose {
		_, _ = fmt.Fprintf(progress, "→ Fetching job posting from %s\n", url)
	}
	posting, err := a.postings.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if verbose {
		how := "http"
		if posting.Rendered {
			how = "browser"
		}
		_, _ = fmt.Fprintf(progress, "→ Fetched %d characters (%s, platform %s)\n", len(posting.Text), how, posting.Platform)
	}
	return posting.Text, nil
}

// writeResult writes the letter, or the full result as JSON, to --out or stdout.
func writeResult(stdout io.Writer, f *documentFlags, res *pipeline.Result) error {
	var data []byte
	if f.asJSON {
		var err error
		data, err = json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	} else {
		data = []byte(res.CoverLetter)
	}
	if !strings.HasSuffix(string(data), "\n") {
		data = append(data, '\n')
	}

	if f.outPath == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(f.outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// progressPrinter returns the progress callback for --verbose, or nil.
func progressPrinter(w io.Writer, verbose bool) pipeline.ProgressCallback {
	if !verbose {
		return nil
	}
	printer := observability.NewPrinter(w)
	return printer.PrintEvent
}

func reportResult(stderr io.Writer, f *documentFlags, res *pipeline.Result) {
	if f.verbose {
		observability.NewPrinter(stderr).PrintResult(res)
		return
	}
	if res.BestEffort {
		_, _ = fmt.Fprintf(stderr, "Warning: letter did not pass validation after %d attempts; returning the last draft\n", res.Attempts)
	}
}
