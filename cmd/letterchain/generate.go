package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/server"
)

var generateFlags documentFlags

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a cover letter for a resume and a job posting",
	Long: "Generate writes a cover letter and validates it, retrying with the validator's issues " +
		"until it passes or the attempt cap is reached.",
	RunE: runGenerate,
}

func init() {
	addDocumentFlags(generateCmd, &generateFlags)
	rootCmd.AddCommand(generateCmd)
}

func addDocumentFlags(cmd *cobra.Command, f *documentFlags) {
	cmd.Flags().StringVarP(&f.resumePath, "resume", "r", "", "Path to the resume (.txt, .md, .html, .docx, .pdf)")
	cmd.Flags().StringVarP(&f.jobPath, "job", "j", "", "Path to the job posting")
	cmd.Flags().StringVar(&f.jobURL, "job-url", "", "URL of the job posting")
	cmd.Flags().StringVarP(&f.tone, "tone", "t", "", "Tone preset (professional, emotional, confident, creative) or free text")
	cmd.Flags().StringVarP(&f.outPath, "out", "o", "", "Write the output to this file instead of stdout")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print progress and parsed context to stderr")
	cmd.Flags().BoolVar(&f.browser, "browser", false, "Render job posting pages in a headless browser when needed")
	cmd.Flags().StringVar(&f.remote, "remote", "", "Base URL of a letterchain server to run against")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	f := &generateFlags
	if err := f.validate(); err != nil {
		return err
	}
	resume, job, err := f.readDocuments()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := server.GenerateRequest{ResumeText: resume, JobText: job, JobURL: f.jobURL, Tone: f.tone}
	var res *pipeline.Result
	if f.remote != "" {
		res, err = newRemote(f.remote).Generate(ctx, req, progressPrinter(cmd.ErrOrStderr(), f.verbose))
	} else {
		res, err = generateLocal(ctx, cmd, f, req)
	}
	if err != nil {
		return err
	}

	reportResult(cmd.ErrOrStderr(), f, res)
	return writeResult(cmd.OutOrStdout(), f, res)
}

func generateLocal(ctx context.Context, cmd *cobra.Command, f *documentFlags, req server.GenerateRequest) (*pipeline.Result, error) {
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

	in := pipeline.Input{ResumeText: req.ResumeText, JobText: req.JobText, Tone: req.Tone}
	return a.controller.Generate(ctx, in, progressPrinter(cmd.ErrOrStderr(), f.verbose))
}
