package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/extract"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

var ingestSession string

var ingestCmd = &cobra.Command{
	Use:   "ingest <pattern>...",
	Short: "Ingest documents matching glob patterns",
	Long: `Ingest PDF, text and Markdown files into the vector store. Patterns support
** for recursive matching. Re-ingesting a file replaces its previous chunks.

Examples:
  ragchat ingest handbook.pdf
  ragchat ingest 'docs/**/*.{pdf,md}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSession, "session", "",
		"Session id to record the last ingested source under (default: new id)")
	rootCmd.AddCommand(ingestCmd)
}

// expandPatterns resolves glob patterns to a sorted, de-duplicated file list,
// keeping only files reg can extract.
func expandPatterns(patterns []string, reg *extract.Registry) ([]string, []string, error) {
	seen := make(map[string]struct{})
	var files, skipped []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			seen[m] = struct{}{}
			if reg.Supports(m) {
				files = append(files, m)
			} else {
				skipped = append(skipped, m)
			}
		}
	}
	slices.Sort(files)
	slices.Sort(skipped)
	return files, skipped, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	files, skipped, err := expandPatterns(args, a.extractor)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("skipping unsupported file: "+s))
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported files match %v", args)
	}

	sessionID := ingestSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	var (
		results []ingestuc.Result
		failed  int
	)
	for _, path := range files {
		bar.Describe("[cyan]Ingesting[reset] " + filepath.Base(path))

		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			failed++
			logger.Error("read file", zap.String("path", path), zap.Error(err))
			_ = bar.Add(1)
			continue
		}

		res, err := a.ingest.Ingest(ctx, ingestuc.Request{
			Filename:  filepath.Base(path),
			Data:      data,
			SessionID: sessionID,
		})
		if err != nil {
			failed++
			logger.Error("ingest file", zap.String("path", path), zap.Error(err))
		} else {
			results = append(results, res)
		}
		_ = bar.Add(1)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Ingestion complete"))
	for _, r := range results {
		line := fmt.Sprintf("  %s  %d chunks  %s", r.SourceName, r.AddedChunks, mutedStyle.Render(r.ContentHash))
		if r.Note != "" {
			line += "  " + warnStyle.Render(r.Note)
		}
		fmt.Fprintln(out, line)
	}

	total, err := a.store.Count(ctx)
	if err == nil {
		fmt.Fprintf(out, "\n  Collection size: %d\n", total)
	}
	fmt.Fprintf(out, "  Session: %s\n", sessionID)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
