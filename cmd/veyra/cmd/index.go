package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/veyra-dev/veyra/internal/config"
	"github.com/veyra-dev/veyra/internal/indexer"
	"github.com/veyra-dev/veyra/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		noTUI   bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory for searching",
		Long: `Index a directory to enable hybrid search over its contents.

This walks the directory honoring paths.include/paths.exclude from the
project configuration, chunks each file, generates embeddings, and
persists both the vector store and the keyword accelerator.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			return runIndex(ctx, cmd, path, offline, noTUI)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip Ollama)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, offline, noTUI bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	root, err := config.FindProjectRoot(absPath)
	if err != nil {
		root = absPath
	}

	cfg, err := config.Load(root)
	if err != nil {
		return wrapConfigError(fmt.Errorf("failed to load configuration: %w", err))
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(noTUI), ui.WithLabel(absPath)))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress renderer: %w", err)
	}
	defer func() { _ = renderer.Stop() }()

	start := time.Now()

	p, err := buildPipeline(ctx, cfg, offline)
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		return err
	}
	defer p.Close()

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "scanning " + absPath})
	files, err := scanFiles(absPath, cfg)
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		return err
	}

	stats := ui.CompletionStats{Backend: cfg.Embeddings.Provider, Model: cfg.Embeddings.Model}

	for i, f := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageEmbedding,
			Current: i + 1,
			Total:   len(files),
			Item:    f,
		})

		result, err := p.Indexer.Index(ctx, indexer.Spec{Type: indexer.SourceFile, Path: f}, nil)
		if err != nil {
			renderer.AddError(ui.ErrorEvent{Item: f, Err: err})
			stats.Errors++
			continue
		}
		for _, itemErr := range result.Errors {
			renderer.AddError(ui.ErrorEvent{Item: f, Err: itemErr, IsWarn: true})
			stats.Warnings++
		}

		stats.Items += result.ItemsIndexed
		stats.Chunks += result.ChunksCreated
	}

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StagePersisting, Message: "flushing index"})

	stats.Duration = time.Since(start)
	renderer.Complete(stats)

	return nil
}

// scanFiles walks root and returns the files passing cfg.Paths.Include (if
// set) and not matching any cfg.Paths.Exclude pattern. Symlinked
// directories are never followed.
func scanFiles(root string, cfg *config.Config) ([]string, error) {
	includes, err := compileGlobs(cfg.Paths.Include)
	if err != nil {
		return nil, err
	}
	excludes, err := compileGlobs(cfg.Paths.Exclude)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		// A leading "**/" only matches after a '/', so every path is also
		// tried with one prepended to let it match files directly under root.
		anchored := "/" + rel

		for _, ex := range excludes {
			if ex.Match(rel) || ex.Match(anchored) {
				return nil
			}
		}
		if len(includes) > 0 {
			matched := false
			for _, in := range includes {
				if in.Match(rel) || in.Match(anchored) {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}
