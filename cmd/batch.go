package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	batchConcurrency int
	batchOutDir      string
)

var batchCmd = &cobra.Command{
	Use:   "batch <file-or-dir>...",
	Short: "Extract citations from multiple documents",
	Long:  "Processes each document file independently and writes one JSON result per input. Directory arguments are expanded to the files they contain. A failed document is logged and skipped, never aborts the batch.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if batchOutDir != "" {
			if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
				return eris.Wrapf(err, "create output dir %s", batchOutDir)
			}
		}

		paths, err := expandInputs(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.New("no input documents found")
		}

		zap.L().Info("processing batch",
			zap.Int("documents", len(paths)),
			zap.Int("concurrency", batchConcurrency),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)

		var succeeded, failed atomic.Int64

		for _, path := range paths {
			g.Go(func() error {
				log := zap.L().With(zap.String("document", path))

				if err := processOne(gctx, env, path); err != nil {
					failed.Add(1)
					log.Error("document failed", zap.Error(err))
					return nil // don't abort batch on individual failure
				}

				succeeded.Add(1)
				log.Info("document complete")
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

// expandInputs flattens directory arguments into the document files they
// contain. Hidden files and nested directories are skipped.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "read dir %s", arg)
		}
		for _, e := range entries {
			if e.IsDir() || e.Name()[0] == '.' {
				continue
			}
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	return paths, nil
}

func processOne(ctx context.Context, env *pipelineEnv, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read document")
	}

	result, err := env.Pipeline.Process(ctx, string(b))
	if err != nil {
		return eris.Wrap(err, "process")
	}

	if batchOutDir == "" {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(result)
	}

	base := filepath.Base(path)
	out := filepath.Join(batchOutDir, base[:len(base)-len(filepath.Ext(base))]+".json")
	f, err := os.Create(out)
	if err != nil {
		return eris.Wrapf(err, "create %s", out)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max documents processed in parallel")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "directory for per-document JSON results (default: stdout)")
	rootCmd.AddCommand(batchCmd)
}
