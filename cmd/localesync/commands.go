package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"localesync/internal/api"
	"localesync/internal/change"
	"localesync/internal/config"
	"localesync/internal/coverage"
	"localesync/internal/syncer"
	"localesync/internal/workspace"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConfig = `# localesync configuration
locales:
  dir: locales
  style: directory   # <dir>/<locale>/<namespace>.json; "file" for <dir>/<locale>.json
  source_locales: [en]
provider:
  name: libre
  libre:
    base_url: http://localhost:5000
exclude: []
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			path := filepath.Join(dir, config.FileName)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Println("Wrote", path)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var noAPI bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch locale files and translate new strings as they appear",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, logger, workspace.Local{}, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return a.orch.Start(ctx)
			})

			if !noAPI {
				srv := &http.Server{
					Addr: cfg.Server.Addr,
					Handler: api.NewHandler(api.Deps{
						Board:    a.board,
						Content:  a.content,
						Locks:    a.locks,
						Coverage: a.coverage,
						Toggle:   a.orch,
						Logger:   logger,
					}).Routes(),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					logger.Info("starting server", zap.String("address", cfg.Server.Addr))
					if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("server failed: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			fmt.Printf("Watching %s\n", a.layout.Root)
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "Do not serve the status API")
	return cmd
}

func newSyncCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync <file>",
		Short: "Fill in what other locales are missing from one locale file",
		Long: `Treats every string of the given locale file as new and translates it into
each sibling locale where that string is missing or empty. With --dry-run
nothing is written; the files that would change are printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			var fs workspace.FileSystem = workspace.Local{}
			var mem *workspace.Memory
			if dryRun {
				mem = workspace.NewMemory(workspace.Local{})
				fs = mem
			}

			a, err := newApp(cfg, logger, fs, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.syncFile(cmd.Context(), path)
			if result != nil {
				printResult(result, dryRun)
			}
			if err != nil {
				return err
			}

			if mem != nil {
				for _, p := range mem.Writes() {
					data, _ := mem.ReadFile(p)
					color.New(color.FgCyan).Printf("\n--- %s\n", a.rel(p))
					fmt.Print(string(data))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would be written instead of writing")
	return cmd
}

// syncFile runs the locale chain for path against an empty baseline
func (a *app) syncFile(ctx context.Context, path string) (*syncer.Result, error) {
	if category, ok := a.classifier.Classify(path); !ok || category != localeCategory {
		return nil, fmt.Errorf("%s is not a locale file under %s", path, a.layout.Root)
	}
	if err := a.orch.Scan(); err != nil {
		return nil, err
	}
	// Scan skips files it cannot load; the file asked for must load
	if err := a.orch.Track(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	a.coverage.Refresh()

	raw, err := a.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Every string counts as added
	a.content.Delete(path)

	cc := &change.Context{
		Path:     path,
		Category: localeCategory,
		Raw:      raw,
		EventID:  uuid.NewString(),
	}
	_, err = a.chains.Get(localeCategory).Execute(ctx, cc)

	var result *syncer.Result
	if v, ok := cc.Get(syncer.ResultKey); ok {
		result = v.(*syncer.Result)
	}
	if err != nil {
		return result, fmt.Errorf("sync failed: %w", err)
	}
	return result, nil
}

func (a *app) rel(path string) string {
	if rel, err := filepath.Rel(a.cfg.Root, path); err == nil {
		return rel
	}
	return path
}

func printResult(r *syncer.Result, dryRun bool) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	verb := "written"
	if dryRun {
		verb = "would write"
	}
	fmt.Printf("%s (%s): %d strings, %d translations\n", r.Path, r.Locale, r.Relevant, r.Translated)
	for _, p := range r.Written {
		fmt.Printf("  %s %s\n", green(verb), p)
	}

	skipped := make([]string, 0, len(r.Skipped))
	for p := range r.Skipped {
		skipped = append(skipped, p)
	}
	sort.Strings(skipped)
	for _, p := range skipped {
		fmt.Printf("  %s %s (%s)\n", yellow("skipped"), p, r.Skipped[p])
	}
}

func newMissingCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "missing [namespace]",
		Short: "List keys that some locales lack",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, logger, workspace.Local{}, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.orch.Scan(); err != nil {
				return err
			}
			a.coverage.Refresh()

			reports := a.coverage.Reports()
			if len(args) == 1 {
				r, ok := a.coverage.Report(args[0])
				if !ok {
					return fmt.Errorf("namespace not found: %s", args[0])
				}
				reports = []coverage.Report{r}
			}

			incomplete := printReports(reports)
			if check && incomplete > 0 {
				return fmt.Errorf("%d namespaces have missing keys", incomplete)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Exit with an error when any key is missing")
	return cmd
}

func printReports(reports []coverage.Report) int {
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	incomplete := 0
	for _, r := range reports {
		if r.Complete() {
			fmt.Printf("%s %s (%d keys, %s)\n", green("✓"), r.Namespace, r.Keys, strings.Join(r.Locales, ", "))
			continue
		}
		incomplete++
		fmt.Printf("%s %s (%d keys)\n", red("✗"), r.Namespace, r.Keys)
		for _, loc := range r.Locales {
			if keys := r.Missing[loc]; len(keys) > 0 {
				fmt.Printf("    %s: %s\n", loc, strings.Join(keys, ", "))
			}
		}
	}
	return incomplete
}
