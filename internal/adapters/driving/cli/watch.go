package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/leasequery/internal/connectors/filesystem"
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/services"
	"github.com/custodia-labs/leasequery/internal/logger"
)

var (
	watchScanExisting bool
	watchRecursive    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory for new lease files",
	Long: `Watch a directory for new or updated lease documents and queue them
for processing. Without --auto, detected files are announced and can be
processed with 'leasequery process'. With --auto, each admitted file is
processed in the given mode, one at a time and in arrival order.

The directory defaults to watch.dir from the configuration. Successfully
processed files are moved to --processed-dir when it is set.

Examples:
  leasequery watch ./inbox
  leasequery watch ./inbox --auto full --processed-dir ./done`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("auto", "", "process admitted files automatically in this mode (full, clause_only)")
	watchCmd.Flags().String("processed-dir", "", "move processed files to this directory")
	watchCmd.Flags().BoolVar(&watchScanExisting, "scan-existing", false, "queue files already in the directory")
	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", false, "watch subdirectories")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	switch {
	case ingestionService == nil:
		return notConfigured("ingestion")
	case registryService == nil:
		return notConfigured("registry")
	case notificationService == nil:
		return notConfigured("notification")
	case settingsService == nil:
		return notConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	watch := settings.Watch

	dir := watch.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("%w: no directory given and watch.dir is not set", domain.ErrInvalidInput)
	}
	if dir, err = filesystem.ResolvePath(dir); err != nil {
		return err
	}
	if watch.AutoMode != "" && !watch.AutoMode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, watch.AutoMode)
	}

	var exclude []string
	if watch.ProcessedDir != "" {
		exclude = append(exclude, watch.ProcessedDir)
	}

	watcher := filesystem.New(dir, loaderRegistry, filesystem.Options{
		ScanExisting: watchScanExisting,
		Recursive:    watchRecursive,
		Exclude:      exclude,
		OnRemoved:    registryService.Abandon,
	})
	if err := watcher.Validate(); err != nil {
		return err
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := cmd.OutOrStdout()
	s := stylesFor(w)
	fmt.Fprintf(w, "Watching %s %s\n", s.Title(dir), s.Muted("(Ctrl+C to stop)"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(ctx, ingestionService)
	})

	if watch.AutoMode != "" {
		fmt.Fprintf(w, "Auto processing: %s\n", watch.AutoMode.Description())
		proc := services.NewAutoProcessor(watch.AutoMode, registryService, ingestionService, notificationService,
			func(r *domain.ProcessResult) { printWatchResult(w, r) })
		g.Go(func() error {
			return proc.Start(ctx)
		})
	} else {
		notifications, cancel := notificationService.Subscribe(DefaultNotificationBuffer)
		defer cancel()
		g.Go(func() error {
			return announce(ctx, w, notifications)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("Watcher stopped")
		return nil
	}
	return err
}

// DefaultNotificationBuffer is the subscription buffer of the watch command.
const DefaultNotificationBuffer = 16

func announce(ctx context.Context, w io.Writer, notifications <-chan domain.Notification) error {
	s := stylesFor(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if jsonOutput {
				if err := writeJSONLine(w, n); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(w, "%s %s\n", s.Title("New file:"), n.FileName)
		}
	}
}

func printWatchResult(w io.Writer, r *domain.ProcessResult) {
	if jsonOutput {
		if err := writeJSONLine(w, r); err != nil {
			logger.Warn("Failed to write result: %v", err)
		}
		return
	}
	printProcessResult(w, r)
}
