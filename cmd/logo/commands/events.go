package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/internal/events"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// NewEventsCommand creates the events command group.
func NewEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow change events",
		Long:  "Follow the change events clients publish to NATS after successful writes",
	}

	cmd.AddCommand(newEventsWatchCommand())

	return cmd
}

func newEventsWatchCommand() *cobra.Command {
	var (
		prefix string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "watch [ENTITY]",
		Short: "Print change events as they arrive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			natsURL, err := resolveNATSURL()
			if err != nil {
				return err
			}

			entity := ""
			if len(args) == 1 {
				entity = args[0]
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			watcher := &eventWatcher{out: newPrinter(cmd), limit: limit, done: stop}
			logger := newLogger()
			subject := events.Subject(prefix, entity)

			subscription, err := events.Subscribe(natsURL, subject, watcher.handle, func(err error) {
				logger.Warn("failed to decode change event", map[string]interface{}{"error": err.Error()})
			})
			if err != nil {
				return err
			}

			defer func() { _ = subscription.Close() }()

			logger.Info("watching change events", map[string]interface{}{"subject": subject})

			<-ctx.Done()

			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", constants.DefaultEventSubjectPrefix, "subject prefix")
	cmd.Flags().IntVar(&limit, "limit", 0, "exit after this many events")

	return cmd
}

func resolveNATSURL() (string, error) {
	if natsURL := viper.GetString("nats_url"); natsURL != "" {
		return natsURL, nil
	}

	config, err := loadConfig()
	if err != nil {
		return "", err
	}

	if config.NATSURL == "" {
		return "", constants.ErrNoNATSURL
	}

	return config.NATSURL, nil
}

// eventWatcher prints events delivered on the subscription goroutine.
type eventWatcher struct {
	mu    sync.Mutex
	out   *printer
	limit int
	seen  int
	done  func()
}

func (w *eventWatcher) handle(event logo.ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.limit > 0 && w.seen >= w.limit {
		return
	}

	w.seen++

	if w.out.format == constants.FormatJSON {
		encoded, err := json.Marshal(event)
		if err == nil {
			_, _ = fmt.Fprintln(w.out.writer, string(encoded))
		}
	} else {
		_, _ = fmt.Fprintf(w.out.writer, "%s  %-10s %-12s %-6s %d %s\n",
			event.Time.Format(time.RFC3339), event.Entity, event.Action, event.Method, event.StatusCode, event.Path)
	}

	if w.limit > 0 && w.seen >= w.limit {
		w.done()
	}
}
