package cli

import (
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
	"github.com/Shivanand-hulikatti/checkedin/internal/session"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow matches and incoming messages live",
		Long: `Print the match list whenever it changes and every message sent to you,
until interrupted. Without REDIS_URL only the periodic refresh applies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				return runWatch(cmd, rootOpts, c)
			})
		},
	}
}

func runWatch(cmd *cobra.Command, opts *RootOptions, c *client) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	write := func(data any, text func(io.Writer) error) {
		mu.Lock()
		defer mu.Unlock()
		if err := emit(out, opts.Format, data, text); err != nil {
			logrus.WithError(err).Warn("Failed to write output")
		}
	}

	ctrl := session.NewController(c.checkins, c.broker,
		session.WithInterval(opts.Config.Rules.RefreshInterval),
		session.OnMatches(func(matches []model.Match) {
			write(matches, func(w io.Writer) error {
				if _, err := fmt.Fprintln(w, "---"); err != nil {
					return err
				}
				return RenderMatches(w, matches)
			})
		}),
		session.OnMessage(func(ev realtime.Event) {
			write(ev, func(w io.Writer) error {
				return RenderIncoming(w, ev)
			})
		}),
		session.OnError(func(err error) {
			logrus.WithError(err).Warn("Could not refresh matches")
		}),
	)

	if err := ctrl.Start(ctx, sess); err != nil {
		return WrapExitError(ExitCommandError, "watch", err)
	}
	defer ctrl.Stop()

	write(sess, func(w io.Writer) error {
		return RenderSession(w, sess)
	})
	<-ctx.Done()
	return nil
}
