package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/service"
)

// withClient opens the client for one command run and closes it afterwards.
func withClient(ctx context.Context, opts *RootOptions, fn func(*client) error) error {
	c, err := openClient(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// NewVenuesCommand creates the venues command.
func NewVenuesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "venues",
		Short: "List active venues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, rootOpts.Config)
			if err != nil {
				return err
			}
			defer a.Close()

			venues, err := a.venues.ListVenues(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "list venues", err)
			}
			return emit(cmd.OutOrStdout(), rootOpts.Format, venues, func(w io.Writer) error {
				return RenderVenues(w, venues)
			})
		},
	}
}

// CheckinOptions holds flags for the checkin command.
type CheckinOptions struct {
	*RootOptions
	Request model.CheckinRequest
}

// NewCheckinCommand creates the checkin command.
func NewCheckinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Check in at a venue",
		Long: `Check in at a venue and store the session locally.

Example:
  checkedin checkin --venue 1 --nickname luna7 --gender female \
    --interested-in men --description "Camisa roja, junto a la barra"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				return runCheckin(cmd, opts, c)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.Request.VenueID, "venue", 0, "venue id (see \"checkedin venues\")")
	cmd.Flags().StringVar(&opts.Request.Nickname, "nickname", "", "nickname shown to others")
	cmd.Flags().StringVar(&opts.Request.Instagram, "instagram", "", "optional Instagram handle")
	cmd.Flags().StringVar(&opts.Request.Gender, "gender", "", "your gender (male|female)")
	cmd.Flags().StringVar(&opts.Request.InterestedIn, "interested-in", "", "who you want to meet (men|women)")
	cmd.Flags().StringVar(&opts.Request.Description, "description", "", "how others can recognise you")

	return cmd
}

func runCheckin(cmd *cobra.Command, opts *CheckinOptions, c *client) error {
	ctx := cmd.Context()

	stored, err := c.store.Get(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "session store", err)
	}
	if stored != nil {
		_, err := c.checkins.Restore(ctx, *stored)
		switch {
		case err == nil:
			return NewExitError(ExitFailure,
				fmt.Sprintf("Ya tienes un check-in activo como %s; haz check-out primero.", stored.Nickname))
		case !errors.Is(err, service.ErrNoActiveCheckin):
			return WrapExitError(ExitCommandError, "restore session", err)
		}
		if err := c.store.Clear(ctx); err != nil {
			return WrapExitError(ExitCommandError, "session store", err)
		}
	}

	sess, err := c.checkins.CheckIn(ctx, opts.Request)
	if err != nil {
		return refusal(err)
	}
	if err := c.store.Set(ctx, sess); err != nil {
		return WrapExitError(ExitCommandError, "save session", err)
	}
	return emit(cmd.OutOrStdout(), opts.Format, sess, func(w io.Writer) error {
		return RenderSession(w, sess)
	})
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				ctx := cmd.Context()
				sess, err := c.requireSession(ctx)
				if err != nil {
					return err
				}
				if err := c.store.Set(ctx, sess); err != nil {
					return WrapExitError(ExitCommandError, "save session", err)
				}
				return emit(cmd.OutOrStdout(), rootOpts.Format, sess, func(w io.Writer) error {
					return RenderSession(w, sess)
				})
			})
		},
	}
}

// NewMatchesCommand creates the matches command.
func NewMatchesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "List compatible people at your venue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				ctx := cmd.Context()
				sess, err := c.requireSession(ctx)
				if err != nil {
					return err
				}
				matches, err := c.checkins.Matches(ctx, sess)
				if err != nil {
					return WrapExitError(ExitCommandError, "list matches", err)
				}
				return emit(cmd.OutOrStdout(), rootOpts.Format, matches, func(w io.Writer) error {
					return RenderMatches(w, matches)
				})
			})
		},
	}
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <nickname> <text...>",
		Short: "Send a short message to a match",
		Long: `Send a message of at most 150 characters. Longer text is truncated.
Each person can receive at most 3 messages from you.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				ctx := cmd.Context()
				sess, err := c.requireSession(ctx)
				if err != nil {
					return err
				}
				to := args[0]
				msg, quota, err := c.messages.Send(ctx, sess, to, strings.Join(args[1:], " "))
				if err != nil {
					return refusal(err)
				}
				resp := model.SendMessageResponse{Message: msg, Quota: quota}
				return emit(cmd.OutOrStdout(), rootOpts.Format, resp, func(w io.Writer) error {
					if _, err := fmt.Fprintf(w, "Enviado a %s.\n", msg.ToNickname); err != nil {
						return err
					}
					return RenderQuota(w, msg.ToNickname, quota)
				})
			})
		},
	}
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <nickname>",
		Short: "Show the messages someone sent you and mark them read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				ctx := cmd.Context()
				sess, err := c.requireSession(ctx)
				if err != nil {
					return err
				}
				msgs, err := c.messages.Conversation(ctx, sess, args[0])
				if err != nil {
					return refusal(err)
				}
				return emit(cmd.OutOrStdout(), rootOpts.Format, msgs, func(w io.Writer) error {
					return RenderMessages(w, msgs)
				})
			})
		},
	}
}

// NewInboxCommand creates the inbox command.
func NewInboxCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Show the latest messages sent to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				ctx := cmd.Context()
				sess, err := c.requireSession(ctx)
				if err != nil {
					return err
				}
				msgs, err := c.messages.Inbox(ctx, sess)
				if err != nil {
					return WrapExitError(ExitCommandError, "inbox", err)
				}
				return emit(cmd.OutOrStdout(), rootOpts.Format, msgs, func(w io.Writer) error {
					return RenderMessages(w, msgs)
				})
			})
		},
	}
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Leave the venue",
		Long: `Deactivate your checkin. Refused while the venue's minimum stay has
not elapsed; the local session is kept in that case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(c *client) error {
				return runCheckout(cmd, rootOpts, c)
			})
		},
	}
}

func runCheckout(cmd *cobra.Command, opts *RootOptions, c *client) error {
	ctx := cmd.Context()

	stored, err := c.store.Get(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "session store", err)
	}
	if stored == nil {
		return NewExitError(ExitCommandError, "no hay sesión activa; usa \"checkedin checkin\" primero")
	}

	out, err := c.checkins.Checkout(ctx, *stored)
	if err != nil {
		return WrapExitError(ExitCommandError, "checkout", err)
	}
	if out.Status == model.CheckoutCompleted {
		if err := c.store.Clear(ctx); err != nil {
			return WrapExitError(ExitCommandError, "clear session", err)
		}
	}

	if err := emit(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
		return RenderCheckout(w, out)
	}); err != nil {
		return err
	}
	if out.Status == model.CheckoutTooEarly {
		return &ExitError{Code: ExitFailure, Message: "minimum stay not reached"}
	}
	return nil
}
