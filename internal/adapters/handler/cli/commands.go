package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

var ErrNeedsName = errors.New("no display name set: pass --name or run 'poker name <name>'")

type createOutput struct {
	SessionID string `json:"sessionId"`
	ShareLink string `json:"shareLink,omitempty"`
}

type identityOutput struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name,omitempty"`
}

func newCreateCommand(r *runner) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create [topic]",
		Short: "Create a session and become its admin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := ""
			if len(args) > 0 {
				topic = args[0]
			}
			return r.with(cmd, func(ctx context.Context, app *App, out *OutputFormatter) error {
				id, err := app.Sessions.Create(ctx, topic, name)
				if err != nil {
					return err
				}
				link := shareLink(app, id)
				return out.Success(createOutput{SessionID: id, ShareLink: link}, func(w io.Writer) {
					writeLine(w, "created session %s", id)
					if link != "" {
						writeLine(w, "share   %s", link)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name, remembered for later sessions")
	return cmd
}

func newJoinCommand(r *runner) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "join <link|id>",
		Short: "Join a session, or rejoin with a cleared vote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, args[0], func(ctx context.Context, app *App, rec ports.SessionSync, v ports.View) (ports.View, error) {
				if strings.TrimSpace(name) == "" && v.NeedsName {
					return v, ErrNeedsName
				}
				if err := rec.Join(ctx, name); err != nil {
					return v, err
				}
				return r.await(ctx, rec, func(v ports.View) bool { return v.Joined && v.MyVote == nil })
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name, remembered for later sessions")
	return cmd
}

func newVoteCommand(r *runner) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "vote <link|id> <card>",
		Short: fmt.Sprintf("Vote with one of %s", deckList()),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := domain.ParseCard(args[1])
			if err != nil {
				return fmt.Errorf("%w: choose one of %s", err, deckList())
			}
			return r.withSession(cmd, args[0], func(ctx context.Context, app *App, rec ports.SessionSync, v ports.View) (ports.View, error) {
				v, err := r.ensureJoined(ctx, rec, v, name)
				if err != nil {
					return v, err
				}
				if err := rec.Vote(string(card)); err != nil {
					return v, err
				}
				return r.await(ctx, rec, func(v ports.View) bool { return v.MyVote != nil && *v.MyVote == card })
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name used if this device has not joined yet")
	return cmd
}

func newRevealCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <link|id>",
		Short: "Reveal every vote (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, args[0], func(ctx context.Context, app *App, rec ports.SessionSync, v ports.View) (ports.View, error) {
				if err := rec.Reveal(); err != nil {
					return v, err
				}
				return r.await(ctx, rec, func(v ports.View) bool { return v.Revealed })
			})
		},
	}
}

func newResetCommand(r *runner) *cobra.Command {
	var topic string
	cmd := &cobra.Command{
		Use:   "reset <link|id>",
		Short: "Clear every vote and start a new round (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, args[0], func(ctx context.Context, app *App, rec ports.SessionSync, v ports.View) (ports.View, error) {
				if err := rec.Reset(topic); err != nil {
					return v, err
				}
				want := strings.TrimSpace(topic)
				return r.await(ctx, rec, func(v ports.View) bool {
					if v.Revealed || (want != "" && v.Topic != want) {
						return false
					}
					for _, p := range v.Participants {
						if p.HasVoted {
							return false
						}
					}
					return true
				})
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic of the next round (keeps the current one when empty)")
	return cmd
}

func newShowCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <link|id>",
		Short: "Print the current state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, args[0], func(ctx context.Context, app *App, rec ports.SessionSync, v ports.View) (ports.View, error) {
				return v, nil
			})
		},
	}
}

func newWatchCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <link|id>",
		Short: "Print the session every time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App, out *OutputFormatter) error {
				entry, err := parseSession(args[0])
				if err != nil {
					return err
				}
				rec, err := app.Sessions.Open(ctx, entry.SessionID)
				if err != nil {
					return err
				}
				defer rec.Close()

				for {
					changed := rec.Changed()
					v := rec.View()
					if v.Status != ports.StatusLoading {
						if err := printView(out, app, v); err != nil {
							return err
						}
					}
					select {
					case <-ctx.Done():
						return nil
					case <-changed:
					}
				}
			})
		},
	}
}

func newNameCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "name <name>",
		Short: "Set the display name used when joining sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Identity.SetDisplayName(ctx, strings.Join(args, " ")); err != nil {
					return err
				}
				return printIdentity(ctx, app, out)
			})
		},
	}
}

func newWhoamiCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print this device's participant id and display name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App, out *OutputFormatter) error {
				return printIdentity(ctx, app, out)
			})
		},
	}
}

// withSession opens the session named by link, waits for its first snapshot, runs fn and prints
// the view fn returns. The view is printed even when fn fails, so the user sees the current state.
func (r *runner) withSession(cmd *cobra.Command, link string, fn func(ctx context.Context, app *App, rec ports.SessionSync, v ports.View) (ports.View, error)) error {
	entry, err := parseSession(link)
	if err != nil {
		return err
	}
	return r.with(cmd, func(ctx context.Context, app *App, out *OutputFormatter) error {
		rec, err := app.Sessions.Open(ctx, entry.SessionID)
		if err != nil {
			return err
		}
		defer rec.Close()

		v, err := r.await(ctx, rec, ports.Loaded)
		if err != nil {
			return err
		}
		if v.Status == ports.StatusFailed {
			return v.Err
		}

		v, err = fn(ctx, app, rec, v)
		if err != nil {
			return err
		}
		return printView(out, app, v)
	})
}

// await waits for the subscription to confirm pred, giving up early on a failed write or load.
func (r *runner) await(ctx context.Context, rec ports.SessionSync, pred func(ports.View) bool) (ports.View, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	v, err := rec.Await(waitCtx, func(v ports.View) bool {
		return pred(v) || v.WriteErr != nil || v.Status == ports.StatusFailed
	})
	if err != nil {
		return v, fmt.Errorf("server did not confirm the change within %s: %w", r.opts.Timeout, err)
	}
	switch {
	case pred(v):
		return v, nil
	case v.WriteErr != nil:
		return v, v.WriteErr
	default:
		return v, v.Err
	}
}

func (r *runner) ensureJoined(ctx context.Context, rec ports.SessionSync, v ports.View, name string) (ports.View, error) {
	if v.Joined {
		return v, nil
	}
	if strings.TrimSpace(name) == "" && v.NeedsName {
		return v, ErrNeedsName
	}
	if err := rec.Join(ctx, name); err != nil {
		return v, err
	}
	return r.await(ctx, rec, func(v ports.View) bool { return v.Joined })
}

func parseSession(link string) (domain.Entry, error) {
	entry, err := domain.ParseEntry(link)
	if err != nil {
		return entry, err
	}
	if entry.Mode != domain.ModeJoin {
		return entry, fmt.Errorf("%w: %q names no session", domain.ErrInvalidLink, link)
	}
	return entry, nil
}

func printView(out *OutputFormatter, app *App, v ports.View) error {
	link := shareLink(app, v.SessionID)
	return out.Success(toOutput(v, link), func(w io.Writer) {
		renderText(w, v, link, app.Now())
	})
}

func printIdentity(ctx context.Context, app *App, out *OutputFormatter) error {
	id, err := app.Identity.GetOrCreateParticipantID(ctx)
	if err != nil {
		return err
	}
	name, _, err := app.Identity.DisplayName(ctx)
	if err != nil {
		return err
	}
	return out.Success(identityOutput{ParticipantID: id, Name: name}, func(w io.Writer) {
		writeLine(w, "participant %s", id)
		if name == "" {
			writeLine(w, "name        (not set)")
			return
		}
		writeLine(w, "name        %s", name)
	})
}

func shareLink(app *App, sessionID string) string {
	if app.ShareBase == "" {
		return ""
	}
	link, err := domain.ShareLink(app.ShareBase, sessionID)
	if err != nil {
		return ""
	}
	return link
}

func deckList() string {
	cards := make([]string, len(domain.Deck))
	for i, c := range domain.Deck {
		cards[i] = string(c)
	}
	return strings.Join(cards, ", ")
}
