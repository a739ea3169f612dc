package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	Server  string
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// App is what a command needs to talk to sessions. Close releases whatever Factory opened.
type App struct {
	Sessions  ports.SessionService
	Identity  ports.IdentityProvider
	ShareBase string
	Now       func() time.Time
	Close     func() error
}

// Factory builds the App once flags are parsed.
type Factory func(ctx context.Context, opts *RootOptions) (*App, error)

// NewRootCommand creates the root command for the poker CLI.
func NewRootCommand(factory Factory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "poker",
		Short:         "Planning poker from the terminal",
		Long:          "Create, join and run planning poker sessions shared through a poker server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "poker server url (defaults to POKER_SERVER_URL)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "how long to wait for the server to confirm a change")

	r := &runner{opts: opts, factory: factory}
	cmd.AddCommand(newCreateCommand(r))
	cmd.AddCommand(newJoinCommand(r))
	cmd.AddCommand(newVoteCommand(r))
	cmd.AddCommand(newRevealCommand(r))
	cmd.AddCommand(newResetCommand(r))
	cmd.AddCommand(newShowCommand(r))
	cmd.AddCommand(newWatchCommand(r))
	cmd.AddCommand(newNameCommand(r))
	cmd.AddCommand(newWhoamiCommand(r))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

type runner struct {
	opts    *RootOptions
	factory Factory
}

// with builds the App for one command invocation and tears it down afterwards.
func (r *runner) with(cmd *cobra.Command, fn func(ctx context.Context, app *App, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := r.factory(ctx, r.opts)
	if err != nil {
		return err
	}
	if app.Close != nil {
		defer app.Close()
	}
	if app.Now == nil {
		app.Now = time.Now
	}

	return fn(ctx, app, &OutputFormatter{Format: r.opts.Format, Writer: cmd.OutOrStdout()})
}

func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
