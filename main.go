package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-kernel/app"
	kernel "github.com/km-arc/go-kernel/framework/app"
	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/logging"
	"github.com/km-arc/go-kernel/framework/module"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log := logging.New(config.LogConfig{Level: "error", Format: config.Get("LOG_FORMAT", "console")}, os.Stderr)
		log.Error().Err(err).Msg("gokernel failed")
		os.Exit(1)
	}
}

// cli holds what every subcommand needs.
type cli struct {
	envFiles []string
	stdout   io.Writer
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "gokernel",
		Short:         "Module runtime on a Laravel-style service container",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.stdout = cmd.OutOrStdout()
		},
	}
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Bootstrap every module and serve HTTP on APP_PORT",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				a, err := c.application(false)
				if err != nil {
					return err
				}
				return a.Run(ctx)
			},
		},
		&cobra.Command{
			Use:   "modules",
			Short: "Print the computed module load order without booting anything",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				a, err := c.application(false)
				if err != nil {
					return err
				}
				ordered, err := a.Loader.Plan()
				if err != nil {
					return err
				}
				return printModules(c.stdout, ordered)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Bootstrap with static container verification, then exit",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				a, err := c.application(true)
				if err != nil {
					return err
				}
				if err := a.Bootstrap(); err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "ok: %d modules booted, %d bindings\n", len(a.Loader.Modules()), len(a.Bindings()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "routes",
			Short: "Bootstrap and list every registered route",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				a, err := c.application(false)
				if err != nil {
					return err
				}
				if err := a.Bootstrap(); err != nil {
					return err
				}
				router, err := a.Router()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
				for _, r := range router.Routes() {
					fmt.Fprintf(w, "%s\t%s\n", r.Method, r.Pattern)
				}
				return w.Flush()
			},
		},
	)
	return root
}

// application loads configuration and registers the app's modules. verify
// forces static container verification.
func (c *cli) application(verify bool) (*kernel.Application, error) {
	cfg := config.Load(c.envFiles...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if verify {
		cfg.Modules.Verify = true
	}
	log := logging.New(cfg.Log, os.Stderr).With().Str("app", cfg.App.Name).Logger()
	a := kernel.New(cfg, log)
	app.Register(a)
	return a, nil
}

func printModules(out io.Writer, ordered []*module.Descriptor) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tVERSION\tORDER\tPROVIDES\tREQUIRES\tSOURCE")
	for i, d := range ordered {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			i+1, d.Name, d.Version, d.Order, provides(d), requires(d), d.Source)
	}
	return w.Flush()
}

func provides(d *module.Descriptor) string {
	parts := make([]string, len(d.Provides))
	for i, p := range d.Provides {
		parts[i] = p.Capability + "@" + p.Version
	}
	return dash(parts)
}

func requires(d *module.Descriptor) string {
	parts := make([]string, len(d.Requires))
	for i, r := range d.Requires {
		parts[i] = r.Capability + " " + r.Constraint
	}
	return dash(parts)
}

func dash(parts []string) string {
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
