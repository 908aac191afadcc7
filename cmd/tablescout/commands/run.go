package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/scraper"
)

var runFlags struct {
	target     int
	maxPages   int
	out        string
	backend    string
	noHeadless bool
	report     bool
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.target, "target", 0, "stop after this many records (default from profile)")
	f.IntVar(&runFlags.maxPages, "max-pages", 0, "stop after this many pages (default from profile)")
	f.StringVar(&runFlags.out, "out", "", "output directory (default $TABLESCOUT_OUTPUT_DIR or .)")
	f.StringVar(&runFlags.backend, "backend", "", "browser driver: rod or chromedp")
	f.BoolVar(&runFlags.noHeadless, "no-headless", false, "show the browser window")
	f.BoolVar(&runFlags.report, "report", false, "also write a Markdown report")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <profile>",
	Short: "Pages through a profile's table and writes it to a spreadsheet.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		prof, ok := reg.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown profile %q, see 'tablescout profiles'", args[0])
		}

		if cmd.Flags().Changed("target") {
			prof.TargetCount = runFlags.target
		}
		if cmd.Flags().Changed("max-pages") {
			prof.MaxPages = runFlags.maxPages
		}
		if err := prof.Validate(); err != nil {
			return err
		}
		if err := applyRunFlags(cfg); err != nil {
			return err
		}

		pl, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		events := make(chan scraper.Event, 16)
		var (
			out    *scraper.Outcome
			runErr error
		)
		go func() {
			defer close(events)
			out, runErr = pl.Execute(cmd.Context(), prof, events)
		}()

		// single UI loop; the worker above only sends
		for ev := range events {
			printProgress(cmd.ErrOrStderr(), ev)
		}

		if runErr != nil {
			if models.HasCode(runErr, models.ErrCodeNoRecords) {
				return errors.New("no data collected, nothing was written")
			}
			return runErr
		}
		printOutcome(cmd.OutOrStdout(), prof, out)
		return nil
	},
}

func applyRunFlags(c *config.Config) error {
	if runFlags.out != "" {
		c.Output.Dir = runFlags.out
	}
	if runFlags.backend != "" {
		c.Browser.Backend = runFlags.backend
	}
	if runFlags.noHeadless {
		c.Browser.Headless = false
	}
	if runFlags.report {
		c.Output.WriteReport = true
	}
	if err := os.MkdirAll(c.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
