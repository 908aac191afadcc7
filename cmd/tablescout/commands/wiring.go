package commands

import (
	"log/slog"

	"github.com/use-agent/tablescout/browser"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/llm"
	"github.com/use-agent/tablescout/notify"
	"github.com/use-agent/tablescout/scraper"
	"github.com/use-agent/tablescout/sink"
)

// newPipeline wires the scraper and every optional output that c enables.
func newPipeline(c *config.Config) (*scraper.Pipeline, error) {
	sc := scraper.New(c, browser.NewOpener(c.Browser, c.Scraper))

	var opts []scraper.Option

	es, err := sink.NewElastic(c.Elastic)
	if err != nil {
		return nil, err
	}
	if es != nil {
		slog.Info("elasticsearch sink enabled", "addresses", c.Elastic.Addresses)
		opts = append(opts, scraper.WithElastic(es))
	}

	if c.LLM.Enabled() {
		slog.Info("ai summary enabled", "model", c.LLM.Model)
		opts = append(opts, scraper.WithLLM(llm.NewClient(nil), c.LLM))
	}

	if m := notify.NewMailer(c.Mail); m != nil {
		slog.Info("mail enabled", "to", c.Mail.To)
		opts = append(opts, scraper.WithMailer(m))
	}

	return scraper.NewPipeline(c, sc, opts...), nil
}
