// benchtrack records benchmark results in a git branch and reports
// regressions against the previous result.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/benchtrack/infra/benchtrack/go/assets"
	"github.com/benchtrack/infra/benchtrack/go/config"
	"github.com/benchtrack/infra/benchtrack/go/datafile"
	"github.com/benchtrack/infra/benchtrack/go/event"
	"github.com/benchtrack/infra/benchtrack/go/metrics"
	"github.com/benchtrack/infra/benchtrack/go/notify"
	"github.com/benchtrack/infra/benchtrack/go/recorder"
	"github.com/benchtrack/infra/benchtrack/go/report"
	"github.com/benchtrack/infra/benchtrack/go/store"
	"github.com/benchtrack/infra/go/git"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
	"github.com/benchtrack/infra/go/sklog/actionslogging"
	"github.com/benchtrack/infra/go/sklog/stdlogging"
	"github.com/benchtrack/infra/go/urfavecli"
	cli "github.com/urfave/cli/v2"
)

// showFlags are the flags of the show command.
type showFlags struct {
	DataFile string
	JSON     bool
	Name     string
}

func (flags *showFlags) AsCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Destination: &flags.DataFile,
			Name:        "data-file",
			Value:       filepath.Join(config.DefaultDataDir, store.DataFileName),
			Usage:       "The history file to show.",
		},
		&cli.BoolFlag{
			Destination: &flags.JSON,
			Name:        "json",
			Usage:       "The history file is plain JSON rather than data.js.",
		},
		&cli.StringFlag{
			Destination: &flags.Name,
			Name:        "name",
			Usage:       "Only show this benchmark.",
		},
	}
}

func main() {
	cfg := config.Default()
	var show showFlags
	cliApp := &cli.App{
		Name:  "benchtrack",
		Usage: "Keeps the history of benchmark results in a git branch and reports regressions.",
		Before: func(c *cli.Context) error {
			if os.Getenv("GITHUB_ACTIONS") == "true" {
				sklog.SetLogger(actionslogging.New(os.Stdout, stdlogging.New(os.Stderr)))
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:        "record",
				Usage:       "Record a benchmark result.",
				Description: "Adds the results in output-file-path to the history and reports on them.",
				Flags:       cfg.AsCliFlags(),
				Action: func(c *cli.Context) error {
					urfavecli.LogFlags(c, "github-token")
					if cfg.ConfigFile != "" {
						file, err := config.Load(cfg.ConfigFile)
						if err != nil {
							return err
						}
						cfg.ApplyFile(file, c.IsSet)
					}
					return record(c.Context, cfg)
				},
			},
			{
				Name:        "show",
				Usage:       "Show the recorded history.",
				Description: "Prints the measurements in a history file as a table.",
				Flags:       (&show).AsCliFlags(),
				Action: func(c *cli.Context) error {
					format := datafile.Script
					if show.JSON {
						format = datafile.JSON
					}
					doc, err := datafile.Read(show.DataFile, format)
					if err != nil {
						return err
					}
					report.WriteTable(os.Stdout, doc, show.Name)
					return nil
				},
			},
		},
	}

	err := cliApp.Run(os.Args)
	if err != nil {
		sklog.Error(err)
	}
	sklog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

// record runs the record command for a validated cfg.
func record(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				sklog.Errorf("Failed to write metrics: %s", err)
			}
		}()
	}

	ev, err := event.FromEnv(os.Getenv)
	if err != nil {
		return err
	}
	results, err := recorder.ReadResults(cfg.OutputFilePath)
	if err != nil {
		return err
	}
	suite, err := recorder.NewSuite(ctx, ev.Commit, results, recorder.Options{
		Tool:     cfg.Tool,
		Metadata: cfg.Metadata,
		Source:   cfg.OutputFilePath,
	})
	if err != nil {
		return err
	}

	s, err := newStore(cfg, ev)
	if err != nil {
		return err
	}
	dispatcher, err := newDispatcher(ctx, cfg, ev)
	if err != nil {
		return err
	}
	_, err = recorder.New(s, dispatcher).Record(ctx, cfg.Name, suite)
	return err
}

func newStore(cfg *config.Config, ev *event.Context) (store.Store, error) {
	if cfg.ExternalDataJSONPath != "" {
		return &store.FileStore{
			Path:       cfg.ExternalDataJSONPath,
			Name:       cfg.Name,
			MaxEntries: cfg.MaxItemsInChart,
			RepoURL:    ev.RepoURL,
			Save:       cfg.SaveDataFile,
		}, nil
	}
	defaults, err := assets.Defaults()
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	checkout := git.NewCheckout(cfg.Workdir, ev.Remote())
	return store.NewGitStore(checkout, cfg.Workdir, store.GitOptions{
		Name:        cfg.Name,
		Branch:      cfg.Branch,
		DataDir:     cfg.DataDir,
		Token:       cfg.Token,
		AutoPush:    cfg.AutoPush,
		SkipFetch:   cfg.SkipFetchGHPages,
		PrivateRepo: ev.Private,
		MaxEntries:  cfg.MaxItemsInChart,
		MaxRetries:  cfg.MaxRetries,
		RepoURL:     ev.RepoURL,
		Assets:      defaults,
	}), nil
}

func newDispatcher(ctx context.Context, cfg *config.Config, ev *event.Context) (*report.Dispatcher, error) {
	alertRatio, err := cfg.AlertRatio()
	if err != nil {
		return nil, err
	}
	failRatio, err := cfg.FailRatio()
	if err != nil {
		return nil, err
	}
	formatter, err := report.NewMarkdownFormatter(ev.RepoURL, ev.Workflow)
	if err != nil {
		return nil, err
	}
	var notifier report.Notifier
	if cfg.Token != "" && (cfg.CommentAlways || cfg.CommentOnAlert) {
		gh, err := notify.NewGitHub(ctx, ev.Owner, ev.Repo, cfg.Token, ev.APIURL)
		if err != nil {
			return nil, err
		}
		notifier = gh
	}
	return report.New(notifier, formatter, report.Options{
		Name:           cfg.Name,
		CommentAlways:  cfg.CommentAlways,
		CommentOnAlert: cfg.CommentOnAlert,
		FailOnAlert:    cfg.FailOnAlert,
		AlertThreshold: alertRatio,
		FailThreshold:  failRatio,
		CCUsers:        cfg.CCUsers(),
	}), nil
}
