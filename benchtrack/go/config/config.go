// Package config holds the settings of a benchtrack run. Values come from
// command line flags, environment variables and an optional JSON5 file.
package config

import (
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/util"
	"github.com/flynn/json5"
	cli "github.com/urfave/cli/v2"
)

// Defaults.
const (
	DefaultName           = "Benchmark"
	DefaultBranch         = "gh-pages"
	DefaultDataDir        = "dev/bench"
	DefaultAlertThreshold = "200%"
	DefaultMaxRetries     = 10
)

// Config is the configuration of a single record run.
//
// The json tags double as flag names, which is what lets values from a config
// file fill in every flag that was not set explicitly.
type Config struct {
	// ConfigFile is a JSON5 file with defaults for any of the other fields.
	ConfigFile string `json:"-"`

	// Name of the benchmark suite. Results of different suites are kept
	// apart in the history.
	Name string `json:"name"`

	// Tool that produced the results, recorded with the suite.
	Tool string `json:"tool"`

	// OutputFilePath is the JSON file with the measurements to record.
	OutputFilePath string `json:"output-file-path"`

	// Branch that holds the history.
	Branch string `json:"gh-pages-branch"`

	// DataDir is the directory of data.js inside Branch.
	DataDir string `json:"benchmark-data-dir-path"`

	// Workdir is the git working copy.
	Workdir string `json:"workdir"`

	// Token authenticates git and the GitHub API. Never read from a file.
	Token string `json:"-"`

	AutoPush         bool `json:"auto-push"`
	SkipFetchGHPages bool `json:"skip-fetch-gh-pages"`

	CommentAlways  bool `json:"comment-always"`
	CommentOnAlert bool `json:"comment-on-alert"`
	FailOnAlert    bool `json:"fail-on-alert"`

	// AlertThreshold and FailThreshold are percentages, e.g. "200%".
	// FailThreshold defaults to AlertThreshold.
	AlertThreshold string `json:"alert-threshold"`
	FailThreshold  string `json:"fail-threshold"`

	// AlertCommentCCUsers is a comma separated list of "@user" mentions.
	AlertCommentCCUsers string `json:"alert-comment-cc-users"`

	// ExternalDataJSONPath selects the plain JSON file store instead of the
	// git branch.
	ExternalDataJSONPath string `json:"external-data-json-path"`
	SaveDataFile         bool   `json:"save-data-file"`

	// MaxItemsInChart limits the suites kept per benchmark. Zero keeps all.
	MaxItemsInChart int `json:"max-items-in-chart"`

	// MaxRetries is the number of times a rejected push is retried.
	MaxRetries int `json:"max-retries"`

	// Metadata is stored with the suite as extra["gh-metadata"].
	Metadata string `json:"metadata"`

	// MetricsFile, if set, receives the run's metrics in the Prometheus text
	// format, e.g. for the node exporter textfile collector.
	MetricsFile string `json:"metrics-file"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Name:           DefaultName,
		Branch:         DefaultBranch,
		DataDir:        DefaultDataDir,
		Workdir:        ".",
		AlertThreshold: DefaultAlertThreshold,
		SaveDataFile:   true,
		MaxRetries:     DefaultMaxRetries,
	}
}

// AsCliFlags returns a slice of cli.Flag.
func (config *Config) AsCliFlags() []cli.Flag {
	d := Default()
	return []cli.Flag{
		&cli.StringFlag{
			Destination: &config.ConfigFile,
			Name:        "config",
			Usage:       "A JSON5 file with values for any of the other flags.",
		},
		&cli.StringFlag{
			Destination: &config.Name,
			Name:        "name",
			Value:       d.Name,
			Usage:       "Name of the benchmark suite.",
		},
		&cli.StringFlag{
			Destination: &config.Tool,
			Name:        "tool",
			Usage:       "Name of the tool that produced the results.",
		},
		&cli.StringFlag{
			Destination: &config.OutputFilePath,
			Name:        "output-file-path",
			Usage:       "JSON file with the measurements to record.",
		},
		&cli.StringFlag{
			Destination: &config.Branch,
			Name:        "gh-pages-branch",
			Value:       d.Branch,
			Usage:       "Branch that holds the benchmark history.",
		},
		&cli.StringFlag{
			Destination: &config.DataDir,
			Name:        "benchmark-data-dir-path",
			Value:       d.DataDir,
			Usage:       "Directory of the history inside the branch.",
		},
		&cli.StringFlag{
			Destination: &config.Workdir,
			Name:        "workdir",
			Value:       d.Workdir,
			Usage:       "The git working copy.",
		},
		&cli.StringFlag{
			Destination: &config.Token,
			Name:        "github-token",
			EnvVars:     []string{"GITHUB_TOKEN"},
			Usage:       "Token for pushing and commenting.",
		},
		&cli.BoolFlag{
			Destination: &config.AutoPush,
			Name:        "auto-push",
			Usage:       "Push the history commit.",
		},
		&cli.BoolFlag{
			Destination: &config.SkipFetchGHPages,
			Name:        "skip-fetch-gh-pages",
			Usage:       "Do not fetch or pull the history branch before writing.",
		},
		&cli.BoolFlag{
			Destination: &config.CommentAlways,
			Name:        "comment-always",
			Usage:       "Comment the comparison with the previous result on every commit.",
		},
		&cli.BoolFlag{
			Destination: &config.CommentOnAlert,
			Name:        "comment-on-alert",
			Usage:       "Comment on the commit when a regression exceeds the alert threshold.",
		},
		&cli.BoolFlag{
			Destination: &config.FailOnAlert,
			Name:        "fail-on-alert",
			Usage:       "Fail when a regression exceeds the fail threshold.",
		},
		&cli.StringFlag{
			Destination: &config.AlertThreshold,
			Name:        "alert-threshold",
			Value:       d.AlertThreshold,
			Usage:       "Ratio of previous to current value that triggers an alert, e.g. 200%.",
		},
		&cli.StringFlag{
			Destination: &config.FailThreshold,
			Name:        "fail-threshold",
			Usage:       "Ratio that fails the run. Defaults to the alert threshold.",
		},
		&cli.StringFlag{
			Destination: &config.AlertCommentCCUsers,
			Name:        "alert-comment-cc-users",
			Usage:       "Comma separated users mentioned in alert comments, e.g. @octocat.",
		},
		&cli.StringFlag{
			Destination: &config.ExternalDataJSONPath,
			Name:        "external-data-json-path",
			Usage:       "Keep the history in this JSON file instead of the git branch.",
		},
		&cli.BoolFlag{
			Destination: &config.SaveDataFile,
			Name:        "save-data-file",
			Value:       d.SaveDataFile,
			Usage:       "Write the external JSON file back.",
		},
		&cli.IntFlag{
			Destination: &config.MaxItemsInChart,
			Name:        "max-items-in-chart",
			Usage:       "Maximum number of results kept per benchmark. 0 keeps all.",
		},
		&cli.IntFlag{
			Destination: &config.MaxRetries,
			Name:        "max-retries",
			Value:       d.MaxRetries,
			Usage:       "Number of times a rejected push is retried.",
		},
		&cli.StringFlag{
			Destination: &config.Metadata,
			Name:        "metadata",
			Usage:       "Free-form text stored with the result.",
		},
		&cli.StringFlag{
			Destination: &config.MetricsFile,
			Name:        "metrics-file",
			Usage:       "Write metrics in the Prometheus text format to this file.",
		},
	}
}

// Load reads a JSON5 config file. Fields missing from the file keep their
// defaults.
func Load(filename string) (*Config, error) {
	ret := Default()
	err := util.WithReadFile(filename, func(r io.Reader) error {
		return json5.NewDecoder(r).Decode(ret)
	})
	if err != nil {
		return nil, skerr.Wrapf(err, "loading config %s", filename)
	}
	return ret, nil
}

// ApplyFile copies every field from file whose flag was not set, so flags and
// environment variables win over the file. isSet is usually
// (*cli.Context).IsSet.
func (config *Config) ApplyFile(file *Config, isSet func(name string) bool) {
	dst := reflect.ValueOf(config).Elem()
	src := reflect.ValueOf(file).Elem()
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name == "" || name == "-" || isSet(name) {
			continue
		}
		dst.Field(i).Set(src.Field(i))
	}
}

// ParsePercentage parses a threshold such as "150%" into the ratio 1.5.
func ParsePercentage(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasSuffix(trimmed, "%") {
		return 0, skerr.Fmt("%q is not a percentage: it must end with %%", s)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(trimmed, "%")), 64)
	if err != nil {
		return 0, skerr.Wrapf(err, "parsing percentage %q", s)
	}
	if f < 0 {
		return 0, skerr.Fmt("percentage %q must not be negative", s)
	}
	return f / 100, nil
}

// AlertRatio returns the parsed alert threshold.
func (config *Config) AlertRatio() (float64, error) {
	return ParsePercentage(config.AlertThreshold)
}

// FailRatio returns the parsed fail threshold, which defaults to the alert
// threshold.
func (config *Config) FailRatio() (float64, error) {
	if config.FailThreshold == "" {
		return config.AlertRatio()
	}
	return ParsePercentage(config.FailThreshold)
}

// CCUsers returns the users to mention in alert comments.
func (config *Config) CCUsers() []string {
	ret := []string{}
	for _, u := range strings.Split(config.AlertCommentCCUsers, ",") {
		if u = strings.TrimSpace(u); u != "" {
			ret = append(ret, u)
		}
	}
	return ret
}

// Validate returns an error describing the first problem found in config.
func (config *Config) Validate() error {
	if config.Name == "" {
		return skerr.Fmt("name must not be empty")
	}
	if config.OutputFilePath == "" {
		return skerr.Fmt("output-file-path must be set")
	}
	if config.MaxItemsInChart < 0 {
		return skerr.Fmt("max-items-in-chart must be a positive integer, got %d", config.MaxItemsInChart)
	}
	if config.MaxRetries < 0 {
		return skerr.Fmt("max-retries must not be negative, got %d", config.MaxRetries)
	}

	alert, err := config.AlertRatio()
	if err != nil {
		return skerr.Wrapf(err, "invalid alert-threshold")
	}
	fail, err := config.FailRatio()
	if err != nil {
		return skerr.Wrapf(err, "invalid fail-threshold")
	}
	if fail < alert {
		return skerr.Fmt("fail-threshold %s must be greater than or equal to alert-threshold %s", config.FailThreshold, config.AlertThreshold)
	}

	if config.ExternalDataJSONPath != "" {
		if config.AutoPush {
			return skerr.Fmt("auto-push must be false when external-data-json-path is set")
		}
	} else {
		if config.Branch == "" {
			return skerr.Fmt("gh-pages-branch must not be empty")
		}
		if config.DataDir == "" {
			return skerr.Fmt("benchmark-data-dir-path must not be empty")
		}
	}

	if config.Token == "" {
		switch {
		case config.AutoPush:
			return skerr.Fmt("auto-push is set but github-token is not set")
		case config.CommentAlways:
			return skerr.Fmt("comment-always is set but github-token is not set")
		case config.CommentOnAlert:
			return skerr.Fmt("comment-on-alert is set but github-token is not set")
		}
	}

	for _, u := range config.CCUsers() {
		if !strings.HasPrefix(u, "@") {
			return skerr.Fmt("alert-comment-cc-users must be mentions like @octocat, got %q", u)
		}
	}
	return nil
}
