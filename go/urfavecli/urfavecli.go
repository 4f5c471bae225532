// Package urfavecli has helpers for command line apps built on
// github.com/urfave/cli/v2.
package urfavecli

import (
	"github.com/benchtrack/infra/go/sklog"
	cli "github.com/urfave/cli/v2"
)

// LogFlags logs the value of every flag of the running command, one per line,
// leaving out --help. The values of the flags named in secrets are masked
// when set.
func LogFlags(c *cli.Context, secrets ...string) {
	masked := map[string]bool{}
	for _, s := range secrets {
		masked[s] = true
	}
	var flags []cli.Flag
	if c.Command != nil {
		flags = c.Command.Flags
	}
	for _, f := range flags {
		name := f.Names()[0]
		if name == "help" {
			continue
		}
		value := c.Value(name)
		if masked[name] && c.String(name) != "" {
			value = "***"
		}
		sklog.Infof("Flags: --%s=%v", name, value)
	}
}
