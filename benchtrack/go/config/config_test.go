package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v2"
)

func valid() *Config {
	c := Default()
	c.OutputFilePath = "output.json"
	return c
}

func TestParsePercentage(t *testing.T) {
	test := func(name, in string, expected float64) {
		t.Run(name, func(t *testing.T) {
			f, err := ParsePercentage(in)
			require.NoError(t, err)
			assert.InDelta(t, expected, f, 1e-9)
		})
	}
	test("integer", "200%", 2)
	test("fraction", "150.5%", 1.505)
	test("spaces", " 50 % ", 0.5)
	test("zero", "0%", 0)
}

func TestParsePercentage_Invalid_ReturnsError(t *testing.T) {
	for _, in := range []string{"200", "abc%", "-5%", ""} {
		_, err := ParsePercentage(in)
		assert.Error(t, err, in)
	}
}

func TestFailRatio_Unset_DefaultsToAlertRatio(t *testing.T) {
	c := valid()
	c.AlertThreshold = "150%"
	f, err := c.FailRatio()
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)
}

func TestCCUsers_SplitsAndTrims(t *testing.T) {
	c := valid()
	c.AlertCommentCCUsers = "@alice, @bob,,"
	assert.Equal(t, []string{"@alice", "@bob"}, c.CCUsers())
	c.AlertCommentCCUsers = ""
	assert.Empty(t, c.CCUsers())
}

func TestValidate_Default_Succeeds(t *testing.T) {
	require.NoError(t, valid().Validate())
}

func TestValidate_Invalid_ReturnsError(t *testing.T) {
	test := func(name string, mutate func(c *Config), contains string) {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), contains)
		})
	}
	test("empty name", func(c *Config) { c.Name = "" }, "name")
	test("no input", func(c *Config) { c.OutputFilePath = "" }, "output-file-path")
	test("negative max items", func(c *Config) { c.MaxItemsInChart = -1 }, "max-items-in-chart")
	test("negative retries", func(c *Config) { c.MaxRetries = -1 }, "max-retries")
	test("bad alert threshold", func(c *Config) { c.AlertThreshold = "2" }, "alert-threshold")
	test("fail below alert", func(c *Config) { c.FailThreshold = "150%" }, "fail-threshold")
	test("external with auto-push", func(c *Config) {
		c.ExternalDataJSONPath = "data.json"
		c.AutoPush = true
		c.Token = "tok"
	}, "external-data-json-path")
	test("auto-push without token", func(c *Config) { c.AutoPush = true }, "github-token")
	test("comment without token", func(c *Config) { c.CommentAlways = true }, "github-token")
	test("alert comment without token", func(c *Config) { c.CommentOnAlert = true }, "github-token")
	test("cc without @", func(c *Config) { c.AlertCommentCCUsers = "alice" }, "alert-comment-cc-users")
}

func TestLoad_JSON5_KeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchtrack.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // Comments are allowed.
  name: "Go Benchmark",
  "alert-threshold": "150%",
  "max-items-in-chart": 20,
  "auto-push": true,
}`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Go Benchmark", c.Name)
	assert.Equal(t, "150%", c.AlertThreshold)
	assert.Equal(t, 20, c.MaxItemsInChart)
	assert.True(t, c.AutoPush)
	assert.Equal(t, DefaultBranch, c.Branch)
	assert.Equal(t, DefaultMaxRetries, c.MaxRetries)
	assert.True(t, c.SaveDataFile)
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	require.Error(t, err)
}

func TestApplyFile_FlagsSetOnCommandLineWin(t *testing.T) {
	var c Config
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range c.AsCliFlags() {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--name", "From Flag", "--github-token", "tok"}))
	ctx := cli.NewContext(cli.NewApp(), set, nil)

	file := Default()
	file.Name = "From File"
	file.Tool = "go"
	file.MaxItemsInChart = 5
	file.Token = "ignored"

	c.ApplyFile(file, ctx.IsSet)
	assert.Equal(t, "From Flag", c.Name)
	assert.Equal(t, "go", c.Tool)
	assert.Equal(t, 5, c.MaxItemsInChart)
	assert.Equal(t, "tok", c.Token)
	assert.Equal(t, DefaultBranch, c.Branch)
}
