package report

import (
	"bytes"
	"math"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/benchtrack/infra/benchtrack/go/alerts"
	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/skerr"
)

// DefaultBenchmarkName is the suite name used when none is configured. It is
// left out of alert comments.
const DefaultBenchmarkName = "Benchmark"

const (
	footerMarkdown = `{{ define "footer" }}This comment was automatically generated by [workflow]({{ .ActionURL }}) using [benchtrack](https://github.com/benchtrack/infra).{{ end }}`

	comparisonMarkdown = `# {{ .Name }}

<details>

| Benchmark suite | Current: {{ .Current.Commit.ID }} | Previous: {{ .Previous.Commit.ID }} | Ratio |
|-|-|-|-|
{{ range .Rows }}| {{ code .Current.Name }} | {{ strVal .Current }} |{{ if .Previous }} {{ strVal .Previous }} | {{ code (floatStr .Ratio) }} |{{ else }} | |{{ end }}
{{ end }}
</details>

{{ template "footer" . }}`

	alertMarkdown = `{{ if eq .Threshold 0.0 }}# Performance Report{{ else }}# :warning: **Performance Alert** :warning:{{ end }}

Possible performance regression was detected for benchmark{{ if ne .Name "` + DefaultBenchmarkName + `" }} **'{{ .Name }}'**{{ end }}.
Benchmark result of this commit is worse than the previous benchmark result exceeding threshold {{ code (floatStr .Threshold) }}.

| Benchmark suite | Current: {{ .Current.Commit.ID }} | Previous: {{ .Previous.Commit.ID }} | Ratio |
|-|-|-|-|
{{ range .Alerts }}| {{ code .Current.Name }} | {{ strVal .Current }} | {{ strVal .Previous }} | {{ code (floatStr .Ratio) }} |
{{ end }}
{{ template "footer" . }}{{ if .CC }}

CC: {{ join " " .CC }}{{ end }}`
)

// FloatStr formats a ratio or threshold for display: integers without a
// fraction, values above 0.1 with two decimals, anything else in full.
func FloatStr(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	if f > 0.1 {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// StrVal formats a measurement value with its unit and range.
func StrVal(m types.Measurement) string {
	s := "`" + strconv.FormatFloat(m.Value, 'f', -1, 64) + "` " + m.Unit
	if m.Range != "" {
		s += " (`" + m.Range + "`)"
	}
	return s
}

func code(s string) string {
	return "`" + s + "`"
}

// ActionURL returns the link to the runs of workflow in the repository at
// repoURL.
func ActionURL(repoURL, workflow string) string {
	return repoURL + "/actions?query=workflow%3A" + strings.ReplaceAll(url.QueryEscape(workflow), "+", "%20")
}

// row is one line of the comparison table. Previous is nil when the
// measurement is new.
type row struct {
	Current  types.Measurement
	Previous *types.Measurement
	Ratio    float64
}

type comparisonContext struct {
	Name      string
	Current   *types.Suite
	Previous  *types.Suite
	Rows      []row
	ActionURL string
}

type alertContext struct {
	Name      string
	Current   *types.Suite
	Previous  *types.Suite
	Alerts    []alerts.Alert
	Threshold float64
	CC        []string
	ActionURL string
}

// MarkdownFormatter renders benchmark comparisons as GitHub markdown.
type MarkdownFormatter struct {
	actionURL  string
	comparison *template.Template
	alert      *template.Template
}

// NewMarkdownFormatter returns a MarkdownFormatter whose footer links to the
// runs of workflow in the repository at repoURL.
func NewMarkdownFormatter(repoURL, workflow string) (*MarkdownFormatter, error) {
	funcs := sprig.TxtFuncMap()
	funcs["floatStr"] = FloatStr
	funcs["strVal"] = StrVal
	funcs["code"] = code

	parse := func(name, body string) (*template.Template, error) {
		t, err := template.New(name).Funcs(funcs).Parse(footerMarkdown)
		if err != nil {
			return nil, skerr.Wrapf(err, "compiling footer")
		}
		if _, err := t.Parse(body); err != nil {
			return nil, skerr.Wrapf(err, "compiling %s", name)
		}
		return t, nil
	}
	comparison, err := parse("comparisonMarkdown", comparisonMarkdown)
	if err != nil {
		return nil, err
	}
	alert, err := parse("alertMarkdown", alertMarkdown)
	if err != nil {
		return nil, err
	}
	return &MarkdownFormatter{
		actionURL:  ActionURL(repoURL, workflow),
		comparison: comparison,
		alert:      alert,
	}, nil
}

func execute(t *template.Template, data interface{}) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", skerr.Wrapf(err, "executing %s", t.Name())
	}
	// Trailing newlines are dropped so the comment ends with its last line.
	return strings.TrimRight(b.String(), "\n"), nil
}

// Comparison renders every measurement of current next to its previous
// value.
func (f *MarkdownFormatter) Comparison(name string, current, previous *types.Suite) (string, error) {
	rows := make([]row, 0, len(current.Benches))
	for _, cur := range current.Benches {
		r := row{Current: cur}
		if prev := previous.Find(cur.Name); prev != nil {
			r.Previous = prev
			r.Ratio = alerts.Ratio(prev.Value, cur.Value)
		}
		rows = append(rows, r)
	}
	return execute(f.comparison, comparisonContext{
		Name:      name,
		Current:   current,
		Previous:  previous,
		Rows:      rows,
		ActionURL: f.actionURL,
	})
}

// Alert renders the regressed measurements. cc users are mentioned at the
// end.
func (f *MarkdownFormatter) Alert(name string, current, previous *types.Suite, found []alerts.Alert, threshold float64, cc []string) (string, error) {
	return execute(f.alert, alertContext{
		Name:      name,
		Current:   current,
		Previous:  previous,
		Alerts:    found,
		Threshold: threshold,
		CC:        cc,
		ActionURL: f.actionURL,
	})
}
