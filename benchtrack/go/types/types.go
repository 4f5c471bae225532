// Package types defines the shapes of benchmark results and of the history
// document they are accumulated into.
package types

import (
	"github.com/benchtrack/infra/go/skerr"
)

// Measurement is one named benchmark result.
type Measurement struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`

	// Range describes the variability of Value, e.g. "± 3%" or "stddev: 0.4".
	Range string `json:"range,omitempty"`

	// Group is an optional category label.
	Group string `json:"group,omitempty"`

	// Extra is free-form annotation text.
	Extra string `json:"extra,omitempty"`
}

// User identifies a commit author or committer.
type User struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Commit is the normalized commit metadata attached to a Suite. It is filled
// in from the hosting platform event and otherwise passed through untouched.
type Commit struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Author    User   `json:"author"`
	Committer User   `json:"committer"`
}

// CPU describes the machine a Suite was measured on.
type CPU struct {
	Speed         string `json:"speed"`
	Cores         int    `json:"cores"`
	PhysicalCores int    `json:"physicalCores"`
	Processors    int    `json:"processors"`
}

// Suite is one snapshot of measurements taken at one commit. Benches keeps
// the order the tool emitted them in.
type Suite struct {
	Commit Commit `json:"commit"`

	// Date is the capture time in milliseconds since the epoch.
	Date int64 `json:"date"`

	// Tool names the benchmark tool that produced the results.
	Tool string `json:"tool,omitempty"`

	Benches []Measurement     `json:"benches"`
	CPU     *CPU              `json:"cpu,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// EmptyResultError is returned by NewSuite when there are no measurements.
type EmptyResultError struct {
	Source string
}

func (e EmptyResultError) Error() string {
	if e.Source == "" {
		return "no benchmark result was found"
	}
	return "no benchmark result was found in " + e.Source
}

// NewSuite builds a Suite. source names where the measurements came from and
// is only used in the error message.
func NewSuite(commit Commit, date int64, benches []Measurement, source string) (*Suite, error) {
	if len(benches) == 0 {
		return nil, skerr.Wrap(EmptyResultError{Source: source})
	}
	return &Suite{
		Commit:  commit,
		Date:    date,
		Benches: benches,
	}, nil
}

// Find returns the first measurement called name, or nil.
func (s *Suite) Find(name string) *Measurement {
	for i := range s.Benches {
		if s.Benches[i].Name == name {
			return &s.Benches[i]
		}
	}
	return nil
}

// Suites is the append ordered history of one named benchmark, oldest first.
type Suites []*Suite

// HistoryDocument is the persisted store of all benchmark history for a
// repository. It is always rewritten as a whole.
type HistoryDocument struct {
	// LastUpdate is the time of the most recent write in milliseconds since
	// the epoch.
	LastUpdate int64 `json:"lastUpdate"`

	// RepoURL is the URL of the repository the history belongs to.
	RepoURL string `json:"repoUrl"`

	Entries map[string]Suites `json:"entries"`
}

// NewHistoryDocument returns the empty document used when nothing has been
// stored yet.
func NewHistoryDocument() *HistoryDocument {
	return &HistoryDocument{
		Entries: map[string]Suites{},
	}
}

// Copy returns a copy of d whose entry slices can be appended to and
// truncated without affecting d. Suites are shared since they are never
// mutated.
func (d *HistoryDocument) Copy() *HistoryDocument {
	ret := &HistoryDocument{
		LastUpdate: d.LastUpdate,
		RepoURL:    d.RepoURL,
		Entries:    make(map[string]Suites, len(d.Entries)),
	}
	for name, suites := range d.Entries {
		ret.Entries[name] = append(Suites{}, suites...)
	}
	return ret
}
