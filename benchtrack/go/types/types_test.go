package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSuite_NoMeasurements_ReturnsEmptyResultError(t *testing.T) {
	_, err := NewSuite(Commit{ID: "abc"}, 1, nil, "output.txt")
	require.Error(t, err)
	var emptyErr EmptyResultError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, "output.txt", emptyErr.Source)
	assert.Contains(t, err.Error(), "no benchmark result was found in output.txt")
}

func TestNewSuite_WithMeasurements_Success(t *testing.T) {
	benches := []Measurement{{Name: "A", Value: 1, Unit: "ns/op"}}
	s, err := NewSuite(Commit{ID: "abc"}, 12, benches, "")
	require.NoError(t, err)
	assert.Equal(t, "abc", s.Commit.ID)
	assert.Equal(t, int64(12), s.Date)
	assert.Equal(t, benches, s.Benches)
}

func TestFind_ReturnsFirstMatch(t *testing.T) {
	s := &Suite{Benches: []Measurement{
		{Name: "A", Value: 1},
		{Name: "B", Value: 2},
		{Name: "A", Value: 3},
	}}
	require.NotNil(t, s.Find("A"))
	assert.Equal(t, 1.0, s.Find("A").Value)
	assert.Nil(t, s.Find("C"))
}

func TestCopy_AppendToCopy_DoesNotChangeOriginal(t *testing.T) {
	s1 := &Suite{Commit: Commit{ID: "1"}}
	d := &HistoryDocument{
		LastUpdate: 5,
		RepoURL:    "https://github.com/o/r",
		Entries:    map[string]Suites{"bench": make(Suites, 1, 10)},
	}
	d.Entries["bench"][0] = s1

	c := d.Copy()
	c.Entries["bench"] = append(c.Entries["bench"], &Suite{Commit: Commit{ID: "2"}})
	c.Entries["other"] = Suites{s1}
	c.LastUpdate = 6

	assert.Len(t, d.Entries["bench"], 1)
	assert.Len(t, d.Entries["bench"][:2], 2)
	assert.Nil(t, d.Entries["bench"][:2][1])
	assert.NotContains(t, d.Entries, "other")
	assert.Equal(t, int64(5), d.LastUpdate)
}
