// Package assets holds the default dashboard files that are added next to
// the history data the first time it is written.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed index.html benchmark.css
var files embed.FS

// Asset is a file to be written if it does not exist yet.
type Asset struct {
	Name     string
	Contents []byte
}

// Defaults returns the default dashboard files.
func Defaults() ([]Asset, error) {
	ret := []Asset{}
	for _, name := range []string{"index.html", "benchmark.css"} {
		b, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, Asset{Name: name, Contents: b})
	}
	return ret, nil
}
