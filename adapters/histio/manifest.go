package histio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// Source locates one histogram: a JSON file and a path inside it.
type Source struct {
	File string
	Path string
}

// Entry is one comparison listed in a manifest. Ref is nil when the
// histogram has no reference.
type Entry struct {
	Name string
	New  Source
	Ref  *Source
}

// Manifest lists the comparisons of one QA run.
type Manifest struct {
	Label   string
	Entries []Entry
}

// ReadManifest loads a run manifest:
//
//	{"label": "...", "comparisons": [
//	  {"name": "h_pt", "new": {"file": "new.json", "path": "hists.h_pt"},
//	   "ref": {"file": "ref.json", "path": "hists.h_pt"}}]}
//
// Relative files are resolved against the manifest directory.
func ReadManifest(name string) (*Manifest, error) {
	doc, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("manifest %s is not valid JSON", name)
	}

	dir := filepath.Dir(name)
	m := &Manifest{Label: gjson.GetBytes(doc, "label").String()}
	var parseErr error
	gjson.GetBytes(doc, "comparisons").ForEach(func(_, item gjson.Result) bool {
		entry := Entry{Name: item.Get("name").String()}
		newSrc, ok := source(item.Get("new"), dir)
		if !ok {
			parseErr = fmt.Errorf("manifest %s: comparison %d has no new histogram", name, len(m.Entries))
			return false
		}
		entry.New = newSrc
		if refSrc, ok := source(item.Get("ref"), dir); ok {
			entry.Ref = &refSrc
		}
		if entry.Name == "" {
			entry.Name = newSrc.Path
		}
		m.Entries = append(m.Entries, entry)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return m, nil
}

func source(r gjson.Result, dir string) (Source, bool) {
	file := r.Get("file").String()
	if !r.IsObject() || file == "" {
		return Source{}, false
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	return Source{File: file, Path: r.Get("path").String()}, true
}
