// Package assets indexes a game directory into a case-insensitive
// (stem -> (extension, path)) multimap, the way spec.md §4.4 describes.
package assets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ssakurai/rlvm/gameexe"
	"github.com/ssakurai/rlvm/rlerr"
)

// whitelisted extensions, lowercase, no leading dot.
var extWhitelist = map[string]bool{
	"g00": true, "pdt": true, "anm": true, "gan": true, "hik": true,
	"wav": true, "ogg": true, "nwa": true, "mp3": true, "ovk": true,
	"koe": true, "nwk": true,
}

// Entry is one indexed file: its lowercased extension and absolute path.
type Entry struct {
	Extension string
	Path      string
}

// Index is the multimap from lowercase stem to the entries found for it,
// at most one entry per (stem, extension) pair within a single Build.
type Index struct {
	byStem map[string][]Entry
}

// Build walks root one directory deep, recursing only into
// subdirectories whose lowercased name is named by a #FOLDNAME entry in
// exe, and indexes every whitelisted file it finds. Grounded on
// original_source/.../archive.hpp's asset-folder convention and the
// teacher's own directory-scan style in cmd/gametest/main.go
// (os.ReadDir plus an extension whitelist, generalized from a flat
// single-directory scan to the two-level FOLDNAME walk spec.md names).
func Build(root string, exe *gameexe.Gameexe) (*Index, error) {
	idx := &Index{byStem: make(map[string][]Entry)}

	folderNames := make(map[string]bool)
	for _, v := range exe.Filter("FOLDNAME") {
		name, err := v.AsStr()
		if err != nil {
			continue
		}
		folderNames[strings.ToLower(name)] = true
	}

	top, err := os.ReadDir(root)
	if err != nil {
		return nil, rlerr.Wrap(rlerr.NotFound, err, "reading asset root %q", root)
	}

	for _, entry := range top {
		if entry.IsDir() {
			if folderNames[strings.ToLower(entry.Name())] {
				if err := idx.scanDir(filepath.Join(root, entry.Name())); err != nil {
					return nil, err
				}
			}
			continue
		}
		idx.indexFile(root, entry.Name())
	}

	return idx, nil
}

func (idx *Index) scanDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rlerr.Wrap(rlerr.NotFound, err, "reading asset folder %q", dir)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		idx.indexFile(dir, entry.Name())
	}
	return nil
}

func (idx *Index) indexFile(dir, name string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !extWhitelist[ext] {
		return
	}
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	abs, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		abs = filepath.Join(dir, name)
	}

	for _, e := range idx.byStem[stem] {
		if e.Extension == ext {
			return
		}
	}
	idx.byStem[stem] = append(idx.byStem[stem], Entry{Extension: ext, Path: abs})
}

// FindFile strips anything after '?' in name, lowercases it, and looks up
// the multimap. When filter is non-empty, the first entry whose
// extension appears in filter wins; otherwise the first entry indexed
// for that stem wins. A missing stem is NotFound.
func (idx *Index) FindFile(name string, filter []string) (Entry, error) {
	if q := strings.IndexByte(name, '?'); q >= 0 {
		name = name[:q]
	}
	stem := strings.ToLower(name)

	entries, ok := idx.byStem[stem]
	if !ok || len(entries) == 0 {
		return Entry{}, rlerr.New(rlerr.NotFound, "asset %q not found", name)
	}
	if len(filter) == 0 {
		return entries[0], nil
	}
	for _, want := range filter {
		want = strings.ToLower(want)
		for _, e := range entries {
			if e.Extension == want {
				return e, nil
			}
		}
	}
	return Entry{}, rlerr.New(rlerr.NotFound, "asset %q not found with extension in %v", name, filter)
}
