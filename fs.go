package zip

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// Open implements fs.FS.
//
// Open returns an fs.File for reading the named file. Content is
// decompressed and CRC-verified up front, so a successful Open guarantees
// integrity of everything subsequently read from the file.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	if e, ok := a.fileEntry(name); ok {
		content, err := a.ReadEntry(e)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &fsFile{entry: e, reader: bytes.NewReader(content)}, nil
	}

	if a.isDir(name) {
		return &openDir{a: a, name: name}, nil
	}

	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS.
//
// For directories, which ZIP stores only implicitly as path prefixes
// (plus optional marker entries), Stat returns synthetic directory info.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	if e, ok := a.fileEntry(name); ok {
		return &fileInfo{entry: e, name: path.Base(name)}, nil
	}

	if a.isDir(name) {
		return &dirInfo{name: path.Base(name)}, nil
	}

	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements fs.ReadFileFS.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}

	e, ok := a.fileEntry(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}

	content, err := a.ReadEntry(e)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return content, nil
}

// ReadDir implements fs.ReadDirFS.
//
// Directory entries are sorted by name. Subdirectories are synthesized
// from entry paths.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	it := a.newDirIter(dirPrefix(name))
	entries := make([]fs.DirEntry, 0)
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 && name != "." && !a.isDir(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	return entries, nil
}

// fileEntry looks up a non-directory entry by exact name.
func (a *Archive) fileEntry(name string) (Entry, bool) {
	i, ok := a.byName[name]
	if !ok || a.entries[i].IsDir() {
		return Entry{}, false
	}
	return a.entries[i], true
}

// isDir checks whether name is a directory: an explicit marker entry
// exists, or at least one entry lies under it.
func (a *Archive) isDir(name string) bool {
	if name == "." {
		return true
	}
	if _, ok := a.byName[name+"/"]; ok {
		return true
	}
	prefix := name + "/"
	start := a.searchName(prefix)
	return start < len(a.sortedNames) &&
		strings.HasPrefix(a.entries[a.sortedNames[start]].Name, prefix)
}

// searchName returns the first position in sortedNames whose entry name
// is >= name.
func (a *Archive) searchName(name string) int {
	return sort.Search(len(a.sortedNames), func(i int) bool {
		return a.entries[a.sortedNames[i]].Name >= name
	})
}

// dirPrefix converts an fs path to an entry-name prefix.
func dirPrefix(name string) string {
	if name == "." {
		return ""
	}
	return name + "/"
}

// dirIter iterates over the immediate children of a directory prefix in
// name order, deduplicating entries that share a directory component and
// synthesizing entries for subdirectories.
type dirIter struct {
	a        *Archive
	prefix   string
	pos      int
	lastName string
}

func (a *Archive) newDirIter(prefix string) *dirIter {
	return &dirIter{a: a, prefix: prefix, pos: a.searchName(prefix)}
}

func (it *dirIter) Next() (fs.DirEntry, bool) {
	for ; it.pos < len(it.a.sortedNames); it.pos++ {
		e := it.a.entries[it.a.sortedNames[it.pos]]
		if !strings.HasPrefix(e.Name, it.prefix) {
			return nil, false
		}

		rest := strings.TrimSuffix(e.Name[len(it.prefix):], "/")
		if rest == "" {
			continue // the directory's own marker entry
		}

		childName, _, isSubDir := strings.Cut(rest, "/")
		isSubDir = isSubDir || e.IsDir()
		if childName == it.lastName {
			continue
		}
		it.lastName = childName

		it.pos++
		if isSubDir {
			return fs.FileInfoToDirEntry(&dirInfo{name: childName}), true
		}
		return fs.FileInfoToDirEntry(&fileInfo{entry: e, name: childName}), true
	}
	return nil, false
}

// fsFile serves decompressed entry content as an fs.File.
type fsFile struct {
	entry  Entry
	reader *bytes.Reader
}

func (f *fsFile) Stat() (fs.FileInfo, error) {
	return &fileInfo{entry: f.entry, name: path.Base(f.entry.Name)}, nil
}

func (f *fsFile) Read(p []byte) (int, error) {
	return f.reader.Read(p)
}

func (f *fsFile) ReadAt(p []byte, off int64) (int, error) {
	return f.reader.ReadAt(p, off)
}

func (f *fsFile) Seek(offset int64, whence int) (int64, error) {
	return f.reader.Seek(offset, whence)
}

func (f *fsFile) Close() error {
	return nil
}

// openDir implements fs.ReadDirFile for directories.
type openDir struct {
	a    *Archive
	name string
	iter *dirIter
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return &dirInfo{name: path.Base(d.name)}, nil
}

func (d *openDir) Close() error {
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.iter == nil {
		d.iter = d.a.newDirIter(dirPrefix(d.name))
	}

	var entries []fs.DirEntry
	for n <= 0 || len(entries) < n {
		entry, ok := d.iter.Next()
		if !ok {
			if n > 0 && len(entries) == 0 {
				return nil, io.EOF
			}
			break
		}
		entries = append(entries, entry)
	}
	if entries == nil {
		entries = []fs.DirEntry{}
	}
	return entries, nil
}

// fileInfo adapts an Entry to fs.FileInfo.
type fileInfo struct {
	entry Entry
	name  string
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(fi.entry.UncompressedSize) }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.entry.Mode() }
func (fi *fileInfo) ModTime() time.Time { return fi.entry.ModTime }
func (fi *fileInfo) IsDir() bool        { return fi.entry.IsDir() }
func (fi *fileInfo) Sys() any           { return fi.entry }

// dirInfo is synthetic file info for directories.
type dirInfo struct {
	name string
}

func (di *dirInfo) Name() string       { return di.name }
func (di *dirInfo) Size() int64        { return 0 }
func (di *dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (di *dirInfo) ModTime() time.Time { return time.Time{} }
func (di *dirInfo) IsDir() bool        { return true }
func (di *dirInfo) Sys() any           { return nil }
