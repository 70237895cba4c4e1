package source

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// FileSource reads a JSON or YAML relation file, optionally snappy
// compressed (relations.json.sz).
type FileSource struct {
	path string
}

// NewFileSource creates a file source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string {
	return "file:" + f.path
}

func (f *FileSource) Load(ctx context.Context) ([]visualization.RelationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("read", f.Name(), err)
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, wrap("read", f.Name(), ErrNotFound)
	}
	if err != nil {
		return nil, wrap("read", f.Name(), err)
	}

	records, err := DecodeNamed(f.path, data)
	if err != nil {
		return nil, wrap("decode", f.Name(), err)
	}
	return records, nil
}

// WriteFile stores records at path in the format its name selects. It is
// used to snapshot a source for offline rendering.
func WriteFile(path string, records []visualization.RelationRecord) error {
	format, compressed, err := FormatFromName(path)
	if err != nil {
		return wrap("write", "file:"+path, err)
	}
	data, err := Encode(records, format, compressed)
	if err != nil {
		return wrap("write", "file:"+path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrap("write", "file:"+path, err)
	}
	return nil
}
