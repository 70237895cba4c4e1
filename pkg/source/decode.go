package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// Format is an encoding of a relation payload
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// compressedSuffix marks snappy block compressed payloads
const compressedSuffix = ".sz"

// FormatFromName derives the format of a file name or object key such as
// relations.json, relations.yaml or relations.json.sz.
func FormatFromName(name string) (format Format, compressed bool, err error) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, compressedSuffix) {
		compressed = true
		lower = strings.TrimSuffix(lower, compressedSuffix)
	}

	switch path.Ext(lower) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

type itemType struct {
	Name string `json:"name" yaml:"name"`
}

// wireRecord accepts both payload shapes. A flat relation record carries
// source and target entities; a CMDB configuration item carries its own
// entity fields and the relations that start at it.
type wireRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Status      string    `json:"status" yaml:"status"`
	Category    string    `json:"category" yaml:"category"`
	ItemType    *itemType `json:"itemType" yaml:"itemType"`
	Kind        string    `json:"relationKind" yaml:"relationKind"`
	Type        string    `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`

	Source        *wireRecord  `json:"source" yaml:"source"`
	Target        *wireRecord  `json:"target" yaml:"target"`
	RelationsFrom []wireRecord `json:"relationsFrom" yaml:"relationsFrom"`
}

func (w *wireRecord) entity() visualization.EntityRef {
	if w == nil {
		return visualization.EntityRef{}
	}
	category := w.Category
	if category == "" && w.ItemType != nil {
		category = w.ItemType.Name
	}
	return visualization.EntityRef{
		ID:       w.ID,
		Name:     w.Name,
		Status:   w.Status,
		Category: category,
	}
}

func (w *wireRecord) kind() string {
	if w.Kind != "" {
		return w.Kind
	}
	return w.Type
}

// isItem reports whether w is a configuration item rather than a relation
func (w *wireRecord) isItem() bool {
	return w.RelationsFrom != nil || (w.Source == nil && w.Target == nil && w.kind() == "")
}

// flatten converts decoded payload entries to relation records. Items
// contribute one record per outgoing relation with the item as source;
// items without relations contribute nothing.
func flatten(entries []wireRecord) []visualization.RelationRecord {
	records := make([]visualization.RelationRecord, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if !e.isItem() {
			records = append(records, visualization.RelationRecord{
				ID:          e.ID,
				Kind:        e.kind(),
				Description: e.Description,
				Source:      e.Source.entity(),
				Target:      e.Target.entity(),
			})
			continue
		}

		src := e.entity()
		for j := range e.RelationsFrom {
			rel := &e.RelationsFrom[j]
			records = append(records, visualization.RelationRecord{
				ID:          rel.ID,
				Kind:        rel.kind(),
				Description: rel.Description,
				Source:      src,
				Target:      rel.Target.entity(),
			})
		}
	}
	return records
}

// envelope is the {"data": [...]} wrapper some APIs return
type envelope struct {
	Data []wireRecord `json:"data" yaml:"data"`
}

// Decode parses a relation payload. Both a top-level list and a {"data":
// [...]} envelope are accepted, holding flat relation records or CMDB
// configuration items.
func Decode(data []byte, format Format) ([]visualization.RelationRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var entries []wireRecord
	switch format {
	case FormatJSON:
		if data[0] == '{' {
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return nil, fmt.Errorf("failed to decode JSON relations: %w", err)
			}
			entries = env.Data
			break
		}
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode JSON relations: %w", err)
		}
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("failed to decode YAML relations: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
			var env envelope
			if err := node.Decode(&env); err != nil {
				return nil, fmt.Errorf("failed to decode YAML relations: %w", err)
			}
			entries = env.Data
			break
		}
		if err := node.Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to decode YAML relations: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return flatten(entries), nil
}

// DecodeNamed decompresses data when name carries the snappy suffix and
// decodes it in the format named by its extension.
func DecodeNamed(name string, data []byte) ([]visualization.RelationRecord, error) {
	format, compressed, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}
	if compressed {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
		}
	}
	return Decode(data, format)
}

// Encode writes records in the given format, snappy compressed when
// compress is set. It is the inverse of DecodeNamed for flat records.
func Encode(records []visualization.RelationRecord, format Format, compress bool) ([]byte, error) {
	if records == nil {
		records = []visualization.RelationRecord{}
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(records, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(records)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode relations: %w", err)
	}

	if compress {
		return snappy.Encode(nil, data), nil
	}
	return data, nil
}
