// Package diagram reads the JSON export of the block diagram editor.
//
// An export is a list of pens. Node pens (type 0) are operator blocks: the pen
// name is the block type and its data is a list of {key, value} arguments.
// Line pens (type 1) connect the pens named by from.id and to.id.
package diagram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meikuraledutech/netgen"
)

var ErrMalformed = errors.New("diagram: malformed document")

const (
	penNode = 0
	penLine = 1
)

// malformedFont is the font entry the editor writes with unescaped quotes.
const malformedFont = `"fontFamily":""Hiragino Sans GB", "Microsoft YaHei", "Helvetica Neue", Helvetica, Arial",`

type document struct {
	Pens []pen `json:"pens"`
}

type pen struct {
	Type int             `json:"type"`
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Text string          `json:"text"`
	Data json.RawMessage `json:"data"`
	From *endpoint       `json:"from"`
	To   *endpoint       `json:"to"`
}

type endpoint struct {
	ID string `json:"id"`
}

type datum struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// IsDiagram reports whether src looks like an editor export rather than a DAG document.
func IsDiagram(src []byte) bool {
	var doc struct {
		Pens json.RawMessage `json:"pens"`
	}
	if err := json.Unmarshal(sanitize(src), &doc); err != nil {
		return false
	}
	return doc.Pens != nil
}

// Parse converts an editor export into a DAG with the given id.
// Node and edge order follows pen order.
func Parse(src []byte, dagID string) (*netgen.DAG, error) {
	var doc document
	if err := json.Unmarshal(sanitize(src), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	d := &netgen.DAG{ID: dagID}
	for i, p := range doc.Pens {
		switch p.Type {
		case penNode:
			args, err := parseArgs(p.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: pen %d (%q): %v", ErrMalformed, i, p.ID, err)
			}
			d.Nodes = append(d.Nodes, netgen.Node{ID: p.ID, Type: p.Name, Text: p.Text, Args: args})
		case penLine:
			if p.From == nil || p.To == nil || p.From.ID == "" || p.To.ID == "" {
				return nil, fmt.Errorf("%w: line %q is not connected at both ends", ErrMalformed, p.ID)
			}
			d.Edges = append(d.Edges, netgen.Edge{ID: p.ID, FromNodeID: p.From.ID, ToNodeID: p.To.ID})
		}
	}
	return d, nil
}

// Decode reads an editor export from r.
func Decode(r io.Reader, dagID string) (*netgen.DAG, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("diagram: reading: %w", err)
	}
	return Parse(src, dagID)
}

// Load reads an editor export from a file. The DAG id is the file name without extension.
func Load(path string) (*netgen.DAG, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("diagram: %w", err)
	}
	base := filepath.Base(path)
	return Parse(src, strings.TrimSuffix(base, filepath.Ext(base)))
}

func sanitize(src []byte) []byte {
	return bytes.ReplaceAll(src, []byte(malformedFont), nil)
}

// parseArgs accepts a {key, value} list; an absent, null or empty-string data is no arguments.
func parseArgs(raw json.RawMessage) ([]netgen.Arg, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil, nil
	}

	var data []datum
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return nil, fmt.Errorf("data must be a list of {key, value}: %v", err)
	}

	args := make([]netgen.Arg, 0, len(data))
	for _, item := range data {
		if item.Key == "" {
			return nil, errors.New("argument with empty key")
		}
		value := []byte(item.Value)
		if len(bytes.TrimSpace(value)) == 0 {
			value = []byte("null")
		}
		v, err := netgen.LiteralFromJSON(value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %v", item.Key, err)
		}
		args = append(args, netgen.Arg{Key: item.Key, Value: v})
	}
	return args, nil
}
