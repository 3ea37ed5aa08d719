package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meikuraledutech/netgen/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainExport = `{"pens": [
  {"type": 0, "id": "p1", "name": "Input"},
  {"type": 0, "id": "p2", "name": "Dropout", "data": [{"key": "p", "value": 0.2}]},
  {"type": 0, "id": "p3", "name": "ReLU"},
  {"type": 1, "id": "l1", "from": {"id": "p1"}, "to": {"id": "p2"}},
  {"type": 1, "id": "l2", "from": {"id": "p2"}, "to": {"id": "p3"}}
]}`

const chainDAG = `{
  "nodes": [{"ref": "in", "type": "Input"}, {"ref": "r", "type": "ReLU"}],
  "edges": [{"from_node_ref": "in", "to_node_ref": "r"}]
}`

const dropoutCatalog = `
operator "Dropout" {
  module    = "torch.nn.Dropout"
  arguments = ["p"]
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRun_DiagramWithCatalog(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "chain.json", chainExport)
	catalog := writeFile(t, dir, "ops.hcl", dropoutCatalog)

	out := &bytes.Buffer{}
	err := run(context.Background(), nil, out, []string{"-catalog", catalog, "-class", "Chain", input})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "class Chain(torch.nn.Module):")
	assert.Contains(t, out.String(), "self.dropout_var_2 = torch.nn.Dropout(p=0.2)")
	assert.Contains(t, out.String(), "return out3")
}

func TestRun_UnknownOperatorWithoutCatalog(t *testing.T) {
	input := writeFile(t, t.TempDir(), "chain.json", chainExport)

	err := run(context.Background(), nil, &bytes.Buffer{}, []string{input})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translating chain")
	assert.Contains(t, err.Error(), `"Dropout"`)
}

func TestRun_DAGFromStdinAsJSON(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), strings.NewReader(chainDAG), out, []string{"-format", "JSON", "-id", "piped", "-"})
	require.NoError(t, err)

	var got struct {
		ID      string   `json:"id"`
		Forward []string `json:"forward"`
		Source  string   `json:"source"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "piped", got.ID)
	assert.Equal(t, []string{"out1 = self.input_var_1(input)", "out2 = self.relu_var_2(out1)", "return out2"}, got.Forward)
	assert.Contains(t, got.Source, "class MyModel(torch.nn.Module):")
}

func TestRun_OutputFileAndPublish(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "chain.json", chainDAG)
	dest := filepath.Join(dir, "model.py")
	published := filepath.Join(dir, "published")

	out := &bytes.Buffer{}
	err := run(context.Background(), nil, out, []string{"-o", dest, "-publish", published, input})
	require.NoError(t, err)
	assert.Empty(t, out.String())

	src, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(src), "out2 = self.relu_var_2(out1)")

	entries, err := os.ReadDir(filepath.Join(published, "chain"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRun_PublishRejectsDocumentIDOutsideTarget(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "chain.json", `{"id": "../escaped", "nodes": [{"ref": "in", "type": "Input"}]}`)
	published := filepath.Join(dir, "published")

	err := run(context.Background(), nil, &bytes.Buffer{}, []string{"-publish", published, input})
	require.ErrorIs(t, err, publish.ErrInvalidID)

	_, statErr := os.Stat(filepath.Join(dir, "escaped"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ShouldExit(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), nil, out, []string{"-h"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")

	out.Reset()
	require.NoError(t, run(context.Background(), nil, out, nil))
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"--not-a-flag"}, "flag provided but not defined: -not-a-flag"},
		{"bad format", []string{"-format", "yaml", "in.json"}, "invalid format"},
		{"empty class", []string{"-class", "", "in.json"}, "class name cannot be empty"},
		{"two inputs", []string{"a.json", "b.json"}, "exactly one INPUT"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := run(context.Background(), nil, &bytes.Buffer{}, tc.args)
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestRun_MissingInput(t *testing.T) {
	err := run(context.Background(), nil, &bytes.Buffer{}, []string{filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading input")
}
