package diagram

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meikuraledutech/netgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `{
  "pens": [
    {"type": 0, "id": "p1", "name": "Input", "text": "Input", "data": null,
     "fontFamily":""Hiragino Sans GB", "Microsoft YaHei", "Helvetica Neue", Helvetica, Arial", "fontSize": 12},
    {"type": 0, "id": "p2", "name": "Conv2D", "text": "Conv",
     "data": [
       {"key": "in_channels", "value": "3"},
       {"key": "out_channels", "value": 16},
       {"key": "kernel_size", "value": [3, 3]},
       {"key": "stride", "value": 1},
       {"key": "padding", "value": "same"}
     ]},
    {"type": 1, "id": "l1", "name": "curve", "from": {"id": "p1"}, "to": {"id": "p2"}},
    {"type": 0, "id": "p3", "name": "ReLU", "text": "ReLU", "data": ""},
    {"type": 1, "id": "l2", "name": "curve", "from": {"id": "p2"}, "to": {"id": "p3"}}
  ]
}`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(export), "model")
	require.NoError(t, err)

	assert.Equal(t, "model", d.ID)
	require.Len(t, d.Nodes, 3)
	assert.Equal(t, netgen.Node{ID: "p1", Type: "Input", Text: "Input"}, d.Nodes[0])
	assert.Equal(t, []netgen.Arg{
		{Key: "in_channels", Value: "3"},
		{Key: "out_channels", Value: "16"},
		{Key: "kernel_size", Value: "(3, 3)"},
		{Key: "stride", Value: "1"},
		{Key: "padding", Value: "same"},
	}, d.Nodes[1].Args)
	assert.Nil(t, d.Nodes[2].Args)

	assert.Equal(t, []netgen.Edge{
		{ID: "l1", FromNodeID: "p1", ToNodeID: "p2"},
		{ID: "l2", FromNodeID: "p2", ToNodeID: "p3"},
	}, d.Edges)
}

func TestParse_TranslatesToGraph(t *testing.T) {
	d, err := Parse([]byte(export), "model")
	require.NoError(t, err)

	g, err := netgen.NewGraph(d)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Input)
	assert.Equal(t, []int{0}, g.Blocks[1].Preds)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"not json", `{"pens": [`, "malformed"},
		{"dangling line", `{"pens": [{"type": 1, "id": "l1", "from": {"id": "p1"}}]}`, `line "l1" is not connected`},
		{"data not a list", `{"pens": [{"type": 0, "id": "p1", "name": "ReLU", "data": {"k": 1}}]}`, "list of {key, value}"},
		{"empty key", `{"pens": [{"type": 0, "id": "p1", "name": "ReLU", "data": [{"key": "", "value": 1}]}]}`, "empty key"},
		{"object value", `{"pens": [{"type": 0, "id": "p1", "name": "ReLU", "data": [{"key": "k", "value": {"a": 1}}]}]}`, `argument "k"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "x")
			require.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestParse_MissingValueIsNone(t *testing.T) {
	d, err := Parse([]byte(`{"pens": [{"type": 0, "id": "p1", "name": "Linear", "data": [{"key": "bias"}]}]}`), "x")
	require.NoError(t, err)
	assert.Equal(t, []netgen.Arg{{Key: "bias", Value: "None"}}, d.Nodes[0].Args)
}

func TestIsDiagram(t *testing.T) {
	assert.True(t, IsDiagram([]byte(export)))
	assert.True(t, IsDiagram([]byte(`{"pens": []}`)))
	assert.False(t, IsDiagram([]byte(`{"id": "x", "nodes": [], "edges": []}`)))
	assert.False(t, IsDiagram([]byte(`[1, 2]`)))
}

func TestDecodeAndLoad(t *testing.T) {
	d, err := Decode(strings.NewReader(export), "from-reader")
	require.NoError(t, err)
	assert.Equal(t, "from-reader", d.ID)

	path := filepath.Join(t.TempDir(), "resnet.json")
	require.NoError(t, os.WriteFile(path, []byte(export), 0600))

	d, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "resnet", d.ID)
	assert.Len(t, d.Nodes, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
