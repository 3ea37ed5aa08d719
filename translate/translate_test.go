package translate

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/meikuraledutech/netgen"
	"github.com/meikuraledutech/netgen/operator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2/ktesting"
)

func conv(ref string) netgen.Node {
	return netgen.Node{Ref: ref, Type: "Conv2D", Args: []netgen.Arg{
		{Key: "in_channels", Value: "3"},
		{Key: "out_channels", Value: "8"},
		{Key: "kernel_size", Value: "3"},
		{Key: "stride", Value: "1"},
		{Key: "padding", Value: "0"},
	}}
}

func edge(from, to string) netgen.Edge {
	return netgen.Edge{FromNodeRef: from, ToNodeRef: to}
}

func diamond() *netgen.DAG {
	return &netgen.DAG{
		ID: "diamond",
		Nodes: []netgen.Node{
			{Ref: "in", Type: "Input"},
			conv("left"),
			conv("right"),
			{Ref: "cat", Type: "Concatenation"},
		},
		Edges: []netgen.Edge{edge("in", "left"), edge("in", "right"), edge("left", "cat"), edge("right", "cat")},
	}
}

func translateDAG(t *testing.T, d *netgen.DAG) (*Program, error) {
	t.Helper()
	_, ctx := ktesting.NewTestContext(t)
	return FromDAG(ctx, operator.Builtin(), d)
}

func TestTranslate_LinearChain(t *testing.T) {
	p, err := translateDAG(t, &netgen.DAG{
		Nodes: []netgen.Node{{Ref: "in", Type: "Input"}, conv("conv"), {Ref: "relu", Type: "ReLU"}},
		Edges: []netgen.Edge{edge("in", "conv"), edge("conv", "relu")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"self.input_var_1 = torch.nn.Identity()",
		"self.conv2d_var_2 = torch.nn.Conv2d(in_channels=3, out_channels=8, kernel_size=3, stride=1, padding=0)",
		"self.relu_var_3 = torch.nn.ReLU()",
	}, p.Declarations)
	assert.Equal(t, []string{
		"out1 = self.input_var_1(input)",
		"out2 = self.conv2d_var_2(out1)",
		"out3 = self.relu_var_3(out2)",
	}, p.Calls)
	assert.Equal(t, []string{"out3"}, p.Outputs)
	assert.Equal(t, "return out3", p.Return())
	assert.Len(t, p.Forward(), 4)
}

func TestTranslate_DiamondIntoConcatenation(t *testing.T) {
	p, err := translateDAG(t, diamond())
	require.NoError(t, err)

	// The concatenation consumes a name but declares nothing.
	assert.Equal(t, []string{
		"self.input_var_1 = torch.nn.Identity()",
		"self.conv2d_var_2 = torch.nn.Conv2d(in_channels=3, out_channels=8, kernel_size=3, stride=1, padding=0)",
		"self.conv2d_var_3 = torch.nn.Conv2d(in_channels=3, out_channels=8, kernel_size=3, stride=1, padding=0)",
	}, p.Declarations)
	assert.Equal(t, []string{
		"out1 = self.input_var_1(input)",
		"out2 = self.conv2d_var_2(out1)",
		"out3 = self.conv2d_var_3(out1)",
		"out4 = torch.stack((out2, out3), dim=0)",
	}, p.Calls)
	assert.Equal(t, "return out4", p.Return())
}

func TestTranslate_FanInFollowsEdgeOrder(t *testing.T) {
	d := diamond()
	d.Edges = []netgen.Edge{edge("in", "left"), edge("in", "right"), edge("right", "cat"), edge("left", "cat")}

	p, err := translateDAG(t, d)
	require.NoError(t, err)
	assert.Equal(t, "out4 = torch.stack((out3, out2), dim=0)", p.Calls[3])
}

func TestTranslate_FanInWaitsForAllPredecessors(t *testing.T) {
	// The short branch reaches cat long before the long one; cat must still come last.
	p, err := translateDAG(t, &netgen.DAG{
		Nodes: []netgen.Node{
			{Ref: "in", Type: "Input"},
			{Ref: "cat", Type: "Concatenation"},
			{Ref: "a", Type: "ReLU"},
			{Ref: "b", Type: "ReLU"},
			{Ref: "c", Type: "ReLU"},
		},
		Edges: []netgen.Edge{edge("in", "cat"), edge("in", "a"), edge("a", "b"), edge("b", "c"), edge("c", "cat")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"out1 = self.input_var_1(input)",
		"out2 = self.relu_var_2(out1)",
		"out3 = self.relu_var_3(out2)",
		"out4 = self.relu_var_4(out3)",
		"out5 = torch.stack((out1, out4), dim=0)",
	}, p.Calls)
	assert.Equal(t, []string{"out5"}, p.Outputs)
}

func TestTranslate_TwoTerminals(t *testing.T) {
	// y is listed before t but t is discovered first.
	p, err := translateDAG(t, &netgen.DAG{
		Nodes: []netgen.Node{
			{Ref: "in", Type: "Input"},
			{Ref: "x", Type: "ReLU"},
			{Ref: "y", Type: "ReLU"},
			{Ref: "t", Type: "Softmax"},
		},
		Edges: []netgen.Edge{edge("in", "x"), edge("x", "y"), edge("in", "t")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"out1 = self.input_var_1(input)",
		"out2 = self.relu_var_2(out1)",
		"out3 = self.softmax_var_3(out1)",
		"out4 = self.relu_var_4(out2)",
	}, p.Calls)
	assert.Equal(t, []string{"out3", "out4"}, p.Outputs)
	assert.Equal(t, "return (out3, out4)", p.Return())
}

func TestTranslate_InputOnly(t *testing.T) {
	p, err := translateDAG(t, &netgen.DAG{Nodes: []netgen.Node{{Ref: "in", Type: "Input"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"out1 = self.input_var_1(input)"}, p.Calls)
	assert.Equal(t, "return out1", p.Return())
}

func TestTranslate_DuplicateEdgePassesInputTwice(t *testing.T) {
	p, err := translateDAG(t, &netgen.DAG{
		Nodes: []netgen.Node{{Ref: "in", Type: "Input"}, {Ref: "cat", Type: "Concatenation"}},
		Edges: []netgen.Edge{edge("in", "cat"), edge("in", "cat")},
	})
	require.NoError(t, err)
	assert.Equal(t, "out2 = torch.stack((out1, out1), dim=0)", p.Calls[1])
}

func TestTranslate_SkipsUnreachableBlocks(t *testing.T) {
	d := diamond()
	d.Nodes = append(d.Nodes, netgen.Node{Ref: "stray", Type: "Transformer"}, netgen.Node{Ref: "stray2", Type: "ReLU"})
	d.Edges = append(d.Edges, edge("stray", "stray2"))

	_, ctx := ktesting.NewTestContext(t)
	g, err := netgen.NewGraph(d)
	require.NoError(t, err)

	p, err := New(operator.Builtin()).Translate(ctx, g)
	require.NoError(t, err)
	assert.Len(t, p.Calls, 4)
	assert.Equal(t, []string{"out4"}, p.Outputs)
	for _, i := range []int{4, 5} {
		assert.Empty(t, g.Blocks[i].DeclaredName)
		assert.Empty(t, g.Blocks[i].EvalName)
	}
}

func TestTranslate_MissingArgumentIsFatal(t *testing.T) {
	d := diamond()
	d.Nodes[2].Args = d.Nodes[2].Args[:4] // drop padding from the right branch

	p, err := translateDAG(t, d)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, operator.ErrMissingArgument)
	assert.Contains(t, err.Error(), "declaring blocks")
	assert.Contains(t, err.Error(), `"right"`)
	assert.Contains(t, err.Error(), `"padding"`)
}

func TestTranslate_UnknownOperatorIsFatal(t *testing.T) {
	d := diamond()
	d.Nodes[3].Type = "Attention"

	p, err := translateDAG(t, d)
	require.ErrorIs(t, err, operator.ErrUnknownOperator)
	assert.Nil(t, p)
}

func TestTranslate_GraphIntegrity(t *testing.T) {
	d := diamond()
	d.Edges = append(d.Edges, edge("cat", "left"))

	p, err := translateDAG(t, d)
	require.ErrorIs(t, err, netgen.ErrGraphIntegrity)
	assert.Nil(t, p)
}

func TestTranslate_RepeatedRunsAreIdentical(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	g, err := netgen.NewGraph(diamond())
	require.NoError(t, err)

	tr := New(operator.Builtin())
	first, err := tr.Translate(ctx, g)
	require.NoError(t, err)
	second, err := tr.Translate(ctx, g)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "maxpooling2d", identifier("MaxPooling2D"))
	assert.Equal(t, "batch_norm_2d", identifier("Batch-Norm 2D"))
	assert.Equal(t, "_2dconv", identifier("2DConv"))
	assert.Equal(t, "_", identifier(""))
}

func TestTranslate_TagWithLeadingDigit(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	reg := operator.Builtin()
	reg.Register(&operator.Module{Tag: "2DConv", Class: "torch.nn.LazyConv2d", Arguments: []string{"out_channels"}})

	p, err := FromDAG(ctx, reg, &netgen.DAG{
		Nodes: []netgen.Node{{Ref: "in", Type: "Input"}, {Ref: "c", Type: "2DConv", Args: []netgen.Arg{{Key: "out_channels", Value: "4"}}}},
		Edges: []netgen.Edge{edge("in", "c")},
	})
	require.NoError(t, err)
	assert.Equal(t, "self._2dconv_var_2 = torch.nn.LazyConv2d(out_channels=4)", p.Declarations[1])
	assert.Equal(t, "out2 = self._2dconv_var_2(out1)", p.Calls[1])
}

// randomDAG builds a DAG whose every block is reachable from the Input block
// at index 0. Edges only point from lower to higher indices.
func randomDAG(rng *rand.Rand, n int) *netgen.DAG {
	d := &netgen.DAG{Nodes: []netgen.Node{{ID: "b0", Type: "Input"}}}
	for j := 1; j < n; j++ {
		tag := "ReLU"
		if rng.Intn(3) == 0 {
			tag = "Concatenation"
		}
		d.Nodes = append(d.Nodes, netgen.Node{ID: "b" + strconv.Itoa(j), Type: tag})
		d.Edges = append(d.Edges, netgen.Edge{FromNodeID: "b" + strconv.Itoa(rng.Intn(j)), ToNodeID: "b" + strconv.Itoa(j)})
		for i := 0; i < j; i++ {
			if rng.Intn(4) == 0 {
				d.Edges = append(d.Edges, netgen.Edge{FromNodeID: "b" + strconv.Itoa(i), ToNodeID: "b" + strconv.Itoa(j)})
			}
		}
	}
	rng.Shuffle(len(d.Edges), func(a, b int) { d.Edges[a], d.Edges[b] = d.Edges[b], d.Edges[a] })
	return d
}

func nameIndex(t *testing.T, name, prefix string) int {
	t.Helper()
	i := strings.LastIndex(name, prefix)
	require.GreaterOrEqual(t, i, 0, "name %q lacks %q", name, prefix)
	n, err := strconv.Atoi(name[i+len(prefix):])
	require.NoError(t, err)
	return n
}

func TestTranslate_RandomGraphProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	reg := operator.Builtin()

	for run := 0; run < 50; run++ {
		d := randomDAG(rng, 2+rng.Intn(15))
		t.Run(fmt.Sprintf("graph_%d", run), func(t *testing.T) {
			_, ctx := ktesting.NewTestContext(t)
			g, err := netgen.NewGraph(d)
			require.NoError(t, err)

			p, err := New(reg).Translate(ctx, g)
			require.NoError(t, err)
			require.Len(t, p.Calls, len(g.Blocks))

			declared := make(map[string]bool)
			evaluated := make(map[string]bool)
			var terminals []string
			for _, b := range g.Blocks {
				require.NotEmpty(t, b.DeclaredName)
				require.NotEmpty(t, b.EvalName)
				assert.False(t, declared[b.DeclaredName], "duplicate declared name %s", b.DeclaredName)
				assert.False(t, evaluated[b.EvalName], "duplicate eval name %s", b.EvalName)
				declared[b.DeclaredName] = true
				evaluated[b.EvalName] = true

				for _, pred := range b.Preds {
					pb := g.Blocks[pred]
					assert.Less(t, nameIndex(t, pb.DeclaredName, "_var_"), nameIndex(t, b.DeclaredName, "_var_"))
					assert.Less(t, nameIndex(t, pb.EvalName, "out"), nameIndex(t, b.EvalName, "out"))
				}
				if len(b.Succs) == 0 {
					terminals = append(terminals, b.EvalName)
				}
			}

			// Outputs are the terminals in evaluation order.
			assert.ElementsMatch(t, terminals, p.Outputs)
			for i := 1; i < len(p.Outputs); i++ {
				assert.Less(t, nameIndex(t, p.Outputs[i-1], "out"), nameIndex(t, p.Outputs[i], "out"))
			}

			again, err := FromDAG(ctx, reg, d)
			require.NoError(t, err)
			assert.Equal(t, p, again)
		})
	}
}
