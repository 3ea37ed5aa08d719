package operator

import "github.com/meikuraledutech/netgen"

// builtins is the catalog the diagram tool ships with.
var builtins = []*Module{
	{Tag: netgen.InputType, Class: "torch.nn.Identity", Description: "Model input; passes its value through."},
	{
		Tag:       "Conv2D",
		Class:     "torch.nn.Conv2d",
		Arguments: []string{"in_channels", "out_channels", "kernel_size", "stride", "padding"},
	},
	{Tag: "MaxPooling2D", Class: "torch.nn.MaxPool2d", Arguments: []string{"kernel_size"}},
	{Tag: "ReLU", Class: "torch.nn.ReLU"},
	{Tag: "Linear", Class: "torch.nn.Linear", Arguments: []string{"in_features", "out_features"}},
	{Tag: "Softmax", Class: "torch.nn.Softmax2d"},
	{
		Tag:         "Concatenation",
		Function:    "torch.stack",
		Arguments:   []string{"dim"},
		Defaults:    map[string]string{"dim": "0"},
		PackInputs:  true,
		Description: "Stacks its inputs along dim.",
	},
}

// Builtin returns a Registry holding the built-in operators.
func Builtin() *Registry {
	r := New()
	for _, m := range builtins {
		cp := *m
		r.Register(&cp)
	}
	return r
}
