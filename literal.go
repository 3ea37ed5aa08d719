package netgen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// FormatLiteral renders v as a literal of the generated language.
// Strings are taken as code text and emitted verbatim.
func FormatLiteral(v cty.Value) (string, error) {
	if !v.IsKnown() {
		return "", fmt.Errorf("netgen: cannot render unknown value")
	}
	if v.IsNull() {
		return "None", nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int(nil)
			return i.String(), nil
		}
		return bf.Text('g', -1), nil
	case ty == cty.Bool:
		if v.True() {
			return "True", nil
		}
		return "False", nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			s, err := FormatLiteral(elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)", nil
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	default:
		return "", fmt.Errorf("netgen: cannot render %s as a literal", ty.FriendlyName())
	}
}

// LiteralFromJSON renders a raw JSON value with FormatLiteral.
func LiteralFromJSON(raw []byte) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return FormatLiteral(cty.NullVal(cty.DynamicPseudoType))
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return "", fmt.Errorf("netgen: infer literal type: %w", err)
	}
	v, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return "", fmt.Errorf("netgen: decode literal: %w", err)
	}
	return FormatLiteral(v)
}
