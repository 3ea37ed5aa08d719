package translate

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"text/template"
)

// DefaultClassName names the generated model class when none is given.
const DefaultClassName = "MyModel"

//go:embed model.py.tmpl
var modelTemplateText string

var modelTemplate = template.Must(template.New("model").Parse(modelTemplateText))

type modelData struct {
	ClassName string
	*Program
}

// Render writes the model class built from p to w.
func Render(w io.Writer, p *Program, className string) error {
	if className == "" {
		className = DefaultClassName
	}
	if err := modelTemplate.Execute(w, modelData{ClassName: className, Program: p}); err != nil {
		return fmt.Errorf("rendering model: %w", err)
	}
	return nil
}

// Source returns the rendered model class.
func Source(p *Program, className string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, p, className); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
