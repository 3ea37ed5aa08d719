package operator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/meikuraledutech/netgen"
	"k8s.io/klog/v2"
)

// catalogFile is the top-level schema of an operator catalog file.
type catalogFile struct {
	Operators []*operatorBlock `hcl:"operator,block"`
}

type operatorBlock struct {
	Type        string         `hcl:"type,label"`
	Module      string         `hcl:"module,optional"`
	Function    string         `hcl:"function,optional"`
	Arguments   []string       `hcl:"arguments,optional"`
	Defaults    hcl.Expression `hcl:"defaults,optional"`
	PackInputs  bool           `hcl:"pack_inputs,optional"`
	Description string         `hcl:"description,optional"`
}

// LoadCatalog parses every .hcl file under paths and registers its operators
// into r, overriding operators of the same type. Files are applied in lexical
// path order. The registry is validated once all files are merged.
func LoadCatalog(ctx context.Context, r *Registry, paths ...string) error {
	log := klog.FromContext(ctx)

	files, err := findCatalogFiles(paths)
	if err != nil {
		return err
	}
	log.V(2).Info("discovered catalog files", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse catalog %s: %w", file, diags)
		}
		modules, err := decodeCatalog(f.Body)
		if err != nil {
			return fmt.Errorf("catalog %s: %w", file, err)
		}
		for _, m := range modules {
			if _, err := r.Lookup(m.Tag); err == nil {
				log.Info("catalog overrides operator", "type", m.Tag, "file", file)
			}
			r.Register(m)
		}
		log.V(2).Info("loaded catalog", "file", file, "operators", len(modules))
	}

	return r.Validate()
}

// ParseCatalog decodes catalog source held in memory.
func ParseCatalog(src []byte, filename string) ([]*Module, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", filename, diags)
	}
	return decodeCatalog(f.Body)
}

func decodeCatalog(body hcl.Body) ([]*Module, error) {
	var root catalogFile
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, diags
	}

	modules := make([]*Module, 0, len(root.Operators))
	for _, ob := range root.Operators {
		defaults, err := decodeDefaults(ob)
		if err != nil {
			return nil, err
		}
		modules = append(modules, &Module{
			Tag:         ob.Type,
			Class:       ob.Module,
			Function:    ob.Function,
			Arguments:   ob.Arguments,
			Defaults:    defaults,
			PackInputs:  ob.PackInputs,
			Description: ob.Description,
		})
	}
	return modules, nil
}

// decodeDefaults renders the defaults object into literal code text per argument.
func decodeDefaults(ob *operatorBlock) (map[string]string, error) {
	if ob.Defaults == nil {
		return nil, nil
	}
	val, diags := ob.Defaults.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid defaults for operator '%s': %w", ob.Type, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("defaults for operator '%s' must be an object, got %s", ob.Type, ty.FriendlyName())
	}

	defaults := make(map[string]string)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		s, err := netgen.FormatLiteral(v)
		if err != nil {
			return nil, fmt.Errorf("operator '%s', default '%s': %w", ob.Type, k.AsString(), err)
		}
		defaults[k.AsString()] = s
	}
	return defaults, nil
}

// findCatalogFiles walks all given paths and returns a sorted list of the .hcl files found.
func findCatalogFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing catalog path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
