package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meikuraledutech/netgen"
	"github.com/meikuraledutech/netgen/diagram"
	"github.com/meikuraledutech/netgen/operator"
	"github.com/meikuraledutech/netgen/publish"
	"github.com/meikuraledutech/netgen/translate"
	"k8s.io/klog/v2"
)

func main() {
	err := run(context.Background(), os.Stdin, os.Stdout, os.Args[1:])
	klog.Flush()
	if err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run is the whole CLI with its I/O injected.
func run(ctx context.Context, stdin io.Reader, stdout io.Writer, args []string) error {
	cfg, shouldExit, err := parse(args, stdout)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	log := klog.FromContext(ctx)

	reg := operator.Builtin()
	if len(cfg.Catalogs) > 0 {
		if err := operator.LoadCatalog(ctx, reg, cfg.Catalogs...); err != nil {
			return err
		}
	}

	d, err := readDAG(stdin, cfg)
	if err != nil {
		return err
	}
	log.V(1).Info("loaded dag", "id", d.ID, "nodes", len(d.Nodes), "edges", len(d.Edges))

	p, err := translate.FromDAG(ctx, reg, d)
	if err != nil {
		return fmt.Errorf("translating %s: %w", d.ID, err)
	}
	src, err := translate.Source(p, cfg.ClassName)
	if err != nil {
		return err
	}

	if cfg.PublishTo != "" {
		pub, err := publish.Open(cfg.PublishTo)
		if err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		location, err := pub.Publish(ctx, d.ID, src)
		if err != nil {
			return fmt.Errorf("publishing %s: %w", d.ID, err)
		}
		log.Info("published model source", "location", location)
	}

	out := src
	if cfg.Format == "json" {
		out, err = json.MarshalIndent(struct {
			ID           string   `json:"id"`
			Declarations []string `json:"declarations"`
			Forward      []string `json:"forward"`
			Outputs      []string `json:"outputs"`
			Source       string   `json:"source"`
		}{d.ID, p.Declarations, p.Forward(), p.Outputs, string(src)}, "", "  ")
		if err != nil {
			return err
		}
		out = append(out, '\n')
	}

	if cfg.OutPath == "" {
		_, err := stdout.Write(out)
		return err
	}
	if _, err := publish.WriteFile(ctx, bytes.NewReader(out), cfg.OutPath); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.OutPath, err)
	}
	return nil
}

// readDAG loads the input as a diagram export when it has pens, as a DAG document otherwise.
func readDAG(stdin io.Reader, cfg *Config) (*netgen.DAG, error) {
	var (
		src []byte
		err error
	)
	id := cfg.DAGID
	if cfg.InputPath == "-" {
		src, err = io.ReadAll(stdin)
		if id == "" {
			id = "stdin"
		}
	} else {
		src, err = os.ReadFile(cfg.InputPath)
		if id == "" {
			base := filepath.Base(cfg.InputPath)
			id = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	if diagram.IsDiagram(src) {
		return diagram.Parse(src, id)
	}

	var d netgen.DAG
	if err := json.Unmarshal(src, &d); err != nil {
		return nil, fmt.Errorf("decoding DAG document: %w", err)
	}
	if d.ID == "" || cfg.DAGID != "" {
		d.ID = id
	}
	return &d, nil
}
