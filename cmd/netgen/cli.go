package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"k8s.io/klog/v2"
)

// ExitError is an error that carries a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Config holds everything a single CLI invocation needs.
type Config struct {
	InputPath string // diagram export or DAG JSON; "-" reads stdin
	DAGID     string
	Catalogs  []string
	ClassName string
	Format    string // "python" or "json"
	OutPath   string
	PublishTo string
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// parse processes command-line arguments. It returns the Config, whether the
// program should exit cleanly (help), or an ExitError.
func parse(args []string, output io.Writer) (*Config, bool, error) {
	fs := flag.NewFlagSet("netgen", flag.ContinueOnError)
	fs.SetOutput(output)
	klog.InitFlags(fs)

	fs.Usage = func() {
		fmt.Fprint(output, `
netgen - generate a PyTorch model class from a block diagram.

Usage:
  netgen [options] INPUT

Arguments:
  INPUT
    Diagram editor export or DAG JSON document. "-" reads standard input.

Options:
`)
		fs.PrintDefaults()
	}

	var cfg Config
	var catalogs stringList
	fs.Var(&catalogs, "catalog", "Operator catalog file or directory of .hcl files (repeatable).")
	fs.StringVar(&cfg.DAGID, "id", "", "DAG id; defaults to the input file name.")
	fs.StringVar(&cfg.ClassName, "class", "MyModel", "Name of the generated model class.")
	fs.StringVar(&cfg.Format, "format", "python", "Output format: 'python' or 'json'.")
	fs.StringVar(&cfg.OutPath, "o", "", "Write output to this file instead of stdout.")
	fs.StringVar(&cfg.PublishTo, "publish", "", "Also publish the source to gs://bucket/prefix or a directory.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return nil, true, nil
	}
	if fs.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "exactly one INPUT is accepted"}
	}
	cfg.InputPath = fs.Arg(0)
	cfg.Catalogs = catalogs

	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Format != "python" && cfg.Format != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid format: must be 'python' or 'json'"}
	}
	if cfg.ClassName == "" {
		return nil, false, &ExitError{Code: 2, Message: "class name cannot be empty"}
	}

	return &cfg, false, nil
}
