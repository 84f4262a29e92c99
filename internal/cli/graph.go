package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/graph"
	"github.com/matzehuels/debsrc/pkg/pipeline"
	"github.com/matzehuels/debsrc/pkg/source"
)

// Output formats of the graph command.
const (
	graphDOT  = "dot"
	graphSVG  = "svg"
	graphJSON = "json"
)

type graphOpts struct {
	runFlags
	pkg      string
	fields   []string
	format   string
	output   string
	detailed bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: graphDOT}

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Draw the relations of one source package",
		Long: `Graph assembles one stanza and draws its build relations: the source
package points at every package it depends on, with alternatives grouped
under a diamond and conflict edges drawn dashed.

If the file holds more than one stanza, --package selects which one.`,
		Example: `  debsrc graph hello_2.10-3.dsc --format svg -o hello.svg
  debsrc graph Sources.xz --package coreutils --fields Build-Depends --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd, args[0], &opts)
		},
	}

	opts.runFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.pkg, "package", "p", "", "source package to draw when the file has several stanzas")
	cmd.Flags().StringSliceVar(&opts.fields, "fields", nil, "relation fields to include (default all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg or json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label edges with version constraints, architectures and profiles")

	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, path string, opts *graphOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	if err := validateFields(opts.fields); err != nil {
		return err
	}

	inputs, err := readInputs([]string{path}, cmd.InOrStdin())
	if err != nil {
		return err
	}
	in, err := selectInput(inputs, opts.pkg)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	out := runner.Assemble(ctx, in, c.pipelineOptions(cmd, &opts.runFlags))
	if out.Err != nil {
		return out.Err
	}

	g := graph.Build(out.Result.Record, opts.fields...)
	data, err := renderGraph(g, opts.format, opts.detailed)
	if err != nil {
		return err
	}

	w := c.out
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", opts.output)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Drew %s %s: %d nodes, %d edges", out.Result.Record.Name, out.Result.Record.Version, g.NodeCount(), g.EdgeCount())
		printFile(opts.output)
	}
	return nil
}

// validateFields rejects names that are not relation fields.
func validateFields(fields []string) error {
	for _, f := range fields {
		if !slices.Contains(source.RelationFields, f) {
			return errors.ForField(errors.ErrCodeInvalidInput, "fields",
				"%q is not a relation field (want one of %s)", f, strings.Join(source.RelationFields, ", "))
		}
	}
	return nil
}

// selectInput picks the stanza for pkg, or the only stanza when pkg is empty.
func selectInput(inputs []pipeline.Input, pkg string) (pipeline.Input, error) {
	if pkg == "" {
		switch len(inputs) {
		case 0:
			return pipeline.Input{}, errors.New(errors.ErrCodeInvalidInput, "no stanzas in input")
		case 1:
			return inputs[0], nil
		default:
			return pipeline.Input{}, errors.ForField(errors.ErrCodeInvalidInput, "package",
				"input holds %d stanzas; choose one with --package", len(inputs))
		}
	}
	for _, in := range inputs {
		if in.Identity.Package == pkg {
			return in, nil
		}
	}
	return pipeline.Input{}, errors.ForField(errors.ErrCodeInvalidInput, "package", "no stanza for source package %q", pkg)
}

func renderGraph(g *graph.Graph, format string, detailed bool) ([]byte, error) {
	switch format {
	case graphDOT:
		return []byte(graph.ToDOT(g, graph.Options{Detailed: detailed})), nil
	case graphSVG:
		return graph.RenderSVG(graph.ToDOT(g, graph.Options{Detailed: detailed}))
	case graphJSON:
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, errors.ForField(errors.ErrCodeInvalidInput, "format", "unknown graph format %q (want dot, svg or json)", format)
}
