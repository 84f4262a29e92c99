package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debsrc/pkg/deb822"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/export"
	"github.com/matzehuels/debsrc/pkg/pipeline"
	"github.com/matzehuels/debsrc/pkg/store"
)

// Output formats of the parse command.
const (
	formatJSON  = "json"
	formatJSONL = "jsonl"
)

// parseOpts holds the command-line flags for the parse command.
type parseOpts struct {
	runFlags
	format string // json or jsonl
	output string // output file path (stdout if empty)
	store  bool   // upsert records into MongoDB
}

// parseCommand creates the parse command.
func (c *CLI) parseCommand() *cobra.Command {
	opts := parseOpts{format: formatJSON}

	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Assemble source stanzas into structured records",
		Long: `Parse reads Debian source control stanzas and assembles each one into a
record. Files may be plain, gzip, xz or zstd compressed. With no file, or
with "-", stanzas are read from stdin.

A record that fails to assemble is reported and skipped; the command exits
non-zero if any record failed. Use --fail-fast to stop at the first one.`,
		Example: `  # Parse an archive index
  debsrc parse /var/lib/apt/lists/deb.debian.org_debian_dists_sid_main_source_Sources.xz

  # Stream records as JSON lines
  debsrc parse Sources.gz --format jsonl -o sources.jsonl

  # Parse a single .dsc and keep unrecognised fields
  debsrc parse --passthrough hello_2.10-3.dsc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd, args, &opts)
		},
	}

	opts.runFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json or jsonl")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.store, "store", false, "upsert records into the configured MongoDB collection")

	return cmd
}

func (c *CLI) runParse(cmd *cobra.Command, args []string, opts *parseOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	if opts.format != formatJSON && opts.format != formatJSONL {
		return errors.ForField(errors.ErrCodeInvalidInput, "format", "unknown output format %q (want json or jsonl)", opts.format)
	}
	if opts.store && c.Config.Mongo.URI == "" {
		return errors.ForField(errors.ErrCodeInvalidInput, "mongo.uri", "--store needs mongo.uri or DEBSRC_MONGO_URI")
	}

	prog := newProgress(c.Logger)
	inputs, err := readInputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Read %d stanzas", len(inputs)))

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	batch, err := runner.Run(ctx, inputs, c.pipelineOptions(cmd, &opts.runFlags))
	if err != nil {
		return err
	}

	if err := c.writeBatch(ctx, runner, batch, opts); err != nil {
		return err
	}
	if opts.store {
		if err := c.storeBatch(ctx, runner, batch); err != nil {
			return err
		}
	}

	reportBatch(batch)
	if batch.Stats.Failed > 0 {
		return fmt.Errorf("%d of %d records failed", batch.Stats.Failed, batch.Stats.Records)
	}
	return nil
}

// readInputs reads the stanzas of every path in order and renumbers them so
// that indexes are unique across files. No paths, or "-", means r.
func readInputs(paths []string, r io.Reader) ([]pipeline.Input, error) {
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	var all []pipeline.Input
	for _, path := range paths {
		var (
			inputs []pipeline.Input
			err    error
		)
		if path == "-" {
			inputs, err = readStdin(r)
		} else {
			inputs, err = pipeline.LoadInputs(path)
		}
		if err != nil {
			return nil, err
		}
		for _, in := range inputs {
			in.Index = len(all)
			all = append(all, in)
		}
	}
	return all, nil
}

func readStdin(r io.Reader) ([]pipeline.Input, error) {
	rc, err := deb822.Decompress(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return pipeline.ReadInputs(rc)
}

func (c *CLI) writeBatch(ctx context.Context, runner *pipeline.Runner, batch *pipeline.Batch, opts *parseOpts) (err error) {
	w := c.out
	if opts.output != "" {
		f, cerr := os.Create(opts.output)
		if cerr != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, cerr, "create %s", opts.output)
		}
		defer closeOutput(f, &err)
		w = f
	}

	switch opts.format {
	case formatJSONL:
		if _, err := runner.Emit(ctx, batch, export.NewJSONLinesSink(w)); err != nil {
			return err
		}
	default:
		if err := export.WriteJSON(batch.Documents(), w); err != nil {
			return err
		}
	}
	if opts.output != "" {
		printFile(opts.output)
	}
	return nil
}

// closeOutput closes f, keeping an earlier error in *err if there is one.
func closeOutput(f *os.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close %s: %w", f.Name(), cerr)
	}
}

func (c *CLI) storeBatch(ctx context.Context, runner *pipeline.Runner, batch *pipeline.Batch) error {
	sink, err := store.NewMongoSink(ctx, store.MongoOptions{
		URI:        c.Config.Mongo.URI,
		Database:   c.Config.Mongo.Database,
		Collection: c.Config.Mongo.Collection,
	})
	if err != nil {
		return err
	}
	defer sink.Close(context.WithoutCancel(ctx))

	n, err := runner.Emit(ctx, batch, sink)
	if err != nil {
		return err
	}
	printSuccess("Stored %d records in %s.%s", n, c.Config.Mongo.Database, c.Config.Mongo.Collection)
	return nil
}

// reportBatch prints the batch summary and one line per failed record.
func reportBatch(batch *pipeline.Batch) {
	for _, o := range batch.Failures() {
		where := fmt.Sprintf("stanza %d", o.Input.Index+1)
		if o.Input.Line > 0 {
			where += fmt.Sprintf(" (line %d)", o.Input.Line)
		}
		printError("%s: %s", where, errors.UserMessage(o.Err))
	}

	diagnostics := 0
	for _, o := range batch.Outcomes {
		diagnostics += len(o.Diagnostics)
	}
	if diagnostics > 0 {
		printWarning("%d diagnostics logged", diagnostics)
	}
	if batch.Stats.Failed == 0 {
		printSuccess("Assembled %d records", batch.Stats.Records)
	}
	printStats(batch.Stats)
}
