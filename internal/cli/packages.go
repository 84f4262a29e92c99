package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debsrc/pkg/deb822"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/export"
	"github.com/matzehuels/debsrc/pkg/pipeline"
	"github.com/matzehuels/debsrc/pkg/source"
)

type packagesOpts struct {
	format      string
	output      string
	passthrough bool
}

// packagesCommand creates the packages command.
func (c *CLI) packagesCommand() *cobra.Command {
	opts := packagesOpts{format: formatJSON}

	cmd := &cobra.Command{
		Use:   "packages [file...]",
		Short: "Assemble binary stanzas from a Packages index or dpkg status file",
		Long: `Packages reads binary package stanzas, as found in an archive's Packages
index or in /var/lib/dpkg/status, and assembles each into a record with its
file, flags and package relationships. Source stanzas in the input are
skipped with a warning.`,
		Example: `  debsrc packages /var/lib/apt/lists/deb.debian.org_debian_dists_sid_main_binary-amd64_Packages.xz
  debsrc packages /var/lib/dpkg/status --format jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPackages(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json or jsonl")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.passthrough, "passthrough", false, "keep fields outside the schema in each record")

	return cmd
}

func (c *CLI) runPackages(cmd *cobra.Command, args []string, opts *packagesOpts) (err error) {
	if opts.format != formatJSON && opts.format != formatJSONL {
		return errors.ForField(errors.ErrCodeInvalidInput, "format", "unknown output format %q (want json or jsonl)", opts.format)
	}

	prog := newProgress(c.Logger)
	inputs, err := readInputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Read %d stanzas", len(inputs)))

	var (
		docs    []*export.BinaryDocument
		failed  int
		skipped int
	)
	for _, in := range inputs {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		doc, err := c.assembleBinary(in, opts.passthrough)
		switch {
		case errors.Is(err, errors.ErrCodeUnsupported):
			skipped++
		case err != nil:
			failed++
			printError("stanza %d (line %d): %s", in.Index+1, in.Line, errors.UserMessage(err))
		default:
			docs = append(docs, doc)
		}
	}

	w := c.out
	if opts.output != "" {
		f, cerr := os.Create(opts.output)
		if cerr != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, cerr, "create %s", opts.output)
		}
		defer closeOutput(f, &err)
		w = f
	}
	if err := export.WriteBinaryJSON(docs, w, opts.format == formatJSONL); err != nil {
		return err
	}

	if skipped > 0 {
		printWarning("Skipped %d source stanzas (use debsrc parse)", skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, len(inputs))
	}
	printSuccess("Assembled %d binary records", len(docs))
	return nil
}

// assembleBinary assembles one input. Source stanzas fail with UNSUPPORTED.
func (c *CLI) assembleBinary(in pipeline.Input, passthrough bool) (*export.BinaryDocument, error) {
	st, err := deb822.ParseStanza(in.Text)
	if err != nil {
		return nil, err
	}
	if source.Detect(st) == source.KindSource {
		return nil, errors.New(errors.ErrCodeUnsupported, "%s is a source stanza", in.Identity)
	}
	res, err := source.AssembleBinary(st, in.Identity, source.Options{
		Passthrough: passthrough,
		Report: func(d source.Diagnostic) {
			c.Logger.Warn(d.Message, "package", d.Package, "version", d.Version, "field", d.Field)
		},
	})
	if err != nil {
		return nil, err
	}
	return export.FromBinaryResult(res), nil
}
