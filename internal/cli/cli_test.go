package cli

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/debsrc/internal/config"
	"github.com/matzehuels/debsrc/pkg/cache"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/export"
	"github.com/matzehuels/debsrc/pkg/observability"
	"github.com/matzehuels/debsrc/pkg/pipeline"
	"github.com/matzehuels/debsrc/pkg/source"
)

func stanza(name, version string) string {
	return fmt.Sprintf(`Package: %s
Version: %s
Maintainer: Jane Doe <jane@example.org>
Architecture: amd64 arm64
Format: 3.0 (quilt)
Directory: pool/main/%c/%s
Build-Depends: debhelper-compat (= 13), libc6-dev | libc-dev
Build-Conflicts: autoconf2.13
Files:
 0123 100 %s_%s.dsc
`, name, version, name[0], name, name, version)
}

const broken = `Package: broken
Version: 1.0
Architecture: amd64
Format: 1.0
Directory: pool/main/b/broken
Files:
 0123 100 broken_1.0.dsc
`

// testCLI returns a CLI isolated from the user's config, cache and
// environment, with stdout captured.
func testCLI(t *testing.T, backend string) (*CLI, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("DEBSRC_CACHE_BACKEND", backend)
	t.Setenv("DEBSRC_CACHE_NAMESPACE", "")
	t.Setenv("DEBSRC_MONGO_URI", "")
	t.Chdir(dir)

	prev := uiOut
	uiOut = io.Discard
	t.Cleanup(func() {
		uiOut = prev
		observability.Reset()
	})

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.out = &out
	return c, &out
}

func execute(t *testing.T, c *CLI, stdin string, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommand(t *testing.T) {
	c, _ := testCLI(t, config.BackendNone)
	root := c.RootCommand()

	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	want := []string{"cache", "completion", "graph", "packages", "parse", "serve", "version"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestParseCommand(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	path := writeFile(t, "Sources", stanza("hello", "2.10-3")+"\n"+stanza("zlib", "1.3"))

	if err := execute(t, c, "", "parse", path); err != nil {
		t.Fatalf("parse: %v", err)
	}
	docs, err := export.ReadJSON(out)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	var got []string
	for _, d := range docs {
		got = append(got, d.Identity().String())
	}
	if diff := cmp.Diff([]string{"hello 2.10-3", "zlib 1.3"}, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCommandStdinCompressed(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(stanza("hello", "2.10-3")))
	_ = zw.Close()

	if err := execute(t, c, buf.String(), "parse", "--format", "jsonl"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	docs, err := export.ReadJSONLines(out)
	if err != nil {
		t.Fatalf("ReadJSONLines: %v", err)
	}
	if len(docs) != 1 || docs[0].Package != "hello" {
		t.Errorf("got %+v, want one hello record", docs)
	}
}

func TestParseCommandFailures(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	path := writeFile(t, "Sources", stanza("hello", "2.10-3")+"\n"+broken)

	err := execute(t, c, "", "parse", path)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 records failed") {
		t.Fatalf("err = %v, want a failure count", err)
	}
	docs, rerr := export.ReadJSON(out)
	if rerr != nil {
		t.Fatalf("ReadJSON: %v", rerr)
	}
	if len(docs) != 1 {
		t.Errorf("got %d records, want the 1 good one", len(docs))
	}
}

func TestParseCommandFailFast(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	path := writeFile(t, "Sources", broken+"\n"+stanza("hello", "2.10-3"))

	err := execute(t, c, "", "parse", "--fail-fast", path)
	if !errors.Is(err, errors.ErrCodeMissingField) {
		t.Fatalf("err = %v, want MISSING_MANDATORY_FIELD", err)
	}
	if out.Len() != 0 {
		t.Errorf("fail-fast wrote output: %q", out.String())
	}
}

func TestParseCommandOutputFile(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	path := writeFile(t, "hello.dsc", stanza("hello", "2.10-3"))
	dest := filepath.Join(t.TempDir(), "out.json")

	if err := execute(t, c, "", "parse", "-o", dest, path); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout should be empty with -o, got %q", out.String())
	}
	docs, err := export.ImportJSON(dest)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d records, want 1", len(docs))
	}
}

func TestParseCommandInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"format", []string{"parse", "--format", "xml"}, errors.ErrCodeInvalidInput},
		{"store without uri", []string{"parse", "--store"}, errors.ErrCodeInvalidInput},
		{"negative workers", []string{"parse", "--workers=-1"}, errors.ErrCodeInvalidInput},
		{"missing file", []string{"parse", "does-not-exist"}, errors.ErrCodeFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testCLI(t, config.BackendNone)
			err := execute(t, c, stanza("hello", "1.0"), tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestParseCommandUsesFileCache(t *testing.T) {
	c, _ := testCLI(t, config.BackendFile)
	path := writeFile(t, "hello.dsc", stanza("hello", "2.10-3"))

	if err := execute(t, c, "", "parse", path); err != nil {
		t.Fatalf("first parse: %v", err)
	}
	entries, err := os.ReadDir(c.Config.Cache.Dir)
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("file cache is empty after parse")
	}

	if err := execute(t, c, "", "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	entries, _ = os.ReadDir(c.Config.Cache.Dir)
	if len(entries) != 0 {
		t.Errorf("cache dir holds %d entries after clear", len(entries))
	}
}

func TestCachePath(t *testing.T) {
	c, out := testCLI(t, config.BackendFile)
	if err := execute(t, c, "", "cache", "path"); err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(out.String()), config.CacheDir(); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestVersionCommand(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	if err := execute(t, c, "", "version"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "version: ") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestGraphCommand(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	path := writeFile(t, "Sources", stanza("hello", "2.10-3")+"\n"+stanza("zlib", "1.3"))

	if err := execute(t, c, "", "graph", path, "--package", "zlib", "--format", "json"); err != nil {
		t.Fatalf("graph: %v", err)
	}
	var g struct {
		Nodes []struct{ ID string } `json:"nodes"`
		Edges []struct{ From, To, Field string }
	}
	if err := json.Unmarshal(out.Bytes(), &g); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if len(g.Nodes) == 0 || g.Nodes[0].ID != "src:zlib" {
		t.Errorf("first node = %+v, want src:zlib", g.Nodes)
	}
	if len(g.Edges) == 0 {
		t.Error("graph has no edges")
	}
}

func TestGraphCommandDOT(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	path := writeFile(t, "hello.dsc", stanza("hello", "2.10-3"))

	if err := execute(t, c, "", "graph", path, "--fields", "Build-Depends"); err != nil {
		t.Fatalf("graph: %v", err)
	}
	dot := out.String()
	if !strings.HasPrefix(dot, "digraph") {
		t.Errorf("output is not DOT: %q", dot)
	}
	if strings.Contains(dot, "autoconf2.13") {
		t.Error("Build-Conflicts leaked into a Build-Depends graph")
	}
}

func TestGraphCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		args    []string
		field   string
	}{
		{"ambiguous", stanza("a", "1") + "\n" + stanza("b", "1"), nil, "package"},
		{"unknown package", stanza("a", "1"), []string{"--package", "zz"}, "package"},
		{"bad field", stanza("a", "1"), []string{"--fields", "Depends"}, "fields"},
		{"bad format", stanza("a", "1"), []string{"--format", "png"}, "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testCLI(t, config.BackendNone)
			path := writeFile(t, "Sources", tt.content)
			err := execute(t, c, "", append([]string{"graph", path}, tt.args...)...)
			if got := errors.FieldOf(err); got != tt.field {
				t.Errorf("error field = %q, want %q (err %v)", got, tt.field, err)
			}
		})
	}
}

func TestSelectInput(t *testing.T) {
	inputs := []pipeline.Input{
		{Index: 0, Identity: source.Identity{Package: "a", Version: "1"}},
		{Index: 1, Identity: source.Identity{Package: "b", Version: "1"}},
	}
	got, err := selectInput(inputs, "b")
	if err != nil || got.Index != 1 {
		t.Errorf("selectInput(b) = %+v, %v", got, err)
	}
	if _, err := selectInput(nil, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("selectInput(empty) err = %v", err)
	}
	got, err = selectInput(inputs[:1], "")
	if err != nil || got.Index != 0 {
		t.Errorf("selectInput(single) = %+v, %v", got, err)
	}
}

func TestReadInputsRenumbers(t *testing.T) {
	a := writeFile(t, "a", stanza("a", "1")+"\n"+stanza("b", "1"))
	b := writeFile(t, "b", stanza("c", "1"))

	inputs, err := readInputs([]string{a, b}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, in := range inputs {
		got = append(got, fmt.Sprintf("%d:%s", in.Index, in.Identity.Package))
	}
	if diff := cmp.Diff([]string{"0:a", "1:b", "2:c"}, got); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		backend string
		noCache bool
		check   func(cache.Cache) bool
	}{
		{config.BackendNone, false, isType[*cache.NullCache]},
		{config.BackendFile, true, isType[*cache.NullCache]},
		{config.BackendFile, false, isType[*cache.FileCache]},
		{config.BackendMemory, false, isType[*cache.MemoryCache]},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.backend, tt.noCache), func(t *testing.T) {
			cfg := config.Default().Cache
			cfg.Backend = tt.backend
			cfg.Dir = t.TempDir()
			c, err := newCache(ctx, cfg, tt.noCache)
			if err != nil {
				t.Fatalf("newCache: %v", err)
			}
			defer c.Close()
			if !tt.check(c) {
				t.Errorf("newCache returned %T", c)
			}
		})
	}

	cfg := config.Default().Cache
	cfg.Backend = "s3"
	if _, err := newCache(ctx, cfg, false); errors.FieldOf(err) != "cache.backend" {
		t.Errorf("unknown backend err = %v", err)
	}
}

func isType[T any](c cache.Cache) bool {
	_, ok := c.(T)
	return ok
}

func TestPipelineOptionsLayering(t *testing.T) {
	c, _ := testCLI(t, config.BackendNone)
	c.Config.Workers = 3
	c.Config.Passthrough = true

	cmd := &cobra.Command{Use: "test"}
	var f runFlags
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--workers", "7"}); err != nil {
		t.Fatal(err)
	}

	opts := c.pipelineOptions(cmd, &f)
	if opts.Workers != 7 {
		t.Errorf("Workers = %d, want flag value 7", opts.Workers)
	}
	if !opts.Passthrough {
		t.Error("Passthrough should come from config when the flag is unset")
	}
}

func TestCloseOutput(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.json"))
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	var got error
	closeOutput(f, &got)
	if got == nil {
		t.Fatal("closeOutput should report the close error")
	}

	earlier := fmt.Errorf("encode failed")
	got = earlier
	closeOutput(f, &got)
	if got != earlier {
		t.Errorf("closeOutput replaced an earlier error with %v", got)
	}
}

const binaryStanza = `Package: hello
Source: hello (2.10-3)
Version: 2.10-3+b1
Installed-Size: 280
Maintainer: Santiago Vila <sanvila@debian.org>
Architecture: amd64
Depends: libc6 (>= 2.34)
Description: example package based on GNU hello
 The GNU hello program produces a familiar, friendly greeting.
Section: devel
Priority: optional
Filename: pool/main/h/hello/hello_2.10-3+b1_amd64.deb
Size: 53080
SHA256: 8d1f
`

func TestPackagesCommand(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	input := binaryStanza + "\n" + stanza("src", "1.0")

	if err := execute(t, c, input, "packages"); err != nil {
		t.Fatalf("packages: %v", err)
	}

	var docs []*export.BinaryDocument
	if err := json.Unmarshal(out.Bytes(), &docs); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1 (source stanza skipped)", len(docs))
	}
	doc := docs[0]
	if doc.Package != "hello" || doc.Source != "hello (2.10-3)" || doc.InstalledSize != 280 {
		t.Errorf("document = %+v", doc)
	}
	if doc.File == nil || doc.File.Size != 53080 || doc.File.Digests["SHA256"] != "8d1f" {
		t.Errorf("file = %+v", doc.File)
	}
	if len(doc.Relations) != 1 || doc.Relations[0].Field != "Depends" {
		t.Errorf("relations = %+v", doc.Relations)
	}
}

func TestPackagesCommandFailures(t *testing.T) {
	c, out := testCLI(t, config.BackendNone)
	bad := binaryStanza + "Essential: maybe\n"

	err := execute(t, c, bad, "packages", "--format", "jsonl")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 records failed") {
		t.Fatalf("err = %v, want one failed record", err)
	}
	if out.Len() != 0 {
		t.Errorf("jsonl output = %q, want nothing", out.String())
	}
}
