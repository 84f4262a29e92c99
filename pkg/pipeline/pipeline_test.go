package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/debsrc/pkg/cache"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/export"
	"github.com/matzehuels/debsrc/pkg/observability"
	"github.com/matzehuels/debsrc/pkg/source"
)

func stanza(name, version string) string {
	return fmt.Sprintf(`Package: %s
Version: %s
Maintainer: Jane Doe <jane@example.org>
Architecture: amd64 arm64
Format: 3.0 (quilt)
Directory: pool/main/%c/%s
Build-Depends: debhelper-compat (= 13)
Files:
 0123 100 %s_%s.dsc
X-Extra: yes
`, name, version, name[0], name, name, version)
}

const broken = `Package: broken
Version: 1.0
Architecture: any
Format: 1.0
Directory: pool/main/b/broken
Files:
 0123 100 broken_1.0.dsc
`

func index(stanzas ...string) string { return strings.Join(stanzas, "\n") }

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(io.Discard))
}

func mustInputs(t *testing.T, text string) []Input {
	t.Helper()
	inputs, err := ReadInputs(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadInputs() error: %v", err)
	}
	return inputs
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Workers != DefaultWorkers() {
		t.Errorf("Workers should be %d, got %d", DefaultWorkers(), opts.Workers)
	}
	if opts.TTL != DefaultTTL {
		t.Errorf("TTL should be %s, got %s", DefaultTTL, opts.TTL)
	}

	tests := []Options{
		{Workers: -1},
		{TTL: -time.Second},
	}
	for _, o := range tests {
		if err := o.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ValidateAndSetDefaults(%+v) error = %v, want INVALID_INPUT", o, err)
		}
	}
}

func TestReadInputs(t *testing.T) {
	inputs := mustInputs(t, index(stanza("alpha", "1.0-1"), stanza("beta", "2:0.3-2")))
	if len(inputs) != 2 {
		t.Fatalf("got %d inputs, want 2", len(inputs))
	}

	want := []source.Identity{
		{Package: "alpha", Version: "1.0-1"},
		{Package: "beta", Version: "2:0.3-2"},
	}
	for i, in := range inputs {
		if in.Index != i {
			t.Errorf("inputs[%d].Index = %d", i, in.Index)
		}
		if diff := cmp.Diff(want[i], in.Identity); diff != "" {
			t.Errorf("inputs[%d] identity mismatch (-want +got):\n%s", i, diff)
		}
	}
	if inputs[0].Line != 1 || inputs[1].Line <= inputs[0].Line {
		t.Errorf("lines = %d, %d", inputs[0].Line, inputs[1].Line)
	}
}

func TestLoadInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Sources")
	if err := os.WriteFile(path, []byte(stanza("alpha", "1.0-1")), 0o644); err != nil {
		t.Fatal(err)
	}
	inputs, err := LoadInputs(path)
	if err != nil {
		t.Fatalf("LoadInputs() error: %v", err)
	}
	if len(inputs) != 1 || inputs[0].Identity.Package != "alpha" {
		t.Errorf("LoadInputs() = %+v", inputs)
	}

	if _, err := LoadInputs(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("LoadInputs(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestRunPreservesOrder(t *testing.T) {
	var stanzas []string
	for i := 0; i < 50; i++ {
		stanzas = append(stanzas, stanza(fmt.Sprintf("pkg%02d", i), "1.0"))
	}
	inputs := mustInputs(t, index(stanzas...))

	batch, err := quietRunner(nil).Run(context.Background(), inputs, Options{Workers: 8})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if batch.RunID == "" {
		t.Error("RunID should be set")
	}
	for i, o := range batch.Outcomes {
		if o.Err != nil {
			t.Fatalf("outcome %d failed: %v", i, o.Err)
		}
		if want := fmt.Sprintf("pkg%02d", i); o.Result.Record.Name != want {
			t.Errorf("outcome %d is %s, want %s", i, o.Result.Record.Name, want)
		}
	}
	if batch.Stats.Records != 50 || batch.Stats.Failed != 0 || batch.Stats.Leftovers != 50 {
		t.Errorf("Stats = %+v", batch.Stats)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	inputs := mustInputs(t, index(stanza("alpha", "1.0"), broken, stanza("gamma", "3.0")))

	batch, err := quietRunner(nil).Run(context.Background(), inputs, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if batch.Stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", batch.Stats.Failed)
	}

	failed := batch.Failures()
	if len(failed) != 1 || failed[0].Input.Index != 1 {
		t.Fatalf("Failures() = %+v", failed)
	}
	if !errors.Is(failed[0].Err, errors.ErrCodeMissingField) {
		t.Errorf("failure = %v, want MISSING_MANDATORY_FIELD", failed[0].Err)
	}
	if !strings.Contains(failed[0].Err.Error(), "broken 1.0") {
		t.Errorf("failure should name the record: %v", failed[0].Err)
	}

	var names []string
	for _, d := range batch.Documents() {
		names = append(names, d.Package)
	}
	if diff := cmp.Diff([]string{"alpha", "gamma"}, names); diff != "" {
		t.Errorf("Documents() mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFailFast(t *testing.T) {
	inputs := mustInputs(t, index(broken, stanza("alpha", "1.0")))

	_, err := quietRunner(nil).Run(context.Background(), inputs, Options{Workers: 1, FailFast: true})
	if !errors.Is(err, errors.ErrCodeMissingField) {
		t.Errorf("Run() error = %v, want MISSING_MANDATORY_FIELD", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := mustInputs(t, stanza("alpha", "1.0"))
	if _, err := quietRunner(nil).Run(ctx, inputs, Options{}); err == nil {
		t.Error("Run() with cancelled context should fail")
	}
}

func TestRunUsesCache(t *testing.T) {
	c, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	runner := quietRunner(c)
	inputs := mustInputs(t, index(stanza("alpha", "1.0"), stanza("beta", "2.0")))
	ctx := context.Background()

	first, err := runner.Run(ctx, inputs, Options{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if first.Stats.CacheHits != 0 {
		t.Errorf("first run CacheHits = %d, want 0", first.Stats.CacheHits)
	}

	second, err := runner.Run(ctx, inputs, Options{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if second.Stats.CacheHits != 2 {
		t.Errorf("second run CacheHits = %d, want 2", second.Stats.CacheHits)
	}
	for i := range inputs {
		if diff := cmp.Diff(first.Outcomes[i].Document, second.Outcomes[i].Document, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("cached document %d mismatch (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff(first.Outcomes[i].Diagnostics, second.Outcomes[i].Diagnostics, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("cached diagnostics %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	// Passthrough changes the key.
	third, err := runner.Run(ctx, inputs, Options{Passthrough: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if third.Stats.CacheHits != 0 {
		t.Errorf("passthrough run CacheHits = %d, want 0", third.Stats.CacheHits)
	}
	if got := third.Outcomes[0].Document.Unparsed; len(got) != 1 || got[0].Name != "X-Extra" {
		t.Errorf("Unparsed = %+v", got)
	}

	// Refresh skips reads.
	fourth, err := runner.Run(ctx, inputs, Options{Refresh: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if fourth.Stats.CacheHits != 0 {
		t.Errorf("refresh run CacheHits = %d, want 0", fourth.Stats.CacheHits)
	}
}

func TestCorruptCacheEntryIsMiss(t *testing.T) {
	c, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	runner := quietRunner(c)
	in := mustInputs(t, stanza("alpha", "1.0"))[0]
	ctx := context.Background()

	key := runner.Keyer.RecordKey(in.Text, "alpha", "1.0", cache.RecordKeyOpts{})
	if err := c.Set(ctx, key, []byte("{not json"), 0); err != nil {
		t.Fatal(err)
	}

	out := runner.Assemble(ctx, in, Options{})
	if out.Err != nil {
		t.Fatalf("Assemble() error: %v", out.Err)
	}
	if out.CacheHit {
		t.Error("corrupt entry should not be a hit")
	}

	// The rebuilt record replaced the corrupt entry.
	if out := runner.Assemble(ctx, in, Options{}); !out.CacheHit {
		t.Error("second Assemble() should hit the cache")
	}
}

func TestAssembleDiagnostics(t *testing.T) {
	in := mustInputs(t, stanza("alpha", "1.0"))[0]
	in.Identity.Version = "9.9"

	out := quietRunner(nil).Assemble(context.Background(), in, Options{})
	if out.Err != nil {
		t.Fatalf("Assemble() error: %v", out.Err)
	}

	var fields []string
	for _, d := range out.Diagnostics {
		fields = append(fields, d.Field)
	}
	if diff := cmp.Diff([]string{"Version", "X-Extra"}, fields); diff != "" {
		t.Errorf("diagnostic fields mismatch (-want +got):\n%s", diff)
	}
}

type memorySink struct {
	mu   sync.Mutex
	docs []*export.Document
	fail bool
}

func (s *memorySink) Write(ctx context.Context, doc *export.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("sink closed")
	}
	s.docs = append(s.docs, doc)
	return nil
}

func TestEmit(t *testing.T) {
	runner := quietRunner(nil)
	ctx := context.Background()
	inputs := mustInputs(t, index(stanza("alpha", "1.0"), broken, stanza("gamma", "3.0")))

	batch, err := runner.Run(ctx, inputs, Options{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	sink := &memorySink{}
	n, err := runner.Emit(ctx, batch, sink)
	if err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	if n != 2 || sink.docs[0].Package != "alpha" || sink.docs[1].Package != "gamma" {
		t.Errorf("Emit() wrote %d documents: %+v", n, sink.docs)
	}

	if _, err := runner.Emit(ctx, batch, &memorySink{fail: true}); err == nil {
		t.Error("Emit() should surface sink errors")
	}
}

type countingHooks struct {
	observability.NoopRecordHooks
	observability.NoopCacheHooks
	batches, records, hits, misses, sets atomic.Int32
}

func (h *countingHooks) OnBatchComplete(context.Context, string, int, int, time.Duration) {
	h.batches.Add(1)
}

func (h *countingHooks) OnRecordComplete(context.Context, string, string, int, time.Duration, error) {
	h.records.Add(1)
}

func (h *countingHooks) OnCacheHit(context.Context, string)      { h.hits.Add(1) }
func (h *countingHooks) OnCacheMiss(context.Context, string)     { h.misses.Add(1) }
func (h *countingHooks) OnCacheSet(context.Context, string, int) { h.sets.Add(1) }

func TestRunFiresHooks(t *testing.T) {
	h := &countingHooks{}
	observability.SetRecordHooks(h)
	observability.SetCacheHooks(h)
	defer observability.Reset()

	c, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	runner := quietRunner(c)
	inputs := mustInputs(t, index(stanza("alpha", "1.0"), stanza("beta", "2.0")))

	for i := 0; i < 2; i++ {
		if _, err := runner.Run(context.Background(), inputs, Options{}); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	}

	if got := h.batches.Load(); got != 2 {
		t.Errorf("batches = %d, want 2", got)
	}
	if got := h.records.Load(); got != 4 {
		t.Errorf("records = %d, want 4", got)
	}
	if h.misses.Load() != 2 || h.sets.Load() != 2 || h.hits.Load() != 2 {
		t.Errorf("cache events = %d misses, %d sets, %d hits", h.misses.Load(), h.sets.Load(), h.hits.Load())
	}
}
