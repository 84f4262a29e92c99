package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/debsrc/pkg/cache"
	"github.com/matzehuels/debsrc/pkg/deb822"
	"github.com/matzehuels/debsrc/pkg/export"
	"github.com/matzehuels/debsrc/pkg/observability"
	"github.com/matzehuels/debsrc/pkg/source"
)

// Runner assembles batches with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedRecord is the cache value for one input.
type cachedRecord struct {
	Document    *export.Document    `json:"document"`
	Diagnostics []source.Diagnostic `json:"diagnostics,omitempty"`
}

// Run assembles every input on at most opts.Workers goroutines.
//
// A failed record is reported in its Outcome and does not stop the batch
// unless opts.FailFast is set, in which case the first failure is returned
// and the remaining work is cancelled.
func (r *Runner) Run(ctx context.Context, inputs []Input, opts Options) (*Batch, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	batch := &Batch{
		RunID:    uuid.NewString(),
		Outcomes: make([]Outcome, len(inputs)),
	}
	start := time.Now()
	hooks := observability.Records()
	hooks.OnBatchStart(ctx, batch.RunID, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := r.assemble(gctx, in, opts)
			batch.Outcomes[i] = out
			if out.Err != nil && opts.FailFast {
				return out.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, o := range batch.Outcomes {
		batch.Stats.Records++
		if o.Err != nil {
			batch.Stats.Failed++
			opts.Logger.Error("record failed", "index", o.Input.Index, "line", o.Input.Line, "err", o.Err)
			continue
		}
		batch.Stats.Leftovers += len(o.Result.Leftovers)
		if o.CacheHit {
			batch.Stats.CacheHits++
		}
	}
	batch.Stats.Duration = time.Since(start)
	hooks.OnBatchComplete(ctx, batch.RunID, batch.Stats.Records, batch.Stats.Failed, batch.Stats.Duration)

	opts.Logger.Info("assembled batch",
		"run", batch.RunID,
		"records", batch.Stats.Records,
		"failed", batch.Stats.Failed,
		"cached", batch.Stats.CacheHits,
		"duration", batch.Stats.Duration)
	return batch, nil
}

// Assemble runs a single input through the cache and the assembler.
func (r *Runner) Assemble(ctx context.Context, in Input, opts Options) Outcome {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Outcome{Input: in, Err: fmt.Errorf("invalid options: %w", err)}
	}
	r.applyLogger(&opts)
	return r.assemble(ctx, in, opts)
}

func (r *Runner) assemble(ctx context.Context, in Input, opts Options) Outcome {
	id := in.Identity
	start := time.Now()
	observability.Records().OnRecordStart(ctx, id.Package, id.Version)

	out := r.lookup(ctx, in, opts)
	if out == nil {
		out = r.build(ctx, in, opts)
	}

	leftovers := 0
	if out.Result != nil {
		leftovers = len(out.Result.Leftovers)
	}
	observability.Records().OnRecordComplete(ctx, id.Package, id.Version, leftovers, time.Since(start), out.Err)

	for _, d := range out.Diagnostics {
		opts.Logger.Warn(d.Message, "package", d.Package, "version", d.Version, "field", d.Field)
	}
	return *out
}

// lookup returns the cached outcome for in, or nil on a miss. Entries that
// fail to decode count as misses.
func (r *Runner) lookup(ctx context.Context, in Input, opts Options) *Outcome {
	if opts.Refresh {
		return nil
	}
	key := r.key(in, opts)
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "record")
		return nil
	}

	var cached cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil || cached.Document == nil {
		observability.Cache().OnCacheMiss(ctx, "record")
		return nil
	}
	res, err := cached.Document.Result()
	if err != nil {
		observability.Cache().OnCacheMiss(ctx, "record")
		return nil
	}

	observability.Cache().OnCacheHit(ctx, "record")
	opts.Logger.Debug("cache hit", "package", in.Identity.Package, "version", in.Identity.Version)
	return &Outcome{
		Input:       in,
		Result:      res,
		Document:    cached.Document,
		Diagnostics: cached.Diagnostics,
		CacheHit:    true,
	}
}

func (r *Runner) build(ctx context.Context, in Input, opts Options) *Outcome {
	out := &Outcome{Input: in}

	st, err := deb822.ParseStanza(in.Text)
	if err != nil {
		out.Err = fmt.Errorf("source %s: %w", in.Identity, err)
		return out
	}

	res, err := source.Assemble(st, in.Identity, source.Options{
		Passthrough: opts.Passthrough,
		Report:      func(d source.Diagnostic) { out.Diagnostics = append(out.Diagnostics, d) },
	})
	if err != nil {
		out.Err = err
		out.Diagnostics = nil
		return out
	}
	out.Result = res
	out.Document = export.FromResult(res)

	data, err := json.Marshal(cachedRecord{Document: out.Document, Diagnostics: out.Diagnostics})
	if err != nil {
		return out
	}
	if err := r.Cache.Set(ctx, r.key(in, opts), data, opts.TTL); err != nil {
		opts.Logger.Debug("cache write failed", "package", in.Identity.Package, "err", err)
		return out
	}
	observability.Cache().OnCacheSet(ctx, "record", len(data))
	return out
}

func (r *Runner) key(in Input, opts Options) string {
	return r.Keyer.RecordKey(in.Text, in.Identity.Package, in.Identity.Version,
		cache.RecordKeyOpts{Passthrough: opts.Passthrough})
}

// Emit writes the successful outcomes of batch to sink in input order and
// returns how many were written.
func (r *Runner) Emit(ctx context.Context, batch *Batch, sink Sink) (int, error) {
	n := 0
	for _, o := range batch.Outcomes {
		if o.Err != nil || o.Document == nil {
			continue
		}
		if err := sink.Write(ctx, o.Document); err != nil {
			return n, fmt.Errorf("emit %s: %w", o.Document.Identity(), err)
		}
		n++
	}
	return n, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
