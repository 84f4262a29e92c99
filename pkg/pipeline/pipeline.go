// Package pipeline runs the record assembler over a batch of stanzas.
//
// This package is shared by the CLI and the HTTP API so that both parse,
// cache and report records the same way.
//
// # Architecture
//
// A batch goes through three steps:
//
//  1. Split: [ReadInputs] cuts an index into raw stanza texts and peeks at
//     each one's identity
//  2. Assemble: [Runner.Run] assembles every stanza on a bounded worker
//     pool, consulting the cache first
//  3. Emit: [Runner.Emit] streams the successful records to a [Sink]
//
// Every stanza gets its own ledger, so workers share nothing but the cache.
// Outcomes are written into an index-addressed slice and therefore come
// back in input order however the work was scheduled.
//
// # Usage
//
//	inputs, err := pipeline.LoadInputs("Sources.xz")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(cache, nil, logger)
//	batch, err := runner.Run(ctx, inputs, pipeline.Options{Workers: 8})
//	if err != nil {
//	    return err
//	}
//	_, err = runner.Emit(ctx, batch, export.NewJSONLinesSink(os.Stdout))
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/export"
	"github.com/matzehuels/debsrc/pkg/source"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultTTL is how long assembled records stay in the cache.
const DefaultTTL = 24 * time.Hour

// DefaultWorkers returns the worker count used when Options.Workers is zero.
func DefaultWorkers() int { return runtime.GOMAXPROCS(0) }

// =============================================================================
// Options
// =============================================================================

// Options configures a batch run.
type Options struct {
	Workers     int           `json:"workers,omitempty"`
	Passthrough bool          `json:"passthrough,omitempty"` // keep unconsumed fields in the record
	FailFast    bool          `json:"fail_fast,omitempty"`   // abort the batch on the first failed record
	Refresh     bool          `json:"refresh,omitempty"`     // bypass cache reads
	TTL         time.Duration `json:"ttl,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults fills zero values and rejects negative ones.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be positive, got %d", o.Workers)
	}
	if o.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "ttl must not be negative, got %s", o.TTL)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers()
	}
	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	return nil
}

// =============================================================================
// Inputs and Outcomes
// =============================================================================

// Input is one raw stanza waiting to be assembled.
type Input struct {
	// Index is the position of the stanza in its source, starting at 0.
	Index int
	// Line is the 1-based line where the stanza starts, or 0 if unknown.
	Line     int
	Text     string
	Identity source.Identity
}

// Outcome is the result of assembling one Input. Exactly one of Result and
// Err is set.
type Outcome struct {
	Input       Input
	Result      *source.Result
	Document    *export.Document
	Diagnostics []source.Diagnostic
	CacheHit    bool
	Err         error
}

// Batch holds the outcomes of a run in input order.
type Batch struct {
	RunID    string
	Outcomes []Outcome
	Stats    Stats
}

// Stats summarizes a batch.
type Stats struct {
	Records   int
	Failed    int
	Leftovers int // total unconsumed field names over all records
	CacheHits int
	Duration  time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d records, %d failed, %d leftovers, %d cached in %s",
		s.Records, s.Failed, s.Leftovers, s.CacheHits, s.Duration.Round(time.Millisecond))
}

// Documents returns the documents of every successful outcome, in order.
func (b *Batch) Documents() []*export.Document {
	docs := make([]*export.Document, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		if o.Err == nil && o.Document != nil {
			docs = append(docs, o.Document)
		}
	}
	return docs
}

// Failures returns the failed outcomes, in order.
func (b *Batch) Failures() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Sink receives assembled records.
type Sink interface {
	Write(ctx context.Context, doc *export.Document) error
}
