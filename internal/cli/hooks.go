package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/debsrc/pkg/observability"
)

// logHooks reports observability events as debug log lines.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.RecordHooks = logHooks{}
	_ observability.CacheHooks  = logHooks{}
	_ observability.HTTPHooks   = logHooks{}
)

// registerHooks routes every hook category to l.
func registerHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetRecordHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h logHooks) OnBatchStart(_ context.Context, runID string, records int) {
	h.logger.Debug("batch started", "run", runID, "records", records)
}

func (h logHooks) OnBatchComplete(_ context.Context, runID string, records, failed int, d time.Duration) {
	h.logger.Debug("batch complete", "run", runID, "records", records, "failed", failed, "duration", d)
}

func (h logHooks) OnRecordStart(context.Context, string, string) {}

func (h logHooks) OnRecordComplete(_ context.Context, pkg, version string, leftovers int, d time.Duration, err error) {
	if err != nil {
		return // logged by the runner
	}
	h.logger.Debug("record", "package", pkg, "version", version, "leftovers", leftovers, "duration", d)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cached", "kind", keyType, "bytes", size)
}

func (h logHooks) OnRequest(context.Context, string, string) {}

// OnResponse is a no-op: the server logs responses with the request ID.
func (h logHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
