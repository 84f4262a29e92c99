package cli

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/debsrc/pkg/deb822"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/export"
	"github.com/matzehuels/debsrc/pkg/graph"
	"github.com/matzehuels/debsrc/pkg/observability"
	"github.com/matzehuels/debsrc/pkg/pipeline"
)

const (
	// defaultMaxBody caps request bodies. A full Sources index is larger
	// than this; clients should split it.
	defaultMaxBody = 64 << 20

	shutdownTimeout = 10 * time.Second

	headerRequestID = "X-Request-ID"
)

type serveOpts struct {
	addr    string
	noCache bool
	maxBody int64
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{maxBody: defaultMaxBody}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parser over HTTP",
		Long: `Serve exposes parsing as an HTTP API.

  POST /v1/parse   body: stanzas (plain or compressed), returns records and failures
  POST /v1/graph   body: one stanza, returns its relation graph
  GET  /healthz    liveness probe`,
		Example: `  debsrc serve --addr :8080
  curl --data-binary @Sources.gz localhost:8080/v1/parse?passthrough=true`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			addr := c.Config.Server.Addr
			if cmd.Flags().Changed("addr") {
				addr = opts.addr
			}
			srv := &server{
				runner:  runner,
				logger:  c.Logger,
				opts:    c.pipelineOptions(cmd, &runFlags{}),
				maxBody: opts.maxBody,
			}
			return srv.listen(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the record cache")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", opts.maxBody, "largest accepted request body in bytes")

	return cmd
}

// server is the HTTP front end of a Runner.
type server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	opts    pipeline.Options
	maxBody int64
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func (s *server) listen(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := hs.Shutdown(sctx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/graph", s.handleGraph)
	})
	return r
}

// =============================================================================
// Middleware
// =============================================================================

// requestID propagates or assigns X-Request-ID and attaches a logger that
// carries it.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		ctx := withLogger(r.Context(), s.logger.With("request", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, dur)
		loggerFromContext(r.Context()).Info("http", "method", r.Method, "path", r.URL.Path, "status", status, "duration", dur)
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type parseResponse struct {
	RunID    string             `json:"run_id"`
	Records  []*export.Document `json:"records"`
	Failures []failure          `json:"failures"`
	Stats    statsResponse      `json:"stats"`
}

type failure struct {
	Index   int    `json:"index"`
	Line    int    `json:"line,omitempty"`
	Package string `json:"package,omitempty"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type statsResponse struct {
	Records    int   `json:"records"`
	Failed     int   `json:"failed"`
	Leftovers  int   `json:"leftovers"`
	CacheHits  int   `json:"cache_hits"`
	DurationMS int64 `json:"duration_ms"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func newFailure(o pipeline.Outcome) failure {
	return failure{
		Index:   o.Input.Index,
		Line:    o.Input.Line,
		Package: o.Input.Identity.Package,
		Version: o.Input.Identity.Version,
		Code:    string(errors.GetCode(o.Err)),
		Field:   errors.FieldOf(o.Err),
		Message: errors.UserMessage(o.Err),
	}
}

func (s *server) handleParse(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	inputs, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	batch, err := s.runner.Run(r.Context(), inputs, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := parseResponse{
		RunID:    batch.RunID,
		Records:  batch.Documents(),
		Failures: []failure{},
		Stats: statsResponse{
			Records:    batch.Stats.Records,
			Failed:     batch.Stats.Failed,
			Leftovers:  batch.Stats.Leftovers,
			CacheHits:  batch.Stats.CacheHits,
			DurationMS: batch.Stats.Duration.Milliseconds(),
		},
	}
	for _, o := range batch.Failures() {
		resp.Failures = append(resp.Failures, newFailure(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	var fields []string
	if v := q.Get("fields"); v != "" {
		fields = strings.Split(v, ",")
	}
	if err := validateFields(fields); err != nil {
		writeError(w, err)
		return
	}
	format := q.Get("format")
	if format == "" {
		format = graphJSON
	}

	inputs, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := selectInput(inputs, q.Get("package"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := s.runner.Assemble(r.Context(), in, opts)
	if out.Err != nil {
		writeError(w, out.Err)
		return
	}
	data, err := renderGraph(graph.Build(out.Result.Record, fields...), format, q.Get("detailed") == "true")
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case graphSVG:
		w.Header().Set("Content-Type", "image/svg+xml")
	case graphDOT:
		w.Header().Set("Content-Type", "text/vnd.graphviz")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// requestOptions layers the passthrough and fail_fast query parameters over
// the server defaults.
func (s *server) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.opts
	opts.Logger = loggerFromContext(r.Context())
	q := r.URL.Query()
	for name, dst := range map[string]*bool{
		"passthrough": &opts.Passthrough,
		"fail_fast":   &opts.FailFast,
		"refresh":     &opts.Refresh,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.ForField(errors.ErrCodeInvalidInput, name, "query parameter %s: %q is not a boolean", name, v)
		}
		*dst = b
	}
	return opts, nil
}

// readBody splits the (possibly compressed) request body into inputs.
// maxBody bounds both the body as sent and its decompressed form.
func (s *server) readBody(w http.ResponseWriter, r *http.Request) ([]pipeline.Input, error) {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	rc, err := deb822.Decompress(body)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return pipeline.ReadInputs(&limitReader{r: rc, n: s.maxBody, limit: s.maxBody})
}

// limitReader is io.LimitReader that fails with *http.MaxBytesError once
// more than limit bytes are available, instead of reporting EOF.
type limitReader struct {
	r     io.Reader
	n     int64
	limit int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		var one [1]byte
		n, err := l.r.Read(one[:])
		if n > 0 {
			return 0, &http.MaxBytesError{Limit: l.limit}
		}
		return 0, err
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}

// =============================================================================
// Responses
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{
		Code:    string(errors.GetCode(err)),
		Field:   errors.FieldOf(err),
		Message: errors.UserMessage(err),
	})
}

// statusFor maps an error onto an HTTP status. Oversized bodies and lines
// are 413, record-level parse errors 422, request problems 400, and
// everything else 500.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge), stderrors.Is(err, bufio.ErrTooLong):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeMalformedStanza:
		return http.StatusBadRequest
	case errors.ErrCodeInternal, "":
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}
