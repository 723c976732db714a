// Package worker runs parsing and filtering off the caller's goroutine.
//
// There is one background goroutine per operation kind. Each submission gets
// a token; only the result for the latest token of its kind is applied, and
// a filter result is only applied while the document it was computed on is
// still current. Everything else resolves with a STALE_RESULT error.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/logging"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

type Options struct {
	Background   bool
	Timeout      time.Duration // 0 waits forever
	CacheSize    int           // parsed documents kept by content hash; 0 disables
	ParseOptions parse.Options
	Logger       *logrus.Entry
}

func DefaultOptions() Options {
	return Options{
		Background:   true,
		Timeout:      30 * time.Second,
		CacheSize:    4,
		ParseOptions: parse.DefaultOptions(),
	}
}

type Harness struct {
	opts  Options
	log   *logrus.Entry
	cache *lru.Cache[string, *Document]

	// swapped in tests
	parseFn  func(string, parse.Options) (*parse.Result, error)
	filterFn func([]parse.Message, filter.Criteria) filter.Result

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
	started    bool
	stopped    bool
	queues     map[Op]chan job
	tokens     map[Op]uint64
	states     map[Op]State
	doc        *Document
	generation uint64
	lastFilter *FilterResult
}

func New(opts Options) (*Harness, error) {
	h := &Harness{
		opts:     opts,
		log:      opts.Logger,
		parseFn:  parse.Parse,
		filterFn: filter.Apply,
		queues: map[Op]chan job{
			OpParse:  make(chan job, 1),
			OpFilter: make(chan job, 1),
		},
		tokens: make(map[Op]uint64),
		states: map[Op]State{OpParse: Idle, OpFilter: Idle},
	}
	if h.log == nil {
		h.log = logging.NewLogger("worker")
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, *Document](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create parse cache: %w", err)
		}
		h.cache = cache
	}
	return h, nil
}

// Start launches the background goroutines. Without it, or with
// Options.Background false, every request runs on the caller's goroutine.
// A stopped harness cannot be restarted.
func (h *Harness) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started || h.stopped || !h.opts.Background {
		return
	}
	h.ctx, h.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(h.ctx)
	for op, q := range h.queues {
		op, q := op, q
		g.Go(func() error {
			h.loop(gctx, op, q)
			return nil
		})
	}
	h.group = g
	h.started = true
	h.log.Debug("background workers started")
}

// Stop ends the background goroutines. Requests still queued resolve with
// a BACKGROUND_FAILURE error; later requests run synchronously.
func (h *Harness) Stop() {
	h.mu.Lock()
	if !h.started || h.stopped {
		h.stopped = true
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.cancel()
	g := h.group
	h.mu.Unlock()

	_ = g.Wait()

	for op, q := range h.queues {
		select {
		case j := <-q:
			j.drop(cerrors.BackgroundFailure(string(op), fmt.Errorf("harness stopped")))
		default:
		}
	}
	h.log.Debug("background workers stopped")
}

func (h *Harness) loop(ctx context.Context, op Op, q <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q:
			h.log.WithFields(logrus.Fields{"op": op, "token": j.token}).Debug("running")
			j.exec()
		}
	}
}

// backgroundLocked reports whether requests go to the worker goroutines.
func (h *Harness) backgroundLocked() bool {
	return h.started && !h.stopped && h.ctx.Err() == nil
}

// enqueueLocked replaces any queued request of the same kind; the replaced
// one resolves as stale without running.
func (h *Harness) enqueueLocked(j job) {
	q := h.queues[j.op]
	for {
		select {
		case q <- j:
			return
		default:
		}
		select {
		case old := <-q:
			h.log.WithFields(logrus.Fields{"op": old.op, "token": old.token}).Debug("queued request superseded")
			old.drop(cerrors.StaleResult(string(old.op), old.token))
		default:
		}
	}
}

// submit issues a token and runs compute in the background or inline.
// commit runs under h.mu only when the token is still the latest; returning
// false rejects the value as stale.
func submit[T any](h *Harness, op Op, inline bool, compute func() (T, error), commit func(T) (T, bool)) *Pending[T] {
	h.mu.Lock()
	h.tokens[op]++
	token := h.tokens[op]
	h.states[op] = Running
	p := newPending[T](op, token, h.opts.Timeout)

	run := func() {
		v, err := safeCompute(op, compute)
		h.finish(op, token, func(stale bool) {
			var zero T
			switch {
			case stale:
				p.resolve(zero, cerrors.StaleResult(string(op), token))
			case err != nil:
				h.states[op] = Failed
				p.resolve(zero, err)
			default:
				out, ok := commit(v)
				if !ok {
					p.resolve(zero, cerrors.StaleResult(string(op), token))
					return
				}
				h.states[op] = Completed
				p.resolve(out, nil)
			}
		})
	}

	if inline || !h.backgroundLocked() {
		h.mu.Unlock()
		run()
		return p
	}
	h.enqueueLocked(job{
		op:    op,
		token: token,
		exec:  run,
		drop: func(err error) {
			var zero T
			p.resolve(zero, err)
		},
	})
	h.mu.Unlock()
	return p
}

func (h *Harness) finish(op Op, token uint64, apply func(stale bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stale := token != h.tokens[op]
	if stale {
		h.log.WithFields(logrus.Fields{"op": op, "token": token, "latest": h.tokens[op]}).Debug("stale result discarded")
	}
	apply(stale)
}

// safeCompute turns a panic into a BACKGROUND_FAILURE error.
func safeCompute[T any](op Op, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = cerrors.BackgroundFailure(string(op), fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()
	return fn()
}

// SubmitParse parses raw and, if it is still the latest parse request,
// makes the result the current document.
func (h *Harness) SubmitParse(raw, fileName string) *Pending[*Document] {
	return h.submitParse(raw, fileName, false)
}

// ParseNow is SubmitParse on the caller's goroutine.
func (h *Harness) ParseNow(raw, fileName string) (*Document, error) {
	return h.submitParse(raw, fileName, true).Wait(context.Background())
}

func (h *Harness) submitParse(raw, fileName string, inline bool) *Pending[*Document] {
	hash := ContentHash(raw)
	compute := func() (*Document, error) {
		if h.cache != nil {
			if doc, ok := h.cache.Get(hash); ok {
				h.log.WithField("file", fileName).Debug("parse cache hit")
				cp := *doc
				cp.FileName = fileName
				cp.Meta.FileName = fileName
				return &cp, nil
			}
		}
		res, err := h.parseFn(raw, h.opts.ParseOptions)
		if err != nil {
			return nil, err
		}
		doc := NewDocument(res, fileName, hash)
		if h.cache != nil {
			h.cache.Add(hash, doc)
		}
		return doc, nil
	}
	return submit(h, OpParse, inline, compute, h.adoptLocked)
}

func (h *Harness) adoptLocked(doc *Document) (*Document, bool) {
	h.generation++
	h.doc = doc.withGeneration(h.generation)
	h.lastFilter = nil
	h.log.WithFields(logrus.Fields{
		"file":       doc.FileName,
		"messages":   len(doc.Messages()),
		"generation": h.generation,
	}).Info("document loaded")
	return h.doc, true
}

// Load adopts a document obtained elsewhere, such as the index. It
// supersedes any parse in flight.
func (h *Harness) Load(doc *Document) *Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokens[OpParse]++
	h.states[OpParse] = Completed
	out, _ := h.adoptLocked(doc)
	return out
}

// SubmitFilter filters the current document. Only the criteria travel with
// the request; the messages are read when the work starts.
func (h *Harness) SubmitFilter(c filter.Criteria) *Pending[*FilterResult] {
	return h.submitFilter(c, false)
}

// FilterNow is SubmitFilter on the caller's goroutine.
func (h *Harness) FilterNow(c filter.Criteria) (*FilterResult, error) {
	return h.submitFilter(c, true).Wait(context.Background())
}

func (h *Harness) submitFilter(c filter.Criteria, inline bool) *Pending[*FilterResult] {
	compute := func() (*FilterResult, error) {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		doc := h.Current()
		if doc == nil {
			return nil, cerrors.NotFound("loaded transcript")
		}
		return &FilterResult{
			Result:     h.filterFn(doc.Messages(), c),
			Criteria:   c,
			DocumentID: doc.ID,
			Generation: doc.Generation,
		}, nil
	}
	commit := func(res *FilterResult) (*FilterResult, bool) {
		if h.doc == nil || h.doc.Generation != res.Generation {
			h.log.WithField("generation", res.Generation).Debug("filter result for replaced document discarded")
			return nil, false
		}
		h.lastFilter = res
		return res, true
	}
	return submit(h, OpFilter, inline, compute, commit)
}

// Current returns the current document, or nil.
func (h *Harness) Current() *Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

// LastFilter returns the most recently applied filter result for the
// current document, or nil.
func (h *Harness) LastFilter() *FilterResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastFilter
}

func (h *Harness) State(op Op) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.states[op]
}
