package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

const transcript = "01.02.2023, 14:05 - Alice: Hello\n01.02.2023, 14:06 - Bob: Hi\nhow are you?"

func testOptions(background bool) Options {
	opts := DefaultOptions()
	opts.Background = background
	opts.Timeout = 5 * time.Second
	opts.ParseOptions.Location = time.UTC
	return opts
}

func newHarness(t *testing.T, background bool) *Harness {
	t.Helper()
	h, err := New(testOptions(background))
	require.NoError(t, err)
	return h
}

func start(t *testing.T, h *Harness) {
	t.Helper()
	h.Start(context.Background())
	t.Cleanup(h.Stop)
}

// gate blocks filter calls until released and reports each call start.
type gate struct {
	started chan filter.Criteria
	release chan struct{}
	calls   atomic.Int32
}

func newGate() *gate {
	return &gate{started: make(chan filter.Criteria, 8), release: make(chan struct{})}
}

func (g *gate) filter(msgs []parse.Message, c filter.Criteria) filter.Result {
	g.calls.Add(1)
	g.started <- c
	<-g.release
	return filter.Apply(msgs, c)
}

func wait[T any](t *testing.T, p *Pending[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestParseInBackground(t *testing.T) {
	h := newHarness(t, true)
	start(t, h)

	doc, err := wait(t, h.SubmitParse(transcript, "chat.txt"))
	require.NoError(t, err)
	assert.Len(t, doc.Messages(), 2)
	assert.Equal(t, "chat.txt", doc.Meta.FileName)
	assert.Equal(t, uint64(1), doc.Generation)
	assert.NotEmpty(t, doc.ID)
	assert.Same(t, doc, h.Current())
	assert.Equal(t, Completed, h.State(OpParse))
}

func TestSynchronousFallback(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(h *Harness)
	}{
		{"not started", func(h *Harness) {}},
		{"stopped", func(h *Harness) { h.Start(context.Background()); h.Stop() }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, true)
			tc.setup(h)

			p := h.SubmitParse(transcript, "chat.txt")
			select {
			case <-p.Done():
			default:
				t.Fatal("synchronous request should resolve before returning")
			}
			doc, err := wait(t, p)
			require.NoError(t, err)

			bg := newHarness(t, true)
			start(t, bg)
			bgDoc, err := wait(t, bg.SubmitParse(transcript, "chat.txt"))
			require.NoError(t, err)
			assert.Equal(t, bgDoc.Messages(), doc.Messages())
		})
	}

	h := newHarness(t, false)
	h.Start(context.Background())
	p := h.SubmitFilter(filter.Criteria{Weekdays: filter.AllWeekdays})
	_, err := wait(t, p)
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeNotFound))
}

func TestStartAfterStopStaysSynchronous(t *testing.T) {
	h := newHarness(t, true)
	h.Stop()
	h.Start(context.Background())
	t.Cleanup(h.Stop)

	h.mu.Lock()
	assert.False(t, h.started)
	assert.Nil(t, h.group)
	h.mu.Unlock()

	p := h.SubmitParse(transcript, "chat.txt")
	select {
	case <-p.Done():
	default:
		t.Fatal("parse did not run inline")
	}
	doc, err := wait(t, p)
	require.NoError(t, err)
	assert.Len(t, doc.Messages(), 2)
}

func TestUnrecognizedFormatKeepsPreviousDocument(t *testing.T) {
	h := newHarness(t, true)
	start(t, h)

	first, err := wait(t, h.SubmitParse(transcript, "chat.txt"))
	require.NoError(t, err)

	_, err = wait(t, h.SubmitParse("not a transcript", "notes.txt"))
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeUnrecognizedFormat))
	assert.Equal(t, Failed, h.State(OpParse))
	assert.Same(t, first, h.Current())
}

func TestFilterStaleResultDiscarded(t *testing.T) {
	h := newHarness(t, true)
	g := newGate()
	h.filterFn = g.filter
	start(t, h)

	_, err := h.ParseNow(transcript, "chat.txt")
	require.NoError(t, err)

	a := filter.Criteria{Weekdays: filter.AllWeekdays, MinPercentage: 0}
	b := a.WithSenderStatus("Alice", filter.Excluded)

	pa := h.SubmitFilter(a)
	<-g.started // A is running
	pb := h.SubmitFilter(b)

	// A finishes after B was issued.
	g.release <- struct{}{}
	_, errA := wait(t, pa)
	assert.True(t, cerrors.Is(errA, cerrors.ErrCodeStaleResult))

	<-g.started
	g.release <- struct{}{}
	resB, errB := wait(t, pb)
	require.NoError(t, errB)
	assert.Equal(t, 1, resB.ActiveCount)

	last := h.LastFilter()
	require.NotNil(t, last)
	assert.Equal(t, filter.Excluded, last.Criteria.Status("Alice"))
	assert.Equal(t, Completed, h.State(OpFilter))
}

func TestQueuedRequestSupersededWithoutRunning(t *testing.T) {
	h := newHarness(t, true)
	g := newGate()
	h.filterFn = g.filter
	start(t, h)
	_, err := h.ParseNow(transcript, "chat.txt")
	require.NoError(t, err)

	c := filter.Criteria{Weekdays: filter.AllWeekdays}
	p1 := h.SubmitFilter(c)
	<-g.started
	p2 := h.SubmitFilter(c.WithMinPercentage(10))
	p3 := h.SubmitFilter(c.WithMinPercentage(20))

	_, err = wait(t, p2)
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeStaleResult))

	g.release <- struct{}{}
	<-g.started
	g.release <- struct{}{}

	_, err = wait(t, p1)
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeStaleResult))
	res, err := wait(t, p3)
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Criteria.MinPercentage)
	assert.Equal(t, int32(2), g.calls.Load())
}

func TestFilterStaleAfterNewDocument(t *testing.T) {
	h := newHarness(t, true)
	g := newGate()
	h.filterFn = g.filter
	start(t, h)
	_, err := h.ParseNow(transcript, "chat.txt")
	require.NoError(t, err)

	p := h.SubmitFilter(filter.Criteria{Weekdays: filter.AllWeekdays})
	<-g.started

	_, err = h.ParseNow("02.02.2023, 10:00 - Carol: new file", "other.txt")
	require.NoError(t, err)

	g.release <- struct{}{}
	_, err = wait(t, p)
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeStaleResult))
	assert.Nil(t, h.LastFilter())
}

func TestPanicBecomesBackgroundFailure(t *testing.T) {
	h := newHarness(t, true)
	h.parseFn = func(string, parse.Options) (*parse.Result, error) {
		panic("boom")
	}
	start(t, h)

	_, err := wait(t, h.SubmitParse(transcript, "chat.txt"))
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeBackgroundFailure))
	op, ok := cerrors.Detail(err, "op")
	require.True(t, ok)
	assert.Equal(t, "parse", op)
	assert.Equal(t, Failed, h.State(OpParse))
	assert.Nil(t, h.Current())

	// The worker goroutine survives the panic.
	h.parseFn = parse.Parse
	_, err = wait(t, h.SubmitParse(transcript+"\n", "chat.txt"))
	assert.NoError(t, err)
}

func TestWaitTimesOut(t *testing.T) {
	opts := testOptions(true)
	opts.Timeout = 20 * time.Millisecond
	h, err := New(opts)
	require.NoError(t, err)

	release := make(chan struct{})
	h.parseFn = func(raw string, o parse.Options) (*parse.Result, error) {
		<-release
		return parse.Parse(raw, o)
	}
	h.Start(context.Background())
	t.Cleanup(h.Stop)
	t.Cleanup(func() { close(release) })

	_, err = h.SubmitParse(transcript, "chat.txt").Wait(context.Background())
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeTimeout))
	op, _ := cerrors.Detail(err, "op")
	assert.Equal(t, "parse", op)
}

func TestParseCache(t *testing.T) {
	h := newHarness(t, false)
	var calls atomic.Int32
	h.parseFn = func(raw string, o parse.Options) (*parse.Result, error) {
		calls.Add(1)
		return parse.Parse(raw, o)
	}

	first, err := h.ParseNow(transcript, "a.txt")
	require.NoError(t, err)
	second, err := h.ParseNow(transcript, "b.txt")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "b.txt", second.Meta.FileName)
	assert.Equal(t, first.ID, second.ID)
	assert.Greater(t, second.Generation, first.Generation)
}

func TestLoadSupersedesParse(t *testing.T) {
	h := newHarness(t, true)
	release := make(chan struct{})
	h.parseFn = func(raw string, o parse.Options) (*parse.Result, error) {
		<-release
		return parse.Parse(raw, o)
	}
	start(t, h)

	p := h.SubmitParse(transcript, "chat.txt")

	res, err := parse.Parse("02.02.2023, 10:00 - Carol: cached", parse.Options{Location: time.UTC})
	require.NoError(t, err)
	loaded := h.Load(NewDocument(res, "cached.txt", "hash"))

	close(release)
	_, err = wait(t, p)
	assert.True(t, cerrors.Is(err, cerrors.ErrCodeStaleResult))
	assert.Same(t, loaded, h.Current())
	assert.Equal(t, "cached.txt", h.Current().FileName)
}
