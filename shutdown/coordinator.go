package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/shutdownkit/bus"
	serrors "github.com/vinayprograms/shutdownkit/errors"
	"github.com/vinayprograms/shutdownkit/logging"
	"github.com/vinayprograms/shutdownkit/telemetry"
)

// Coordinator fans a termination signal out to registered participants,
// waits for their acknowledgements and terminates the process with the
// aggregated status, or with ExitTimeout when the deadline passes first.
type Coordinator struct {
	config    Config
	source    SignalSource
	terminate Terminator
	log       *logging.Logger
	tracer    *telemetry.Tracer
	notices   bus.MessageBus

	mu       sync.Mutex
	registry map[Handle]*registration
	seq      uint64
	episode  *episode
	report   *Report
	outbox   []Notice
	sigCh    chan os.Signal
	stopCh   chan struct{}

	// publishMu keeps notices in queue order across goroutines.
	publishMu sync.Mutex

	done chan struct{}
}

// registration holds a registered participant with its metadata.
type registration struct {
	handle      Handle
	name        string
	participant Participant
	seq         uint64
}

// pending is a participant notified in the current episode that has not acknowledged.
type pending struct {
	reg     *registration
	started time.Time
	span    trace.Span
}

// episode is the state of one shutdown attempt.
type episode struct {
	signal       os.Signal
	started      time.Time
	active       map[Handle]*pending
	results      []Result
	failures     int
	timer        *time.Timer
	broadcasting bool
	terminated   bool
	ctx          context.Context
	cancel       context.CancelFunc
	span         trace.Span
}

type endReason int

const (
	endDrained endReason = iota
	endTimeout
	endForced
)

// Option configures optional collaborators of a Coordinator.
type Option func(*Coordinator)

// WithSignalSource replaces the process-wide os/signal source.
func WithSignalSource(s SignalSource) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.source = s
		}
	}
}

// WithTerminator replaces os.Exit as the final termination call.
func WithTerminator(t Terminator) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.terminate = t
		}
	}
}

// WithLogger sets the logger. Lines are tagged [shutdown].
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l.WithComponent("shutdown")
		}
	}
}

// WithTracer sets the tracer used for episode and participant spans.
func WithTracer(t *telemetry.Tracer) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithNotices publishes episode notices on b under Config.Event.
func WithNotices(b bus.MessageBus) Option {
	return func(c *Coordinator) {
		c.notices = b
	}
}

// NewCoordinator creates a new shutdown coordinator.
// Zero config fields take their defaults.
func NewCoordinator(cfg Config, opts ...Option) (*Coordinator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		config:    cfg,
		source:    OSSignals{},
		terminate: os.Exit,
		log:       logging.New().WithComponent("shutdown"),
		tracer:    telemetry.GetTracer(),
		registry:  make(map[Handle]*registration),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the coordinator's configuration.
func (c *Coordinator) Config() Config {
	cfg := c.config
	cfg.Signals = append([]os.Signal(nil), c.config.Signals...)
	return cfg
}

// Register adds a participant and returns its handle.
// An empty name is replaced by the handle.
func (c *Coordinator) Register(name string, p Participant) Handle {
	if p == nil {
		return ""
	}
	h := Handle(uuid.New().String())
	if name == "" {
		name = string(h)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.registry[h] = &registration{
		handle:      h,
		name:        name,
		participant: p,
		seq:         c.seq,
	}
	return h
}

// RegisterFunc registers a function run on its own goroutine (see Async).
func (c *Coordinator) RegisterFunc(name string, fn func(ctx context.Context) error) Handle {
	return c.Register(name, Async(fn))
}

// RegisterCallback registers a callback-style cleanup function (see FromCallback).
func (c *Coordinator) RegisterCallback(name string, fn CallbackFunc) Handle {
	return c.Register(name, FromCallback(fn))
}

// Unregister removes a participant without notifying it. Unknown handles are ignored.
// During an episode the participant also stops holding the episode open.
func (c *Coordinator) Unregister(h Handle) {
	c.mu.Lock()
	delete(c.registry, h)

	var span trace.Span
	var elapsed time.Duration
	if ep := c.episode; ep != nil && !ep.terminated {
		if p, ok := ep.active[h]; ok {
			delete(ep.active, h)
			span = p.span
			elapsed = time.Since(p.started)
		}
	}
	c.mu.Unlock()

	if span != nil {
		c.tracer.EndParticipant(span, elapsed, nil)
	}
	c.checkDrained()
}

// Len returns the number of registered participants.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.registry)
}

// Pending returns the names of participants the running episode is waiting on.
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.episode == nil {
		return nil
	}
	var names []string
	for _, p := range sortedPending(c.episode.active) {
		names = append(names, p.reg.name)
	}
	return names
}

// HandleSignals subscribes to the configured signals and starts an episode
// on the first one. Later signals are handled as repeats.
func (c *Coordinator) HandleSignals() {
	c.mu.Lock()
	if c.sigCh != nil {
		c.mu.Unlock()
		return
	}
	ch := make(chan os.Signal, 4)
	stop := make(chan struct{})
	c.sigCh = ch
	c.stopCh = stop
	c.mu.Unlock()

	c.source.Notify(ch, c.config.Signals...)

	go func() {
		for {
			select {
			case sig := <-ch:
				// The fan-out runs off this loop so a participant blocked in
				// OnShutdown cannot hold back a repeat signal.
				if broadcast := c.onSignal(sig); broadcast != nil {
					go broadcast()
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop unsubscribes from signals. It does not affect a running episode.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	ch, stop := c.sigCh, c.stopCh
	c.sigCh, c.stopCh = nil, nil
	c.mu.Unlock()

	if ch == nil {
		return
	}
	c.source.Stop(ch)
	close(stop)
}

// Trigger delivers sig as if it had been received (useful for testing and
// programmatic shutdown). A nil sig uses the first configured signal.
// The first Trigger returns once every participant has been notified.
func (c *Coordinator) Trigger(sig os.Signal) {
	if sig == nil {
		sig = c.config.Signals[0]
	}
	if broadcast := c.onSignal(sig); broadcast != nil {
		broadcast()
	}
}

// Done returns a channel that is closed when the episode terminates,
// immediately before the Terminator is called.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Report returns the episode report, or nil before Done is closed.
func (c *Coordinator) Report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// Err returns the episode error. Only valid after Done() is closed.
func (c *Coordinator) Err() error {
	if r := c.Report(); r != nil {
		return r.Err
	}
	return nil
}

// onSignal arms an episode on the first signal and handles repeats after
// that. For the first signal it returns the fan-out, which the caller runs.
func (c *Coordinator) onSignal(sig os.Signal) func() {
	name := SignalName(sig)

	c.mu.Lock()
	if ep := c.episode; ep != nil {
		force := c.config.ForceOnRepeat && !ep.terminated
		c.queueNotice(Notice{Kind: NoticeRepeat, Signal: name})
		var r *Report
		var abandoned []trace.Span
		if force {
			r, abandoned = c.endEpisode(endForced)
		}
		c.mu.Unlock()

		c.log.RepeatSignal(name, force)
		if r != nil {
			c.finish(ep, r, abandoned)
			return nil
		}
		c.flushNotices()
		return nil
	}

	regs := c.snapshot()
	now := time.Now()
	ctx, cancel := context.WithDeadline(context.Background(), now.Add(c.config.Timeout))
	ctx = withFaultPolicy(ctx, c.config.FaultPolicy)
	ctx, span := c.tracer.StartEpisode(ctx, name, len(regs))

	ep := &episode{
		signal:       sig,
		started:      now,
		active:       make(map[Handle]*pending, len(regs)),
		broadcasting: true,
		ctx:          ctx,
		cancel:       cancel,
		span:         span,
	}
	for _, r := range regs {
		ep.active[r.handle] = &pending{reg: r}
	}
	c.episode = ep
	ep.timer = time.AfterFunc(c.config.Timeout, c.onTimeout)
	c.queueNotice(Notice{Kind: NoticeSignal, Signal: name})
	c.mu.Unlock()

	c.log.SignalReceived(name, len(regs))
	c.flushNotices()

	return func() { c.broadcast(ep, regs, sig) }
}

// broadcast notifies regs in registration order, then evaluates termination.
func (c *Coordinator) broadcast(ep *episode, regs []*registration, sig os.Signal) {
	// Every participant is notified before termination is evaluated.
	for _, r := range regs {
		c.mu.Lock()
		if ep.terminated {
			c.mu.Unlock()
			break
		}
		p, ok := ep.active[r.handle]
		if !ok {
			c.mu.Unlock()
			continue
		}
		pctx, pspan := c.tracer.StartParticipant(withParticipant(ep.ctx, r.name), r.name)
		p.span = pspan
		p.started = time.Now()
		c.mu.Unlock()

		c.invoke(pctx, r, sig)
	}

	c.mu.Lock()
	ep.broadcasting = false
	c.mu.Unlock()

	c.checkDrained()
}

// invoke calls a participant, recovering panics under FaultAcknowledge.
func (c *Coordinator) invoke(ctx context.Context, r *registration, sig os.Signal) {
	ack := func(err error) {
		c.ack(r.handle, err)
	}
	if c.config.FaultPolicy == FaultAcknowledge {
		defer func() {
			if rec := recover(); rec != nil {
				ack(serrors.Panic(rec, serrors.WithParticipant(r.name)))
			}
		}()
	}
	r.participant.OnShutdown(ctx, ack, sig)
}

// ack records a participant's acknowledgement. Only the first one counts.
func (c *Coordinator) ack(h Handle, err error) {
	c.mu.Lock()
	ep := c.episode
	if ep == nil || ep.terminated {
		c.mu.Unlock()
		return
	}
	p, ok := ep.active[h]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(ep.active, h)
	delete(c.registry, h)

	res := Result{
		Handle:   h,
		Name:     p.reg.name,
		Duration: time.Since(p.started),
		Err:      err,
	}
	ep.results = append(ep.results, res)
	n := Notice{Kind: NoticeAck, Participant: res.Name}
	if err != nil {
		ep.failures++
		n.Error = err.Error()
	}
	c.queueNotice(n)
	span := p.span
	c.mu.Unlock()

	if span != nil {
		c.tracer.EndParticipant(span, res.Duration, err)
	}
	if err != nil {
		c.log.ParticipantFailed(res.Name, err)
	}
	if c.config.OnProgress != nil {
		c.config.OnProgress(res)
	}
	c.flushNotices()
	c.checkDrained()
}

// checkDrained terminates the episode once no participant is pending.
func (c *Coordinator) checkDrained() {
	c.mu.Lock()
	ep := c.episode
	if ep == nil || ep.terminated || ep.broadcasting || len(ep.active) > 0 {
		c.mu.Unlock()
		return
	}
	r, abandoned := c.endEpisode(endDrained)
	c.mu.Unlock()

	c.finish(ep, r, abandoned)
}

func (c *Coordinator) onTimeout() {
	c.mu.Lock()
	ep := c.episode
	if ep == nil || ep.terminated {
		c.mu.Unlock()
		return
	}
	r, abandoned := c.endEpisode(endTimeout)
	c.mu.Unlock()

	c.finish(ep, r, abandoned)
}

// endEpisode marks the episode terminated and builds its report.
// Caller holds c.mu. It returns the spans of abandoned participants.
func (c *Coordinator) endEpisode(reason endReason) (*Report, []trace.Span) {
	ep := c.episode
	ep.terminated = true

	r := &Report{
		Signal:        ep.signal,
		Started:       ep.started,
		TotalDuration: time.Since(ep.started),
		Results:       append([]Result(nil), ep.results...),
		Failures:      ep.failures,
	}

	var spans []trace.Span
	for _, p := range sortedPending(ep.active) {
		r.Abandoned = append(r.Abandoned, p.reg.name)
		if p.span != nil {
			spans = append(spans, p.span)
		}
	}

	switch reason {
	case endTimeout:
		r.Status = ExitTimeout
		r.TimedOut = true
		r.Err = serrors.WrapWithCode(ErrTimeout, serrors.ErrCodeTimeout,
			fmt.Sprintf("%d participant(s) pending after %s", len(r.Abandoned), c.config.Timeout))
		c.queueNotice(Notice{Kind: NoticeTimeout})
	case endForced:
		r.Status = ExitFailure
		r.Forced = true
		r.Err = serrors.WrapWithCode(ErrForced, serrors.ErrCodeForced,
			fmt.Sprintf("%d participant(s) pending", len(r.Abandoned)))
	default:
		r.Status = ExitSuccess
		if ep.failures > 0 {
			r.Status = ExitFailure
			r.Err = failureError(r.Results)
		}
	}

	c.queueNotice(Notice{Kind: NoticeExit, Status: intPtr(r.Status)})
	return r, spans
}

// finish runs the termination side effects exactly once per episode.
func (c *Coordinator) finish(ep *episode, r *Report, abandoned []trace.Span) {
	ep.timer.Stop()
	for _, span := range abandoned {
		c.tracer.AbandonParticipant(span)
	}
	ep.cancel()
	c.tracer.EndEpisode(ep.span, telemetry.EpisodeSpanOptions{
		Status:    r.Status,
		Failures:  r.Failures,
		Abandoned: r.Abandoned,
		TimedOut:  r.TimedOut,
		Forced:    r.Forced,
		Duration:  r.TotalDuration,
	}, r.Err)

	if r.TimedOut {
		c.log.TimeoutExceeded(c.config.Timeout, r.Abandoned)
	}
	c.log.Exit(r.Status, r.TotalDuration)

	c.flushNotices()
	if c.notices != nil {
		if err := c.notices.Flush(); err != nil {
			c.log.Debug("notice_flush_failed", map[string]interface{}{"error": err.Error()})
		}
	}

	c.mu.Lock()
	c.report = r
	c.mu.Unlock()
	close(c.done)

	c.terminate(r.Status)
}

// snapshot returns registered participants in registration order. Caller holds c.mu.
func (c *Coordinator) snapshot() []*registration {
	regs := make([]*registration, 0, len(c.registry))
	for _, r := range c.registry {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].seq < regs[j].seq
	})
	return regs
}

func sortedPending(active map[Handle]*pending) []*pending {
	out := make([]*pending, 0, len(active))
	for _, p := range active {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].reg.seq < out[j].reg.seq
	})
	return out
}

func failureError(results []Result) error {
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	joined := fmt.Errorf("%w: %w", ErrParticipantFailed, errors.Join(errs...))
	return serrors.WrapWithCode(joined, serrors.ErrCodeParticipantFailed,
		fmt.Sprintf("%d participant(s) failed", len(errs)))
}
