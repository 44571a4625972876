package arbiter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satlink-project/satlink-go/internal/worker"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

// Errors returned by New.
var (
	ErrNoGateway         = errors.New("arbiter: gateway is required")
	ErrMaxRequestIDRange = errors.New("arbiter: max request id must be at least 3")
)

type requestKind uint8

const (
	kindEnable requestKind = iota
	kindDisable
	kindAttributes
)

// deadlineKey identifies one armed deadline. gen distinguishes a restarted
// deadline (radios-off wait) from the one it replaced.
type deadlineKey struct {
	id  uint64
	gen uint64
}

type request struct {
	id        uint64
	kind      requestKind
	attrs     satellite.EnableAttributes
	done      func(satellite.ResultCode)
	synthetic bool
	deadline  deadlineKey
}

type session struct {
	confirmedKnown   bool
	confirmedEnabled bool
	confirmedAttrs   satellite.EnableAttributes

	pendingEnable     *request
	pendingDisable    *request
	pendingAttrUpdate *request

	// queuedAttrUpdate waits for the in-flight enable to finish.
	queuedAttrUpdate *request

	waitingForRadiosOff           bool
	waitingForDisableConfirmation bool
	waitingForModemOff            bool

	modemState satellite.ModemState
}

// Arbiter owns the satellite session.
type Arbiter struct {
	gateway         modem.Gateway
	coexist         Coexistence
	preconditions   Preconditions
	enableTimeout   time.Duration
	radioOffTimeout time.Duration
	maxRequestID    uint64
	logger          *slog.Logger
	events          eventlog.Logger

	worker    *worker.Worker
	deadlines *timer.Manager[deadlineKey]
	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	stopped   atomic.Bool

	// results counts modem results processed, stale ones included.
	results atomic.Uint64

	// Worker-owned.
	s       session
	lastID  uint64
	lastGen uint64
	phase   Phase

	cbMu          sync.Mutex
	onStateChange func(from, to Phase)
}

// New creates an arbiter. Call Start before submitting requests; requests
// submitted earlier are queued.
func New(cfg Config) (*Arbiter, error) {
	if cfg.Gateway == nil {
		return nil, ErrNoGateway
	}
	if cfg.EnableTimeout <= 0 {
		cfg.EnableTimeout = DefaultEnableTimeout
	}
	if cfg.RadioOffTimeout == 0 {
		cfg.RadioOffTimeout = cfg.EnableTimeout
	}
	if cfg.MaxRequestID == 0 {
		cfg.MaxRequestID = DefaultMaxRequestID
	}
	if cfg.MaxRequestID < MinMaxRequestID {
		return nil, ErrMaxRequestIDRange
	}
	if cfg.Preconditions == nil {
		cfg.Preconditions = NewStaticPreconditions()
	}
	if cfg.EventLogger == nil {
		cfg.EventLogger = eventlog.NoopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Arbiter{
		gateway:         cfg.Gateway,
		coexist:         cfg.Coexist,
		preconditions:   cfg.Preconditions,
		enableTimeout:   cfg.EnableTimeout,
		radioOffTimeout: cfg.RadioOffTimeout,
		maxRequestID:    cfg.MaxRequestID,
		logger:          cfg.Logger,
		events:          cfg.EventLogger,
		worker:          worker.New(),
		deadlines:       timer.NewManagerWithClock[deadlineKey](cfg.Clock),
		ctx:             ctx,
		cancel:          cancel,
		s:               session{modemState: satellite.ModemUnknown},
	}
	a.deadlines.OnExpiry(func(key deadlineKey) {
		a.post(func() { a.handleDeadline(key) })
	})
	return a, nil
}

// OnStateChange sets the callback for session phase transitions. It runs on
// the arbiter's worker and must not block or call Snapshot.
func (a *Arbiter) OnStateChange(fn func(from, to Phase)) {
	a.cbMu.Lock()
	defer a.cbMu.Unlock()
	a.onStateChange = fn
}

// Start registers the modem and coexistence notifications and starts the
// worker.
func (a *Arbiter) Start() {
	if a.started.Swap(true) {
		return
	}
	a.gateway.OnModemStateChanged(func(state satellite.ModemState) {
		a.post(func() { a.handleModemState(state) })
	})
	if a.coexist != nil {
		a.coexist.OnAllRadiosDisabled(func() {
			a.post(a.handleRadiosOff)
		})
	}
	a.worker.Start()
	a.debugLog("arbiter started",
		"enableTimeout", a.enableTimeout, "radioOffTimeout", a.radioOffTimeout)
}

// Stop resolves every outstanding request with Aborted and stops the worker.
func (a *Arbiter) Stop() {
	if a.stopped.Swap(true) {
		return
	}
	if a.started.Load() {
		a.worker.Call(a.abortAll)
	}
	a.cancel()
	a.deadlines.CancelAll()
	a.worker.Stop()
}

// Sync waits until every event posted so far has been processed.
func (a *Arbiter) Sync() {
	a.worker.Sync()
}

// Snapshot returns a copy of the session state. It must not be called from
// a result callback.
func (a *Arbiter) Snapshot() Snapshot {
	var snap Snapshot
	if !a.started.Load() || a.stopped.Load() {
		return a.snapshot()
	}
	if !a.worker.Call(func() { snap = a.snapshot() }) {
		return a.snapshot()
	}
	return snap
}

// RequestEnabled submits an enable, disable or attribute-update request.
// done is invoked exactly once with the outcome, either synchronously (for a
// failed precondition) or later on the arbiter's worker; it must not block.
func (a *Arbiter) RequestEnabled(ctx context.Context, attrs satellite.EnableAttributes, done func(satellite.ResultCode)) {
	if done == nil {
		done = func(satellite.ResultCode) {}
	}
	if err := ctx.Err(); err != nil {
		done(satellite.Aborted)
		return
	}
	if code := a.checkPreconditions(attrs); code != satellite.Success {
		a.debugLog("arbiter: request rejected", "attrs", attrs.String(), "result", code.String())
		done(code)
		return
	}
	if !a.post(func() { a.handleRequest(attrs, done) }) {
		done(satellite.Aborted)
	}
}

func (a *Arbiter) checkPreconditions(attrs satellite.EnableAttributes) satellite.ResultCode {
	p := a.preconditions
	if !p.SatelliteSupported() {
		return satellite.NotSupported
	}
	if !attrs.Enable {
		return satellite.Success
	}
	if !p.Provisioned() {
		return satellite.NotProvisioned
	}
	if !p.RadioPowerOn() || p.RadioPoweringOff() {
		return satellite.InvalidModemState
	}
	if p.EmergencyCallActive() {
		return satellite.EmergencyCallInProgress
	}
	return satellite.Success
}

// post runs fn on the worker, then publishes a phase change if fn caused one.
func (a *Arbiter) post(fn func()) bool {
	return a.worker.Post(func() {
		fn()
		a.publishPhase()
	})
}

func (a *Arbiter) handleRequest(attrs satellite.EnableAttributes, done func(satellite.ResultCode)) {
	id, ok := a.nextRequestID()
	if !ok {
		a.warnLog("arbiter: no free request id", "max", a.maxRequestID)
		if done != nil {
			done(satellite.RequestInProgress)
		}
		return
	}
	req := &request{id: id, attrs: attrs, done: done, kind: kindEnable}
	if !attrs.Enable {
		req.kind = kindDisable
		req.attrs = satellite.EnableAttributes{}
	}
	a.emitRequest(req, eventlog.RequestSubmitted, "")
	s := &a.s

	switch {
	case s.pendingDisable != nil:
		if attrs.Enable {
			a.resolve(req, satellite.DisableInProgress)
		} else {
			a.resolve(req, satellite.RequestInProgress)
		}

	case s.pendingEnable != nil:
		if !attrs.Enable {
			a.preemptEnable()
			a.forward(req)
			return
		}
		if s.queuedAttrUpdate != nil {
			a.resolve(req, satellite.RequestInProgress)
			return
		}
		a.evaluateAttributes(req, s.pendingEnable.attrs, true)

	case s.pendingAttrUpdate != nil:
		if attrs.Enable {
			a.resolve(req, satellite.RequestInProgress)
			return
		}
		upd := s.pendingAttrUpdate
		a.clearDeadline(upd)
		s.pendingAttrUpdate = nil
		a.resolve(upd, satellite.Aborted)
		a.forward(req)

	case s.confirmedKnown && s.confirmedEnabled == attrs.Enable:
		if attrs.Enable {
			a.evaluateAttributes(req, s.confirmedAttrs, false)
			return
		}
		a.resolve(req, satellite.Success)

	default:
		a.forward(req)
	}
}

// evaluateAttributes handles an enable against a session that is already
// enabled (inFlight=false) or is being enabled (inFlight=true).
func (a *Arbiter) evaluateAttributes(req *request, current satellite.EnableAttributes, inFlight bool) {
	req.kind = kindAttributes
	if req.attrs.DemoMode && !current.DemoMode {
		a.resolve(req, satellite.InvalidArguments)
		return
	}
	if inFlight {
		a.s.queuedAttrUpdate = req
		return
	}
	if req.attrs.DemoMode == current.DemoMode && req.attrs.Emergency == current.Emergency {
		a.resolve(req, satellite.Success)
		return
	}
	a.s.pendingAttrUpdate = req
	a.forward(req)
}

func (a *Arbiter) forward(req *request) {
	s := &a.s
	switch req.kind {
	case kindEnable:
		s.pendingEnable = req
	case kindDisable:
		s.pendingDisable = req
		s.waitingForDisableConfirmation = true
		s.waitingForModemOff = s.modemState != satellite.ModemOff
	case kindAttributes:
		s.pendingAttrUpdate = req
	}

	a.armDeadline(req, a.enableTimeout)
	a.emitRequest(req, eventlog.RequestForwarded, "")
	a.debugLog("arbiter: forwarding", "id", req.id, "attrs", req.attrs.String(), "synthetic", req.synthetic)

	id := req.id
	ch := a.gateway.RequestSetEnabled(a.ctx, req.attrs)
	go func() {
		select {
		case code, ok := <-ch:
			if !ok {
				code = satellite.ModemError
			}
			a.post(func() { a.handleResult(id, code) })
		case <-a.ctx.Done():
		}
	}()
}

func (a *Arbiter) handleResult(id uint64, code satellite.ResultCode) {
	defer a.results.Add(1)
	s := &a.s
	switch {
	case s.pendingEnable != nil && s.pendingEnable.id == id && !s.waitingForRadiosOff:
		a.completeEnable(code)
	case s.pendingDisable != nil && s.pendingDisable.id == id && s.waitingForDisableConfirmation:
		a.completeDisableCommand(code)
	case s.pendingAttrUpdate != nil && s.pendingAttrUpdate.id == id:
		upd := s.pendingAttrUpdate
		a.clearDeadline(upd)
		s.pendingAttrUpdate = nil
		if code == satellite.Success {
			s.confirmedAttrs = upd.attrs
		}
		a.resolve(upd, code)
	default:
		a.debugLog("arbiter: dropping stale result", "id", id, "result", code.String())
	}
}

func (a *Arbiter) completeEnable(code satellite.ResultCode) {
	s := &a.s
	req := s.pendingEnable
	if code != satellite.Success {
		a.clearDeadline(req)
		s.pendingEnable = nil
		a.abortQueued()
		a.resolve(req, code)
		return
	}

	s.waitingForRadiosOff = true
	if a.coexist == nil {
		a.finalizeEnable()
		return
	}
	if err := a.coexist.DisableRequiredRadios(); err != nil {
		a.warnLog("arbiter: switching radios off failed", "error", err)
		a.emitError(err, "disable required radios")
	}
	if a.coexist.AllRadiosDisabled() {
		a.finalizeEnable()
		return
	}
	if a.radioOffTimeout > 0 {
		a.armDeadline(req, a.radioOffTimeout)
	} else {
		a.clearDeadline(req)
	}
	a.debugLog("arbiter: enable confirmed, waiting for radios off", "id", req.id)
}

func (a *Arbiter) handleRadiosOff() {
	if a.s.pendingEnable == nil || !a.s.waitingForRadiosOff {
		return
	}
	if a.coexist != nil && !a.coexist.AllRadiosDisabled() {
		return
	}
	a.finalizeEnable()
}

func (a *Arbiter) finalizeEnable() {
	s := &a.s
	req := s.pendingEnable
	a.clearDeadline(req)
	s.pendingEnable = nil
	s.waitingForRadiosOff = false
	s.confirmedKnown = true
	s.confirmedEnabled = true
	s.confirmedAttrs = req.attrs
	a.resolve(req, satellite.Success)

	if q := s.queuedAttrUpdate; q != nil {
		s.queuedAttrUpdate = nil
		a.evaluateAttributes(q, s.confirmedAttrs, false)
	}
}

func (a *Arbiter) completeDisableCommand(code satellite.ResultCode) {
	s := &a.s
	if code != satellite.Success {
		req := s.pendingDisable
		a.clearDeadline(req)
		a.clearDisable()
		a.resolve(req, code)
		return
	}
	s.waitingForDisableConfirmation = false
	a.maybeFinishDisable()
}

func (a *Arbiter) maybeFinishDisable() {
	s := &a.s
	if s.pendingDisable == nil || s.waitingForDisableConfirmation || s.waitingForModemOff {
		return
	}
	req := s.pendingDisable
	a.clearDeadline(req)
	a.clearDisable()
	s.confirmedKnown = true
	s.confirmedEnabled = false
	s.confirmedAttrs = satellite.EnableAttributes{}
	a.restoreRadios()
	a.resolve(req, satellite.Success)
}

func (a *Arbiter) handleModemState(state satellite.ModemState) {
	s := &a.s
	prev := s.modemState
	s.modemState = state
	if prev != state {
		a.events.Log(eventlog.Event{
			Component: eventlog.ComponentArbiter,
			Category:  eventlog.CategoryState,
			StateChange: &eventlog.StateChangeEvent{
				Entity:   eventlog.StateEntityModem,
				OldState: prev.String(),
				NewState: state.String(),
			},
		})
	}

	idle := s.pendingEnable == nil && s.pendingDisable == nil && s.pendingAttrUpdate == nil
	switch {
	case state == satellite.ModemOff:
		if s.pendingDisable != nil && s.waitingForModemOff {
			s.waitingForModemOff = false
			a.maybeFinishDisable()
			return
		}
		if idle && s.confirmedKnown && s.confirmedEnabled {
			a.debugLog("arbiter: modem reported off while enabled")
			s.confirmedEnabled = false
			s.confirmedAttrs = satellite.EnableAttributes{}
			a.restoreRadios()
		}

	case state.IsActive():
		if idle && !(s.confirmedKnown && s.confirmedEnabled) {
			a.warnLog("arbiter: modem active without a session, disabling", "state", state.String())
			a.forwardSyntheticDisable()
		}
	}
}

func (a *Arbiter) handleDeadline(key deadlineKey) {
	s := &a.s
	switch {
	case s.pendingEnable != nil && s.pendingEnable.deadline == key:
		req := s.pendingEnable
		s.pendingEnable = nil
		s.waitingForRadiosOff = false
		a.abortQueued()
		a.emitRequest(req, eventlog.RequestTimedOut, "")
		a.resolve(req, satellite.ModemTimeout)
		if s.pendingDisable == nil {
			a.forwardSyntheticDisable()
		}

	case s.pendingDisable != nil && s.pendingDisable.deadline == key:
		req := s.pendingDisable
		a.clearDisable()
		a.emitRequest(req, eventlog.RequestTimedOut, "")
		a.resolve(req, satellite.ModemTimeout)

	case s.pendingAttrUpdate != nil && s.pendingAttrUpdate.deadline == key:
		req := s.pendingAttrUpdate
		s.pendingAttrUpdate = nil
		a.emitRequest(req, eventlog.RequestTimedOut, "")
		a.resolve(req, satellite.ModemTimeout)
	}
}

// preemptEnable aborts the in-flight enable so a disable can take its slot.
func (a *Arbiter) preemptEnable() {
	s := &a.s
	req := s.pendingEnable
	a.clearDeadline(req)
	s.pendingEnable = nil
	s.waitingForRadiosOff = false
	a.abortQueued()
	a.resolve(req, satellite.Aborted)
}

func (a *Arbiter) abortQueued() {
	if q := a.s.queuedAttrUpdate; q != nil {
		a.s.queuedAttrUpdate = nil
		a.resolve(q, satellite.Aborted)
	}
}

func (a *Arbiter) abortAll() {
	s := &a.s
	for _, req := range []*request{s.queuedAttrUpdate, s.pendingAttrUpdate, s.pendingEnable, s.pendingDisable} {
		if req != nil {
			a.clearDeadline(req)
			a.resolve(req, satellite.Aborted)
		}
	}
	s.queuedAttrUpdate = nil
	s.pendingAttrUpdate = nil
	s.pendingEnable = nil
	s.waitingForRadiosOff = false
	a.clearDisable()
}

func (a *Arbiter) clearDisable() {
	a.s.pendingDisable = nil
	a.s.waitingForDisableConfirmation = false
	a.s.waitingForModemOff = false
}

func (a *Arbiter) restoreRadios() {
	if a.coexist == nil {
		return
	}
	if err := a.coexist.RestoreRadios(); err != nil {
		a.warnLog("arbiter: restoring radios failed", "error", err)
		a.emitError(err, "restore radios")
	}
}

func (a *Arbiter) forwardSyntheticDisable() {
	id, ok := a.nextRequestID()
	if !ok {
		a.warnLog("arbiter: no free request id for corrective disable", "max", a.maxRequestID)
		return
	}
	req := &request{id: id, kind: kindDisable, synthetic: true}
	a.emitRequest(req, eventlog.RequestSubmitted, "")
	a.forward(req)
}

// nextRequestID returns the next id in [1, maxRequestID], skipping ids still
// held by an outstanding request. It gives up after one full cycle.
func (a *Arbiter) nextRequestID() (uint64, bool) {
	for i := uint64(0); i < a.maxRequestID; i++ {
		a.lastID++
		if a.lastID > a.maxRequestID {
			a.lastID = 1
		}
		if !a.outstanding(a.lastID) {
			return a.lastID, true
		}
	}
	return 0, false
}

func (a *Arbiter) outstanding(id uint64) bool {
	s := &a.s
	for _, req := range []*request{s.pendingEnable, s.pendingDisable, s.pendingAttrUpdate, s.queuedAttrUpdate} {
		if req != nil && req.id == id {
			return true
		}
	}
	return false
}

func (a *Arbiter) armDeadline(req *request, d time.Duration) {
	a.clearDeadline(req)
	a.lastGen++
	req.deadline = deadlineKey{id: req.id, gen: a.lastGen}
	if err := a.deadlines.SetTimer(req.deadline, d); err != nil {
		a.warnLog("arbiter: arming deadline failed", "id", req.id, "error", err)
	}
}

func (a *Arbiter) clearDeadline(req *request) {
	if req.deadline.gen == 0 {
		return
	}
	_ = a.deadlines.CancelTimer(req.deadline)
	req.deadline = deadlineKey{}
}

func (a *Arbiter) resolve(req *request, code satellite.ResultCode) {
	a.emitRequest(req, eventlog.RequestCompleted, code.String())
	a.debugLog("arbiter: resolved", "id", req.id, "result", code.String())
	if req.done != nil {
		done := req.done
		req.done = nil
		done(code)
	}
}

func (a *Arbiter) snapshot() Snapshot {
	s := &a.s
	snap := Snapshot{
		Phase:                         a.computePhase(),
		ConfirmedKnown:                s.confirmedKnown,
		ConfirmedEnabled:              s.confirmedEnabled,
		Attributes:                    s.confirmedAttrs,
		WaitingForRadiosOff:           s.waitingForRadiosOff,
		WaitingForDisableConfirmation: s.waitingForDisableConfirmation,
		WaitingForModemOff:            s.waitingForModemOff,
		ModemState:                    s.modemState,
		LastRequestID:                 a.lastID,
	}
	if s.pendingEnable != nil {
		snap.PendingEnable = s.pendingEnable.id
	}
	if s.pendingDisable != nil {
		snap.PendingDisable = s.pendingDisable.id
	}
	if s.pendingAttrUpdate != nil {
		snap.PendingAttributeUpdate = s.pendingAttrUpdate.id
	}
	if s.queuedAttrUpdate != nil {
		snap.QueuedAttributeUpdate = s.queuedAttrUpdate.id
	}
	return snap
}

func (a *Arbiter) computePhase() Phase {
	s := &a.s
	switch {
	case s.pendingDisable != nil:
		if !s.waitingForDisableConfirmation && s.waitingForModemOff {
			return PhaseWaitingForModemOff
		}
		return PhaseDisablePending
	case s.pendingEnable != nil:
		if s.waitingForRadiosOff {
			return PhaseWaitingForRadiosOff
		}
		return PhaseEnablePending
	case s.confirmedKnown && s.confirmedEnabled:
		return PhaseEnabled
	default:
		return PhaseIdle
	}
}

func (a *Arbiter) publishPhase() {
	next := a.computePhase()
	if next == a.phase {
		return
	}
	prev := a.phase
	a.phase = next

	a.events.Log(eventlog.Event{
		Component: eventlog.ComponentArbiter,
		Category:  eventlog.CategoryState,
		StateChange: &eventlog.StateChangeEvent{
			Entity:   eventlog.StateEntitySession,
			OldState: prev.String(),
			NewState: next.String(),
		},
	})

	a.cbMu.Lock()
	fn := a.onStateChange
	a.cbMu.Unlock()
	if fn != nil {
		fn(prev, next)
	}
}

func (a *Arbiter) emitRequest(req *request, stage eventlog.RequestStage, result string) {
	a.events.Log(eventlog.Event{
		Component: eventlog.ComponentArbiter,
		Category:  eventlog.CategoryRequest,
		Request: &eventlog.RequestEvent{
			RequestID: req.id,
			Stage:     stage,
			Enable:    req.kind != kindDisable,
			DemoMode:  req.attrs.DemoMode,
			Emergency: req.attrs.Emergency,
			Synthetic: req.synthetic,
			Result:    result,
		},
	})
}

func (a *Arbiter) emitError(err error, op string) {
	a.events.Log(eventlog.Event{
		Component: eventlog.ComponentArbiter,
		Category:  eventlog.CategoryError,
		Error:     &eventlog.ErrorEventData{Message: err.Error(), Context: op},
	})
}

func (a *Arbiter) debugLog(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Arbiter) warnLog(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
