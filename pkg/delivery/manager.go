package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/satlink-project/satlink-go/internal/worker"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

type taskKey struct {
	datagramID uint64
	listener   ListenerID
}

type task struct {
	attempts int
}

// entry is a record known to the manager. seq tells apart two records that
// used the same id at different times, so a stale AckFunc cannot ack the
// newer one.
type entry struct {
	rec        Record
	seq        uint64
	dispatched map[ListenerID]bool
	acked      map[ListenerID]bool
}

type registration struct {
	id       ListenerID
	listener Listener
}

type channelState struct {
	listeners []registration
}

type receipt struct {
	channel string
	payload []byte
	pending int
}

// Manager delivers datagrams to listeners until they acknowledge them.
type Manager struct {
	gateway       modem.Gateway
	store         RecordStore
	ids           IDAllocator
	retryInterval time.Duration
	maxAttempts   int
	autoPoll      bool
	clock         timer.Clock
	logger        *slog.Logger
	events        eventlog.Logger

	worker *worker.Worker
	timers *timer.Manager[taskKey]
	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
	stopped atomic.Bool

	// Worker-owned.
	channels map[string]*channelState
	entries  map[uint64]*entry
	tasks    map[taskKey]*task
	backlog  []receipt
	seq      uint64
}

// New creates a Manager. Call Start to load persisted records.
func New(cfg Config) (*Manager, error) {
	if cfg.Gateway == nil {
		return nil, ErrNoGateway
	}
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = timer.RealClock{}
	}
	if cfg.EventLogger == nil {
		cfg.EventLogger = eventlog.NoopLogger{}
	}
	if cfg.IDs == nil {
		alloc, err := idalloc.New(nil, idalloc.Config{Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		cfg.IDs = alloc
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		gateway:       cfg.Gateway,
		store:         cfg.Store,
		ids:           cfg.IDs,
		retryInterval: cfg.RetryInterval,
		maxAttempts:   cfg.MaxAttempts,
		autoPoll:      cfg.AutoPoll,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		events:        cfg.EventLogger,
		worker:        worker.New(),
		timers:        timer.NewManagerWithClock[taskKey](cfg.Clock),
		ctx:           ctx,
		cancel:        cancel,
		channels:      make(map[string]*channelState),
		entries:       make(map[uint64]*entry),
		tasks:         make(map[taskKey]*task),
	}
	m.timers.OnExpiry(func(key taskKey) {
		m.worker.Post(func() { m.handleRetry(key) })
	})
	return m, nil
}

// Start loads persisted records, so their ids count as in use, and starts
// the worker.
func (m *Manager) Start() error {
	if m.started.Load() {
		return nil
	}
	records, err := m.store.ListRecords()
	if err != nil {
		return fmt.Errorf("load datagram records: %w", err)
	}
	for _, rec := range records {
		m.track(rec)
	}
	m.started.Store(true)
	m.worker.Start()
	m.debugLog("delivery started", "records", len(records), "retryInterval", m.retryInterval)
	return nil
}

// Stop cancels all retries and stops the worker. Records stay persisted.
func (m *Manager) Stop() {
	if m.stopped.Swap(true) {
		return
	}
	m.cancel()
	m.timers.CancelAll()
	m.worker.Stop()
}

// Sync waits until every event posted so far has been processed.
func (m *Manager) Sync() {
	m.worker.Sync()
}

// RegisterListener adds a listener for channel. Start must have been called. The first listener on a
// channel subscribes it at the gateway; failure yields ModemError. Records
// already persisted for the channel are delivered to the new listener.
func (m *Manager) RegisterListener(channel string, l Listener) (ListenerID, satellite.ResultCode) {
	if l == nil {
		return "", satellite.InvalidArguments
	}
	var (
		id   ListenerID
		code = satellite.Aborted
	)
	m.worker.Call(func() {
		id, code = m.register(channel, l)
	})
	return id, code
}

// UnregisterListener removes a listener. Its pending retries are cancelled;
// records stay persisted. The last listener to leave unsubscribes the
// channel at the gateway.
func (m *Manager) UnregisterListener(channel string, id ListenerID) error {
	err := ErrStopped
	m.worker.Call(func() {
		err = m.unregister(channel, id)
	})
	return err
}

// Flush re-reads the store and delivers every record that has no delivery
// in progress. It returns the number of deliveries made.
func (m *Manager) Flush() (int, error) {
	var (
		n   int
		err = ErrStopped
	)
	m.worker.Call(func() {
		n, err = m.flush()
	})
	return n, err
}

// Status returns a summary of the manager's state.
func (m *Manager) Status() Status {
	st := Status{Listeners: make(map[string]int)}
	m.worker.Call(func() {
		st.Records = len(m.entries)
		st.Deliveries = len(m.tasks)
		st.Backlog = len(m.backlog)
		if last, ok := m.ids.(interface{ Last() uint64 }); ok {
			st.LastID = last.Last()
		}
		for name, ch := range m.channels {
			st.Listeners[name] = len(ch.listeners)
		}
	})
	return st
}

func (m *Manager) register(channel string, l Listener) (ListenerID, satellite.ResultCode) {
	ch, ok := m.channels[channel]
	if !ok {
		handler := func(payload []byte, pendingCount int) {
			m.worker.Post(func() { m.handleDatagram(channel, payload, pendingCount) })
		}
		if err := m.gateway.SubscribeDatagrams(channel, handler); err != nil {
			m.warnLog("delivery: subscribe failed", "channel", channel, "error", err)
			m.emitError(err, "subscribe "+channel)
			return "", satellite.ModemError
		}
		ch = &channelState{}
		m.channels[channel] = ch
	}

	id := ListenerID(uuid.NewString())
	ch.listeners = append(ch.listeners, registration{id: id, listener: l})
	m.debugLog("delivery: listener registered", "channel", channel, "listener", id, "count", len(ch.listeners))

	for _, e := range m.sortedEntries() {
		if e.rec.Channel == channel {
			m.dispatch(e, id, l)
		}
	}
	return id, satellite.Success
}

func (m *Manager) unregister(channel string, id ListenerID) error {
	ch, ok := m.channels[channel]
	if !ok {
		return ErrUnknownListener
	}
	idx := -1
	for i, r := range ch.listeners {
		if r.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownListener
	}
	ch.listeners = append(ch.listeners[:idx], ch.listeners[idx+1:]...)

	m.timers.CancelMatching(func(k taskKey) bool { return k.listener == id })
	for key := range m.tasks {
		if key.listener == id {
			delete(m.tasks, key)
		}
	}
	for _, e := range m.sortedEntries() {
		if !e.dispatched[id] {
			continue
		}
		delete(e.dispatched, id)
		delete(e.acked, id)
		if m.fullyAcked(e) {
			m.purge(e)
		}
	}

	if len(ch.listeners) == 0 {
		delete(m.channels, channel)
		if err := m.gateway.UnsubscribeDatagrams(channel); err != nil {
			m.warnLog("delivery: unsubscribe failed", "channel", channel, "error", err)
			m.emitError(err, "unsubscribe "+channel)
		}
	}
	m.debugLog("delivery: listener unregistered", "channel", channel, "listener", id)
	return nil
}

func (m *Manager) handleDatagram(channel string, payload []byte, pendingCount int) {
	if m.autoPoll && pendingCount > 0 {
		defer m.poll()
	}

	id, err := m.ids.NextFree(func(id uint64) bool {
		_, inUse := m.entries[id]
		return inUse
	})
	if err != nil {
		m.warnLog("delivery: no free datagram id, holding receipt",
			"channel", channel, "backlog", len(m.backlog)+1, "error", err)
		m.emitError(fmt.Errorf("%s: %w", satellite.NoResources, err), "allocate id")
		m.backlog = append(m.backlog, receipt{channel: channel, payload: payload, pending: pendingCount})
		return
	}

	rec := Record{
		ID:           id,
		Channel:      channel,
		Payload:      payload,
		PendingCount: pendingCount,
		ReceivedAt:   m.clock.Now(),
	}
	if err := m.store.InsertRecord(rec); err != nil {
		m.warnLog("delivery: persisting datagram failed, delivering from memory",
			"id", id, "error", err)
		m.emitError(err, "insert record")
	}
	e := m.track(rec)
	m.emitDatagram(e, eventlog.DatagramReceived, "", 0)

	if ch, ok := m.channels[channel]; ok {
		for _, r := range ch.listeners {
			m.dispatch(e, r.id, r.listener)
		}
	}
}

func (m *Manager) dispatch(e *entry, id ListenerID, l Listener) {
	key := taskKey{datagramID: e.rec.ID, listener: id}
	t, ok := m.tasks[key]
	if !ok {
		t = &task{}
		m.tasks[key] = t
	}
	t.attempts++
	e.dispatched[id] = true
	delete(e.acked, id)

	if err := m.timers.SetTimer(key, m.retryInterval); err != nil {
		m.warnLog("delivery: arming retry failed", "id", e.rec.ID, "error", err)
	}
	m.emitDatagram(e, eventlog.DatagramDispatched, id, t.attempts)

	datagramID, seq := e.rec.ID, e.seq
	ack := func() {
		m.worker.Post(func() { m.handleAck(datagramID, seq, id) })
	}
	l.OnReceived(e.rec.ID, e.rec.Payload, e.rec.PendingCount, ack)
}

func (m *Manager) handleAck(datagramID, seq uint64, id ListenerID) {
	e, ok := m.entries[datagramID]
	if !ok || e.seq != seq || !e.dispatched[id] || e.acked[id] {
		return
	}
	e.acked[id] = true

	key := taskKey{datagramID: datagramID, listener: id}
	_ = m.timers.CancelTimer(key)
	delete(m.tasks, key)
	m.emitDatagram(e, eventlog.DatagramAcked, id, 0)

	if m.fullyAcked(e) {
		m.purge(e)
	}
}

func (m *Manager) handleRetry(key taskKey) {
	t, ok := m.tasks[key]
	if !ok {
		return
	}
	e, ok := m.entries[key.datagramID]
	l := m.listener(key.listener)
	if !ok || l == nil {
		delete(m.tasks, key)
		return
	}
	if m.maxAttempts > 0 && t.attempts >= m.maxAttempts {
		delete(m.tasks, key)
		m.warnLog("delivery: giving up on listener, record kept",
			"id", key.datagramID, "listener", key.listener, "attempts", t.attempts)
		m.emitDatagram(e, eventlog.DatagramAbandoned, key.listener, t.attempts)
		return
	}
	m.dispatch(e, key.listener, l)
}

func (m *Manager) flush() (int, error) {
	records, err := m.store.ListRecords()
	if err != nil {
		return 0, fmt.Errorf("list datagram records: %w", err)
	}
	n := 0
	for _, rec := range records {
		e, ok := m.entries[rec.ID]
		if !ok {
			e = m.track(rec)
		}
		ch, ok := m.channels[e.rec.Channel]
		if !ok {
			continue
		}
		for _, r := range ch.listeners {
			if _, busy := m.tasks[taskKey{datagramID: e.rec.ID, listener: r.id}]; busy || e.acked[r.id] {
				continue
			}
			m.dispatch(e, r.id, r.listener)
			n++
		}
	}
	m.debugLog("delivery: flushed", "records", len(records), "deliveries", n)
	return n, nil
}

// purge deletes an acknowledged record. On failure the record is kept and
// its acks forgotten, so Flush or the next registration delivers it again.
func (m *Manager) purge(e *entry) {
	if err := m.store.DeleteRecord(e.rec.ID); err != nil {
		m.warnLog("delivery: deleting acked record failed, will redeliver",
			"id", e.rec.ID, "error", err)
		m.emitError(err, "delete record")
		e.dispatched = make(map[ListenerID]bool)
		e.acked = make(map[ListenerID]bool)
		return
	}
	delete(m.entries, e.rec.ID)
	m.emitDatagram(e, eventlog.DatagramDeleted, "", 0)
	m.drainBacklog()
}

func (m *Manager) drainBacklog() {
	if len(m.backlog) == 0 {
		return
	}
	next := m.backlog[0]
	m.backlog = m.backlog[1:]
	m.handleDatagram(next.channel, next.payload, next.pending)
}

func (m *Manager) poll() {
	ch := m.gateway.RequestPollPending(m.ctx)
	go func() {
		select {
		case code, ok := <-ch:
			if ok && code != satellite.Success {
				m.warnLog("delivery: poll for pending datagrams failed", "result", code.String())
			}
		case <-m.ctx.Done():
		}
	}()
}

func (m *Manager) track(rec Record) *entry {
	m.seq++
	e := &entry{
		rec:        rec,
		seq:        m.seq,
		dispatched: make(map[ListenerID]bool),
		acked:      make(map[ListenerID]bool),
	}
	m.entries[rec.ID] = e
	return e
}

func (m *Manager) fullyAcked(e *entry) bool {
	if len(e.dispatched) == 0 {
		return false
	}
	for id := range e.dispatched {
		if !e.acked[id] {
			return false
		}
	}
	return true
}

func (m *Manager) listener(id ListenerID) Listener {
	for _, ch := range m.channels {
		for _, r := range ch.listeners {
			if r.id == id {
				return r.listener
			}
		}
	}
	return nil
}

// sortedEntries returns entries in receipt order.
func (m *Manager) sortedEntries() []*entry {
	out := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (m *Manager) emitDatagram(e *entry, stage eventlog.DatagramStage, id ListenerID, attempt int) {
	m.events.Log(eventlog.Event{
		Component: eventlog.ComponentDelivery,
		Category:  eventlog.CategoryDatagram,
		Datagram: &eventlog.DatagramEvent{
			DatagramID:   e.rec.ID,
			Channel:      e.rec.Channel,
			Stage:        stage,
			ListenerID:   string(id),
			Attempt:      attempt,
			Size:         len(e.rec.Payload),
			PendingCount: e.rec.PendingCount,
		},
	})
}

func (m *Manager) emitError(err error, op string) {
	m.events.Log(eventlog.Event{
		Component: eventlog.ComponentDelivery,
		Category:  eventlog.CategoryError,
		Error:     &eventlog.ErrorEventData{Message: err.Error(), Context: op},
	})
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Manager) warnLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
