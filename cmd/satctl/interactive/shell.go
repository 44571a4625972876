// Package interactive provides the interactive command-line interface
// for satctl.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/satlink-project/satlink-go/pkg/arbiter"
	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/service"
)

// listening is one listener registered from the shell.
type listening struct {
	id   delivery.ListenerID
	auto bool
}

// Shell handles interactive mode for satctl.
type Shell struct {
	svc           *service.Service
	sim           *modem.Simulator
	preconditions *arbiter.StaticPreconditions
	rl            *readline.Instance
	out           io.Writer

	mu        sync.Mutex
	listeners map[string]listening
	unacked   map[uint64]delivery.AckFunc
}

// New creates a new interactive shell.
func New(svc *service.Service, sim *modem.Simulator, pre *arbiter.StaticPreconditions) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "satctl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(svc, sim, pre, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(svc *service.Service, sim *modem.Simulator, pre *arbiter.StaticPreconditions, out io.Writer) *Shell {
	return &Shell{
		svc:           svc,
		sim:           sim,
		preconditions: pre,
		out:           out,
		listeners:     make(map[string]listening),
		unacked:       make(map[uint64]delivery.AckFunc),
	}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if quit := s.Execute(ctx, line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "enable", "on":
		s.cmdEnable(ctx, args)

	case "disable", "off":
		s.cmdDisable(ctx)

	case "status", "st":
		s.cmdStatus()

	case "radio":
		s.cmdRadio(args)

	case "require":
		s.cmdRequire(args)

	case "modem":
		s.cmdModem(args)

	case "emergency-call":
		s.cmdEmergencyCall(args)

	case "inject":
		s.cmdInject(args)

	case "listen":
		s.cmdListen(args)

	case "unlisten":
		s.cmdUnlisten(args)

	case "ack":
		s.cmdAck(args)

	case "flush":
		s.cmdFlush()

	case "silent":
		s.cmdSilent(args)

	case "force":
		s.cmdForce(args)

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Satlink Commands:
  Session:
    enable [demo] [emergency] - Request the satellite link on
    disable                   - Request the satellite link off
    status                    - Show session, radio and delivery state

  Radios:
    radio <kind> on|off       - Switch a radio (bluetooth, nfc, uwb, wifi)
    require <kind>...         - Set the radios that must be off

  Datagrams:
    listen <channel> [auto]   - Register a listener (auto acks on receipt)
    unlisten <channel>        - Remove the listener
    ack <id>                  - Acknowledge a received datagram
    flush                     - Redeliver every stored datagram now

  Modem Simulation:
    modem <state>             - Report a modem state (off, idle, listening, ...)
    inject <channel> <text> [pending] - Receive a datagram
    silent on|off             - Stop answering commands
    force <result>            - Fail the next command (e.g. MODEM_ERROR)
    emergency-call on|off     - Simulate an emergency voice call

  General:
    help                      - Show this help
    quit                      - Exit satctl`)
}

func (s *Shell) cmdEnable(ctx context.Context, args []string) {
	attrs := satellite.EnableAttributes{Enable: true}
	for _, a := range args {
		switch strings.ToLower(a) {
		case "demo":
			attrs.DemoMode = true
		case "emergency":
			attrs.Emergency = true
		default:
			fmt.Fprintf(s.out, "Unknown enable option: %s\n", a)
			return
		}
	}
	s.request(ctx, attrs)
}

func (s *Shell) cmdDisable(ctx context.Context) {
	s.request(ctx, satellite.EnableAttributes{Enable: false})
}

func (s *Shell) request(ctx context.Context, attrs satellite.EnableAttributes) {
	fmt.Fprintf(s.out, "Requesting %s...\n", attrs)
	// The result arrives asynchronously; the shell stays usable meanwhile.
	s.svc.RequestEnabled(ctx, attrs, func(code satellite.ResultCode) {
		fmt.Fprintf(s.out, "Request %s finished: %s\n", attrs, code)
	})
}

func (s *Shell) cmdStatus() {
	st := s.svc.Status()
	snap := st.Session

	fmt.Fprintf(s.out, "Service:  %s (session %s)\n", st.State, st.EventSessionID)
	fmt.Fprintf(s.out, "Phase:    %s\n", snap.Phase)
	if snap.ConfirmedKnown {
		fmt.Fprintf(s.out, "Confirmed: enabled=%t demo=%t emergency=%t\n",
			snap.ConfirmedEnabled, snap.Attributes.DemoMode, snap.Attributes.Emergency)
	} else {
		fmt.Fprintln(s.out, "Confirmed: unknown")
	}
	fmt.Fprintf(s.out, "Modem:    %s\n", snap.ModemState)
	if snap.InFlight() || snap.QueuedAttributeUpdate != 0 {
		fmt.Fprintf(s.out, "Pending:  enable=%d disable=%d update=%d queued=%d\n",
			snap.PendingEnable, snap.PendingDisable, snap.PendingAttributeUpdate, snap.QueuedAttributeUpdate)
	}

	fmt.Fprint(s.out, "Radios:  ")
	for _, k := range satellite.AllRadioKinds {
		mark := ""
		for _, r := range st.RequiredRadios {
			if r == k {
				mark = "*"
			}
		}
		fmt.Fprintf(s.out, " %s%s=%s", k, mark, onOff(st.Radios[k]))
	}
	fmt.Fprintln(s.out)

	d := st.Delivery
	fmt.Fprintf(s.out, "Delivery: %d stored, %d awaiting ack, %d backlog, last id %d\n",
		d.Records, d.Deliveries, d.Backlog, d.LastID)
	channels := make([]string, 0, len(d.Listeners))
	for ch := range d.Listeners {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	for _, ch := range channels {
		fmt.Fprintf(s.out, "  %s: %d listener(s)\n", ch, d.Listeners[ch])
	}
}

func (s *Shell) cmdRadio(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "Usage: radio <kind> on|off")
		return
	}
	kind, err := satellite.ParseRadioKind(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	on, err := parseOnOff(args[1])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if err := s.sim.SetRadioEnabled(kind, on); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Radio %s switched %s\n", kind, onOff(on))
}

func (s *Shell) cmdRequire(args []string) {
	kinds := make([]satellite.RadioKind, 0, len(args))
	for _, a := range args {
		kind, err := satellite.ParseRadioKind(a)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		kinds = append(kinds, kind)
	}
	s.svc.SetRequiredRadios(kinds)
	fmt.Fprintf(s.out, "Required radios: %v\n", kinds)
}

func (s *Shell) cmdModem(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: modem <state>")
		return
	}
	state, err := parseModemState(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.sim.SetModemState(state)
	fmt.Fprintf(s.out, "Modem reported %s\n", state)
}

func (s *Shell) cmdEmergencyCall(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: emergency-call on|off")
		return
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.preconditions.SetEmergencyCall(on)
	fmt.Fprintf(s.out, "Emergency call %s\n", onOff(on))
}

func (s *Shell) cmdInject(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: inject <channel> <text> [pending]")
		return
	}
	pending := 0
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 0 {
			fmt.Fprintf(s.out, "Invalid pending count: %s\n", args[2])
			return
		}
		pending = n
	}
	s.sim.InjectDatagram(args[0], []byte(args[1]), pending)
	if !s.sim.Subscribed(args[0]) {
		fmt.Fprintf(s.out, "Held %d bytes on %s until a listener subscribes\n", len(args[1]), args[0])
	}
}

func (s *Shell) cmdListen(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(s.out, "Usage: listen <channel> [auto]")
		return
	}
	channel := args[0]
	auto := len(args) == 2 && strings.EqualFold(args[1], "auto")

	s.mu.Lock()
	_, exists := s.listeners[channel]
	s.mu.Unlock()
	if exists {
		fmt.Fprintf(s.out, "Already listening on %s\n", channel)
		return
	}

	listener := delivery.ListenerFunc(func(id uint64, payload []byte, pending int, ack delivery.AckFunc) {
		s.onDatagram(channel, auto, id, payload, pending, ack)
	})
	lid, code := s.svc.RegisterDatagramListener(channel, listener)
	if !code.IsSuccess() {
		fmt.Fprintf(s.out, "Listen failed: %s\n", code)
		return
	}

	s.mu.Lock()
	s.listeners[channel] = listening{id: lid, auto: auto}
	s.mu.Unlock()
	fmt.Fprintf(s.out, "Listening on %s (listener %s)\n", channel, lid)
}

func (s *Shell) onDatagram(channel string, auto bool, id uint64, payload []byte, pending int, ack delivery.AckFunc) {
	fmt.Fprintf(s.out, "[%s] datagram %d: %q (%d pending) at %s\n",
		channel, id, payload, pending, time.Now().Format(time.TimeOnly))
	if auto {
		ack()
		return
	}
	s.mu.Lock()
	s.unacked[id] = ack
	s.mu.Unlock()
}

func (s *Shell) cmdUnlisten(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: unlisten <channel>")
		return
	}
	s.mu.Lock()
	l, ok := s.listeners[args[0]]
	delete(s.listeners, args[0])
	s.mu.Unlock()
	if !ok {
		fmt.Fprintf(s.out, "Not listening on %s\n", args[0])
		return
	}
	if err := s.svc.UnregisterDatagramListener(args[0], l.id); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Stopped listening on %s\n", args[0])
}

func (s *Shell) cmdAck(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: ack <id>")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid id: %s\n", args[0])
		return
	}
	s.mu.Lock()
	ack, ok := s.unacked[id]
	delete(s.unacked, id)
	s.mu.Unlock()
	if !ok {
		fmt.Fprintf(s.out, "No unacknowledged datagram %d\n", id)
		return
	}
	ack()
	fmt.Fprintf(s.out, "Acknowledged %d\n", id)
}

func (s *Shell) cmdFlush() {
	n, err := s.svc.Flush()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Redelivering %d datagram(s)\n", n)
}

func (s *Shell) cmdSilent(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: silent on|off")
		return
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.sim.SetSilent(on)
	fmt.Fprintf(s.out, "Modem silence %s\n", onOff(on))
}

func (s *Shell) cmdForce(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: force <result>")
		return
	}
	code, err := parseResultCode(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.sim.ForceResult(code)
	fmt.Fprintf(s.out, "Next command will answer %s\n", code)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// parseModemState accepts the state names printed by ModemState.String.
func parseModemState(s string) (satellite.ModemState, error) {
	for st := satellite.ModemUnknown; st <= satellite.ModemUnavailable; st++ {
		if strings.EqualFold(st.String(), s) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown modem state %q", s)
}

// parseResultCode accepts the names printed by ResultCode.String, with
// dashes or underscores.
func parseResultCode(s string) (satellite.ResultCode, error) {
	name := strings.ReplaceAll(strings.ToUpper(s), "-", "_")
	for c := satellite.Success; c <= satellite.NoResources; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown result code %q", s)
}
