// Copyright 2026 The OpenGalaxy Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package galaxy7

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OpenGalaxyProject/go-galaxy7/internal/frame"
	"github.com/OpenGalaxyProject/go-galaxy7/internal/syncutil"
)

// busState says whether a command is outstanding on the half-duplex bus
type busState int

const (
	busIdle busState = iota
	busAwaitingReply
)

// linkPhase tracks progress through keypad link bring-up
type linkPhase int

const (
	// phaseFirstPoll: opening poll sent, confirming poll not yet
	phaseFirstPoll linkPhase = iota
	// phaseRunning: link established, normal scheduling
	phaseRunning
	// phaseReinit: keypad rejected a screen, resync poll owed
	phaseReinit
)

// ackState tracks the key acknowledgement owed to the keypad. A received
// key moves to ackOwed; building the acknowledging screen moves to ackSent;
// the keypad confirming receipt returns to ackIdle. The keypad re-sends an
// unconfirmed key on every activity poll until the cycle completes.
type ackState int

const (
	ackIdle ackState = iota
	ackOwed
	ackSent
)

// Device is one Galaxy keypad engine instance: it masters the bus from a
// screen-slot address, keeps the keypad alive with polls, pushes display
// updates and decodes key traffic.
//
// All protocol state is owned by the engine and advanced by Tick. Public
// operations are safe to call from other goroutines; callbacks fire
// outside the engine lock, after the tick that produced them.
type Device struct {
	transport Transport
	config    *Config
	trace     *TraceBuffer

	mu syncutil.Mutex

	// clock reading taken at the top of the current tick
	now time.Time

	address byte
	phase   linkPhase
	bus     busState
	lastCmd Command
	rxBuf   []byte

	lastTxAt         time.Time
	lastInitPollAt   time.Time
	lastActivityAt   time.Time
	lastScreenPushAt time.Time
	lastReplyAt      time.Time

	screen  screenState
	ack     ackState
	ackCode byte

	lastKeyName   string
	lastKeyAt     time.Time
	lastKeyTamper bool

	backlight backlightState
	tasks     taskQueue
	effects   []func()
	metrics   Metrics

	onCodeEntered func(string)
	onKey         func(string, bool)
	onTamper      func(bool)
	onOnline      func(bool)

	online   bool
	tampered bool
	beepSent bool
	started  bool
	closed   bool
}

// New creates a keypad engine on the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	d := &Device{
		transport: transport,
		config:    DefaultConfig(),
		screen:    newScreenState(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	if err := d.config.Validate(); err != nil {
		return nil, err
	}
	addr, err := SlotAddress(d.config.ScreenSlot)
	if err != nil {
		return nil, err
	}
	d.address = addr
	d.screen.setText(d.config.DisplayText)

	return d, nil
}

// Start arms the engine and sends the opening stage-one poll. A panel
// brings keypads up with a two-stage poll sequence, so the very first
// frame out is the stage-one poll; the confirming stage-two poll follows
// from the schedule once SecondPollDelay elapses.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrTransportClosed
	}
	if d.started {
		return ErrAlreadyStarted
	}

	now := d.transport.Now()
	d.now = now

	d.backlight = backlightState{}
	if d.config.BacklightTimeout > 0 {
		d.backlight.offAt = now.Add(d.config.BacklightTimeout)
	}

	d.lastInitPollAt = now
	d.lastActivityAt = now
	if err := d.send(CmdPollInit, []byte{d.address, opPollInit, pollFirstStage}); err != nil {
		return err
	}
	d.started = true
	Debugf("engine started on slot %d (addr %02X)", d.config.ScreenSlot, d.address)
	return nil
}

// Tick runs one engine cycle: due deferred tasks, the liveness check, at
// most one transmit, inbound drain, reply interpretation once the reply
// window closes, and the backlight timeout. It never blocks; all waiting
// is deadline comparison against the transport clock.
func (d *Device) Tick() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return ErrNotStarted
	}
	if d.closed {
		d.mu.Unlock()
		return ErrTransportClosed
	}
	now := d.transport.Now()
	d.now = now
	err := d.tick(now)
	effects := d.effects
	d.effects = nil
	d.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the engine
	for _, fn := range effects {
		fn()
	}
	return err
}

// tick is the locked body of Tick
func (d *Device) tick(now time.Time) error {
	// Deferred actions first so their effects land this tick
	for _, run := range d.tasks.drainDue(now) {
		run()
	}

	if d.online && now.Sub(d.lastReplyAt) > d.config.OfflineTimeout {
		d.setOnline(false)
	}

	if d.bus == busIdle {
		if err := d.selectAndSend(now); err != nil {
			return err
		}
	}

	data, err := d.transport.ReadAvailable()
	if err != nil {
		return d.wrapTransportErr("Read", err)
	}
	if len(data) > 0 {
		d.rxBuf = append(d.rxBuf, data...)
		if d.trace != nil {
			d.trace.RecordRX(data, "")
		}
	}

	// Close the reply window. A silent window is not an error; it simply
	// means no reply this round.
	if d.bus == busAwaitingReply && now.Sub(d.lastTxAt) >= d.config.ReplyWindow {
		if len(d.rxBuf) > 0 {
			d.metrics.RepliesHandled++
			d.handleReply(d.rxBuf)
		} else {
			d.metrics.ReplyTimeouts++
			if d.trace != nil {
				d.trace.RecordTimeout(d.lastCmd.String())
			}
		}
		d.rxBuf = nil
		d.bus = busIdle
	}

	d.checkBacklight(now)
	return nil
}

// send transmits one frame with its checksum appended and arms the reply
// window. Runs with the engine lock held.
func (d *Device) send(cmd Command, payload []byte) error {
	f := frame.Append(payload)
	if err := d.transport.Write(f); err != nil {
		if d.trace != nil {
			d.trace.RecordTX(f, cmd.String()+" failed")
		}
		return d.wrapTransportErr("Write", err)
	}
	if d.trace != nil {
		d.trace.RecordTX(f, cmd.String())
	}
	d.metrics.FramesSent++
	d.lastCmd = cmd
	d.bus = busAwaitingReply
	d.lastTxAt = d.now
	d.rxBuf = nil
	return nil
}

// wrapTransportErr classifies a transport failure, attaching the bus trace
// when tracing is enabled
func (d *Device) wrapTransportErr(op string, err error) error {
	errType := ErrorTypeTransient
	if isDeviceGoneError(err) || errors.Is(err, ErrTransportClosed) {
		errType = ErrorTypePermanent
	}
	var wrapped error = NewTransportError(op, string(d.transport.Type()), err, errType)
	if d.trace != nil {
		wrapped = d.trace.WrapError(wrapped)
	}
	return wrapped
}

// setOnline flips the liveness flag and notifies the host
func (d *Device) setOnline(online bool) {
	if d.online == online {
		return
	}
	d.online = online
	if online {
		d.metrics.OnlineTransitions++
		Debugf("keypad online")
	} else {
		d.metrics.OfflineTransitions++
		Debugf("keypad offline, no valid reply within %v", d.config.OfflineTimeout)
	}
	if cb := d.onOnline; cb != nil {
		d.emit(func() { cb(online) })
	}
}

// setTamper updates the edge-triggered tamper flag
func (d *Device) setTamper(tamper bool, context string) {
	if d.tampered == tamper {
		return
	}
	d.tampered = tamper
	Debugf("tamper %s: %v", context, tamper)
	if cb := d.onTamper; cb != nil {
		d.emit(func() { cb(tamper) })
	}
}

// emit queues a callback invocation to run after the current tick releases
// the engine lock
func (d *Device) emit(fn func()) {
	d.effects = append(d.effects, fn)
}

// Run drives the engine until ctx is cancelled, ticking at the configured
// cadence. Start must have been called. Returns nil on cancellation; a
// transport failure ends the run with its error.
func (d *Device) Run(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return ErrNotStarted
	}
	interval := d.config.TickInterval
	d.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Tick(); err != nil {
				return fmt.Errorf("engine tick: %w", err)
			}
		}
	}
}

// Close stops the engine and closes the transport. Safe to call twice.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// SetDisplayText replaces the display content; the two lines are joined
// by '|'. Empty text restores the default banner. Wakes the backlight.
func (d *Device) SetDisplayText(text string) {
	d.mu.Lock()
	d.screen.setText(text)
	d.backlight.bump(d.transport.Now(), d.config.BacklightTimeout)
	d.mu.Unlock()
}

// SetDisplayTextNoBacklight replaces the display content without waking
// the backlight, for passive status updates
func (d *Device) SetDisplayTextNoBacklight(text string) {
	d.mu.Lock()
	d.screen.setText(text)
	d.mu.Unlock()
}

// DisplayText returns the two lines currently shown, ignoring input
// masking
func (d *Device) DisplayText() (line1, line2 string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen.line1, d.screen.line2
}

// SetBeep configures the keypad sounder. The new setting goes out at the
// next idle slot in the command schedule.
func (d *Device) SetBeep(enabled bool, period, quietPeriod byte) {
	d.mu.Lock()
	d.config.BeepEnabled = enabled
	d.config.BeepPeriod = period
	d.config.BeepQuietPeriod = quietPeriod
	d.beepSent = false
	d.mu.Unlock()
}

// SetBacklightTimeout changes how long the backlight stays lit after
// activity. Zero keeps it on indefinitely once lit.
func (d *Device) SetBacklightTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return ErrNegativeTimeout
	}
	d.mu.Lock()
	d.config.BacklightTimeout = timeout
	d.mu.Unlock()
	return nil
}

// PanelOnline reports whether a valid reply arrived within the liveness
// window
func (d *Device) PanelOnline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

// Tampered reports the current keypad tamper state
func (d *Device) Tampered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tampered
}

// Metrics returns a snapshot of the engine counters
func (d *Device) Metrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// Trace returns the recorded bus trace, oldest first. Nil unless the
// engine was built WithTrace.
func (d *Device) Trace() []TraceEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.trace == nil {
		return nil
	}
	return d.trace.Entries()
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// SetOnCodeEntered registers the sink receiving ENT-submitted codes. After
// each code the sink also receives an empty value once CodeSinkClearDelay
// passes, so repeated identical codes stay distinguishable.
func (d *Device) SetOnCodeEntered(cb func(code string)) {
	d.mu.Lock()
	d.onCodeEntered = cb
	d.mu.Unlock()
}

// SetOnKey registers a callback for every accepted key press
func (d *Device) SetOnKey(cb func(name string, tamper bool)) {
	d.mu.Lock()
	d.onKey = cb
	d.mu.Unlock()
}

// SetOnTamperChanged registers a callback fired when the tamper state flips
func (d *Device) SetOnTamperChanged(cb func(tampered bool)) {
	d.mu.Lock()
	d.onTamper = cb
	d.mu.Unlock()
}

// SetOnOnlineChanged registers a callback fired when keypad liveness flips
func (d *Device) SetOnOnlineChanged(cb func(online bool)) {
	d.mu.Lock()
	d.onOnline = cb
	d.mu.Unlock()
}

// WriteRaw writes bytes to the bus outside the protocol state machine, for
// diagnostics. A newline is appended so serial consoles render the output.
// The engine lock is held for the duration, so a retried raw write delays
// ticks until it resolves.
func (d *Device) WriteRaw(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrTransportClosed
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, data...)
	out = append(out, '\n')

	return RetryWithConfig(ctx, d.config.RetryConfig, func() error {
		if err := d.transport.Write(out); err != nil {
			return d.wrapTransportErr("WriteRaw", err)
		}
		return nil
	})
}
