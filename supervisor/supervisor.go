// Package supervisor owns one board: its Session, its Mirror, and the
// single-threaded executor that serializes every protocol exchange and
// every mirror mutation for that board. Multiple Supervisors, one per
// device, run independently — there is no cross-device coordination here.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btclog"

	"hvrack.dev/supervisor/config"
	"hvrack.dev/supervisor/datalog"
	"hvrack.dev/supervisor/event"
	"hvrack.dev/supervisor/mirror"
	"hvrack.dev/supervisor/register"
	"hvrack.dev/supervisor/session"
	"hvrack.dev/supervisor/units"
)

// pollInterval is the period of the background read_updates job, fixed at
// spec's documented 10 seconds.
const pollInterval = 10 * time.Second

// requestTimeout bounds every socket operation: connect, and each
// individual register read/write.
const requestTimeout = 10 * time.Second

// cellRanges is the calibration bounds captured once for a cell at connect
// time; it never changes for the life of a session, so once published it
// can be read by any goroutine without further synchronization beyond the
// one lock that guards its initial publication.
type cellRanges struct {
	voltage mirror.VoltageRange
	current mirror.CurrentRange
}

// published is the subset of Supervisor state visible to callers other
// than the executor goroutine: the lifecycle state, the latest mirror
// snapshot, and the per-cell calibration ranges. The executor is the only
// writer; everything else only reads under mu.
type published struct {
	state  State
	snap   *mirror.Device
	ranges []cellRanges
}

// Supervisor owns one device's Session, Mirror, and executor goroutine.
type Supervisor struct {
	addr     mirror.Address
	numCells int
	cfg      config.Config
	log      btclog.Logger
	bus      *event.Bus
	dataLog  *datalog.Writer

	cmds   chan func(*executor)
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.RWMutex
	pub published
}

// executor is the state owned exclusively by the Supervisor's run
// goroutine: the live Session and the live Mirror. Nothing outside this
// goroutine ever touches these fields directly.
type executor struct {
	sup    *Supervisor
	sess   *session.Session
	mirror *mirror.Device
}

// New constructs a Supervisor for addr with numCells cells and immediately
// starts connecting in the background. Events are delivered on bus.
// dataLog may be nil to disable value logging. log may be nil to disable
// logging.
func New(addr mirror.Address, numCells int, cfg config.Config, bus *event.Bus, dataLog *datalog.Writer, log btclog.Logger) *Supervisor {
	if log == nil {
		log = btclog.Disabled
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		addr:     addr,
		numCells: numCells,
		cfg:      cfg,
		log:      log,
		bus:      bus,
		dataLog:  dataLog,
		cmds:     make(chan func(*executor)),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	s.pub.state = Connecting
	go s.run(ctx)
	return s
}

// State returns the Supervisor's current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pub.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.pub.state = st
	s.mu.Unlock()
}

// Snapshot returns an independent copy of the current mirror, or nil if the
// device has never reached Connected.
func (s *Supervisor) Snapshot() *mirror.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pub.snap == nil {
		return nil
	}
	return s.pub.snap.Clone()
}

// Close tears the executor down: any in-flight register exchange is
// allowed to finish (or time out) but no further commands or polls run.
// Close blocks until the executor goroutine has exited. Emits no events,
// matching spec's "explicit close" transition.
func (s *Supervisor) Close() {
	s.cancel()
	<-s.done
}

// submit hands fn to the executor and returns ErrCancelled if the executor
// has already exited, whether from Close or from a lost connection.
func (s *Supervisor) submit(fn func(*executor)) error {
	select {
	case <-s.done:
		return ErrCancelled
	default:
	}
	select {
	case s.cmds <- fn:
		return nil
	case <-s.done:
		return ErrCancelled
	}
}

func (s *Supervisor) cellRangesFor(cellIndex int) (cellRanges, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pub.ranges == nil {
		return cellRanges{}, errNotConnected
	}
	if cellIndex < 1 || cellIndex > len(s.pub.ranges) {
		return cellRanges{}, ErrUnknownCell
	}
	return s.pub.ranges[cellIndex-1], nil
}

func (s *Supervisor) allCellRanges() ([]cellRanges, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pub.ranges == nil {
		return nil, errNotConnected
	}
	out := make([]cellRanges, len(s.pub.ranges))
	copy(out, s.pub.ranges)
	return out, nil
}

func (s *Supervisor) publishRanges(d *mirror.Device) {
	ranges := make([]cellRanges, len(d.Cells))
	for i, c := range d.Cells {
		ranges[i] = cellRanges{voltage: c.VoltageRange, current: c.CurrentLimitRange}
	}
	s.mu.Lock()
	s.pub.ranges = ranges
	s.mu.Unlock()
}

// publish refreshes the externally-visible snapshot from the executor's
// live mirror. Called by the executor after every mutation that backs an
// event.
func (ex *executor) publish() {
	ex.sup.mu.Lock()
	ex.sup.pub.snap = ex.mirror.Clone()
	ex.sup.mu.Unlock()
}

// run is the executor goroutine: connect sequence, then the FIFO command
// loop with a 10-second poll ticker. Closing done when it returns is what
// makes submit report ErrCancelled for every later command.
func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	addr := fmt.Sprintf("%s:%d", s.addr.Host, s.addr.Port)
	sess, err := session.Dial(ctx, addr, session.Options{
		ConnectTimeout: requestTimeout,
		RequestTimeout: requestTimeout,
		CRC:            true,
		Log:            s.log,
	})
	if err != nil {
		if ctx.Err() != nil {
			// The dial was aborted by Close.
			s.setState(Shutdown)
			return
		}
		s.setState(ConnectionLost)
		s.bus.Send(event.Event{Kind: event.ConnectionError, Message: (&ConnectionError{Err: err}).Error()})
		return
	}
	ex := &executor{sup: s, sess: sess, mirror: mirror.New(s.addr, s.numCells)}

	s.setState(WritingDefaults)
	if err := ex.writeDefaults(); err != nil {
		sess.Close()
		s.setState(ConnectionLost)
		s.bus.Send(event.Event{Kind: event.ConnectionError, Message: (&ConnectionError{Err: err}).Error()})
		return
	}

	s.setState(ReadingState)
	if err := ex.readFullState(); err != nil {
		sess.Close()
		s.setState(ConnectionLost)
		s.bus.Send(event.Event{Kind: event.ConnectionError, Message: (&ConnectionError{Err: err}).Error()})
		return
	}

	s.publishRanges(ex.mirror)
	ex.publish()
	s.setState(Connected)
	s.log.Infof("supervisor: %s connected", s.addr.Name)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sess.Close()
			s.setState(Shutdown)
			return
		case cmd := <-s.cmds:
			cmd(ex)
			if s.State() == ConnectionLost {
				return
			}
		case <-ticker.C:
			if err := ex.pollUpdates(); err != nil {
				ex.loseConnection(err)
				return
			}
		}
	}
}

// loseConnection tears the session down, marks the Supervisor
// ConnectionLost, and emits the connection-error event, matching spec's
// "any protocol error during steady-state" transition. Called from the
// executor goroutine only.
func (ex *executor) loseConnection(err error) {
	ex.sess.Close()
	ex.sup.setState(ConnectionLost)
	ex.sup.log.Errorf("supervisor: %s connection lost: %v", ex.sup.addr.Name, err)
	ex.sup.bus.Send(event.Event{Kind: event.ConnectionError, Message: err.Error()})
}

// warnIfCodeOutOfRange logs a warning when a code decoded off the wire
// falls outside the channel's calibrated range. The decode itself is
// unaffected: CodeToValue's affine mapping is well-defined for any
// non-negative code, so an out-of-range measured code is still converted,
// only flagged.
func (ex *executor) warnIfCodeOutOfRange(cellIndex int, param string, code uint16, bits int) {
	if max := units.MaxCode(bits); code > max {
		ex.sup.log.Warnf("supervisor: cell %d: %s code %d exceeds calibrated range [0,%d]", cellIndex, param, code, max)
	}
}

func (ex *executor) emitCellUpdated(cellIndex int) {
	ex.publish()
	ex.sup.bus.Send(event.Event{Kind: event.CellUpdated, CellIndex: cellIndex})
	if ex.sup.dataLog == nil {
		return
	}
	c := ex.mirror.Cell(cellIndex)
	if c == nil {
		return
	}
	err := ex.sup.dataLog.WriteCellUpdate(
		ex.mirror.Address.Name, c.Index, c.Enabled.Actual,
		c.VoltageSet.Actual, c.VoltageMeasured,
		c.CurrentMeasured, c.CurrentLimit.Actual,
		c.RampDownSpeed.Actual, c.RampUpSpeed.Actual,
	)
	if err != nil {
		ex.sup.log.Errorf("supervisor: writing value log: %v", err)
	}
}

func (ex *executor) emitControllerUpdated() {
	ex.publish()
	ex.sup.bus.Send(event.Event{Kind: event.ControllerUpdated})
}

func (ex *executor) emitUpdated() {
	ex.sup.bus.Send(event.Event{Kind: event.Updated})
}

// writeDefaults writes the configured default registers to the controller
// bank and to every cell bank, once each, in connect sequence.
func (ex *executor) writeDefaults() error {
	for reg, val := range ex.sup.cfg.ControllerDefaults {
		if _, err := ex.sess.Write(register.ControllerBank, uint8(reg), val); err != nil {
			return err
		}
	}
	for i := 1; i <= len(ex.mirror.Cells); i++ {
		bank := register.Bank(i)
		for reg, val := range ex.sup.cfg.CellDefaults {
			if _, err := ex.sess.Write(bank, uint8(reg), val); err != nil {
				return err
			}
		}
	}
	return nil
}
