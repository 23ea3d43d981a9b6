// Command hvmonitor connects to every controller board named in a device
// list CSV, applies an optional profile to each, and logs fault grades as
// they change.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btclog"

	"hvrack.dev/supervisor/config"
	"hvrack.dev/supervisor/datalog"
	"hvrack.dev/supervisor/devicelist"
	"hvrack.dev/supervisor/event"
	"hvrack.dev/supervisor/fault"
	"hvrack.dev/supervisor/mirror"
	"hvrack.dev/supervisor/profile"
	"hvrack.dev/supervisor/supervisor"
)

// cellsPerDevice is the board's fixed cell count; the wire protocol and
// register map assume the same bank layout on every device this program
// supervises.
const cellsPerDevice = 16

var profilePath = flag.String("profile", "", "path to a profile CSV to apply to every connected device")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if flag.NArg() != 1 {
		return errors.New("usage: hvmonitor [--profile PATH] DEVICES")
	}
	devicesPath := flag.Arg(0)

	backend := btclog.NewBackend(os.Stderr)
	log := backend.Logger("HVMON")
	log.SetLevel(btclog.LevelInfo)

	devicesFile, err := os.Open(devicesPath)
	if err != nil {
		return err
	}
	defer devicesFile.Close()
	addrs, err := devicelist.Read(devicesFile, log)
	if err != nil {
		return err
	}

	var prof *profile.Profile
	if *profilePath != "" {
		profFile, err := os.Open(*profilePath)
		if err != nil {
			return err
		}
		defer profFile.Close()
		prof, err = profile.Read(profFile, *profilePath)
		if err != nil {
			return err
		}
	}

	cfg := config.Default()
	var dataLog *datalog.Writer
	if cfg.DataLogFile != "" {
		dataLog, err = datalog.Open(cfg.DataLogFile)
		if err != nil {
			return err
		}
		defer dataLog.Close()
	}

	supervisors := make([]*supervisor.Supervisor, 0, len(addrs))
	defer func() {
		for _, sup := range supervisors {
			sup.Close()
		}
	}()

	for _, addr := range addrs {
		bus := event.NewBus(64)
		sup := supervisor.New(addr, cellsPerDevice, cfg, bus, dataLog, log)
		supervisors = append(supervisors, sup)
		go watchDevice(addr, sup, bus, cfg, log)
		if prof != nil {
			go applyProfileWhenConnected(addr.Name, sup, prof.Device(addr.Name), log)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Warnf("hvmonitor: interrupted, shutting down")
	return nil
}

// applyProfileWhenConnected waits for sup to reach Connected (or give up
// trying) before submitting the profile, since ApplyDeviceProfile needs
// the calibration ranges only the initial state read populates.
func applyProfileWhenConnected(name string, sup *supervisor.Supervisor, dp profile.DeviceProfile, log btclog.Logger) {
	for {
		switch sup.State() {
		case supervisor.Connected:
			if err := sup.ApplyDeviceProfile(dp); err != nil {
				log.Errorf("hvmonitor: %s: applying profile: %v", name, err)
			}
			return
		case supervisor.ConnectionLost, supervisor.Shutdown:
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// watchDevice drains one device's event bus for the life of the process,
// logging connection errors and a fault grade after every polling pass.
func watchDevice(addr mirror.Address, sup *supervisor.Supervisor, bus *event.Bus, cfg config.Config, log btclog.Logger) {
	faultCfg := fault.Config{MaxVoltageDifference: cfg.MaxVoltageDifference, MaxVoltageWhenOff: cfg.MaxVoltageWhenOff}
	for ev := range bus.Events() {
		switch ev.Kind {
		case event.ConnectionError:
			log.Errorf("hvmonitor: %s: %s", addr.Name, ev.Message)
		case event.Updated:
			snap := sup.Snapshot()
			if snap == nil {
				continue
			}
			log.Infof("hvmonitor: %s: grade=%s", addr.Name, fault.EvaluateDevice(snap, faultCfg))
		}
	}
}
