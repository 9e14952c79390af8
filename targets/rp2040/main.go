//go:build rp2040

package main

import (
	"context"
	"machine"
	"strconv"
	"time"

	"pulsegen/core"
	"pulsegen/protocol"
	"pulsegen/targets/pio"
)

var (
	// Debug counters
	loopErrors uint32
)

// statsInterval is how often the controller counters go to the debug UART.
const statsInterval = 30 * time.Second

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	mode := GetMode()

	if mode.Debug && InitDebugUART() {
		core.SetDebugWriter(debugLine)
		core.SetDebugEnabled(true)
		core.InitAsyncDebug()
	}

	console := OpenConsole(mode)
	status := NewStatusLED(mode.StatusPin)

	engine, err := pio.ClaimEngine()
	if err != nil {
		halt(status, err)
	}
	programmer, err := engine.Init(mode.TriggerPin, mode.OutputPin)
	if err != nil {
		halt(status, err)
	}
	refill := pio.NewOffsetRefill(engine, programmer.RefillWord())
	programmer.SetFeed(refill)

	ctrl := core.NewController(console.Source(), console, programmer, core.Options{
		OnResult: status.Show,
	})
	if err := ctrl.Init(refill); err != nil {
		halt(status, err)
	}
	core.DebugPrintln("[MAIN] pulsegen " + protocol.Version + ", pulse engine on " + engine.Info())
	core.DebugPrintln("[MAIN] commands:\n" + ctrl.Commands().Dictionary())

	ctx := context.Background()
	lastStats := time.Now()
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopErrors++
					console.Reset()
				}
			}()

			if _, err := ctrl.Poll(ctx); err != nil {
				loopErrors++
			}
			status.Update()
		}()

		if core.IsDebugEnabled() && time.Since(lastStats) >= statsInterval {
			lastStats = time.Now()
			core.DebugAsync("[MAIN] " + ctrl.Stats().String() +
				" offset=" + strconv.FormatUint(uint64(ctrl.Applied().Offset), 10) +
				" rx_dropped=" + strconv.FormatUint(uint64(console.Dropped()), 10) +
				" loop_errs=" + strconv.FormatUint(uint64(loopErrors), 10))
		}

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// halt reports a fatal setup error and parks the CPU.
func halt(status *StatusLED, err error) {
	core.DebugPrintln("[MAIN] " + err.Error())
	status.Show(err)
	for {
		time.Sleep(time.Second)
	}
}
