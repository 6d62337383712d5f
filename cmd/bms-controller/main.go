// Command bms-controller is the process entrypoint: it parses flags, loads
// configuration, wires the UART transport, persistence backend, telemetry
// publisher and hardware abstraction into a Controller, and runs the
// control loop until terminated. Grounded on
// librescoot-bluetooth-service/cmd/bluetooth-service/main.go's flag-based
// config, signal handling and startup-log ordering.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/librescoot/bms-controller/internal/battery"
	"github.com/librescoot/bms-controller/internal/blink"
	"github.com/librescoot/bms-controller/internal/bus"
	"github.com/librescoot/bms-controller/internal/config"
	"github.com/librescoot/bms-controller/internal/controller"
	"github.com/librescoot/bms-controller/internal/display"
	"github.com/librescoot/bms-controller/internal/hal"
	"github.com/librescoot/bms-controller/internal/persistence"
	redisclient "github.com/librescoot/bms-controller/internal/redis"
	"github.com/librescoot/bms-controller/internal/responder"
	"github.com/librescoot/bms-controller/internal/telemetry"
	"github.com/librescoot/bms-controller/internal/transport"
	"github.com/librescoot/bms-controller/internal/trip"
)

var (
	configPath = flag.String("config", "/etc/bms-controller.yaml", "Path to YAML configuration file")
	serialPort = flag.String("serial-port", "", "Serial device path (overrides config)")
	baudRate   = flag.Int("baud-rate", 0, "Serial baud rate (overrides config)")
	redisAddr  = flag.String("redis-addr", "", "Redis server address (overrides config)")
	redisPass  = flag.String("redis-pass", "", "Redis password (overrides config)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.LoadConfig(*configPath)
	applyFlagOverrides(cfg)

	log.Printf("bms-controller starting: serial=%s baud=%d display=%s", cfg.Bus.SerialPort, cfg.Bus.BaudRate, cfg.Display.Variant)

	port, err := transport.Open(cfg.Bus.SerialPort, cfg.Bus.BaudRate)
	if err != nil {
		log.Fatalf("open serial port: %v", err)
	}
	defer port.Close()

	engine := bus.NewEngine(port, log.Default())

	store := openStore(cfg)

	tr := loadTrip(store)
	bat := loadBattery(cfg, store)

	respState := &responder.State{}
	resp := responder.New(engine, store, respState, tr, bat, log.Default())

	led := &hal.SimLED{}
	blinkTask := blink.NewTask(led)

	relay := hal.NewSimRelay(cfg.GPIO.MotorRelayInvert)

	disp := buildDisplay(cfg)

	handoffTarget := cfg.HandoffTargetAddr(bus.Motor, bus.Display)

	ctl := controller.New(engine, resp, respState, disp, blinkTask, relay, tr, bat, store, handoffTarget, log.Default())

	var pub *telemetry.Publisher
	if cfg.Redis.Enabled {
		pub = connectTelemetry(cfg)
		if pub != nil {
			defer pub.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go blinkTask.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// The GPIO/ADC pins themselves are out of spec's scope ("may be
	// stubbed or re-implemented trivially on a new platform"); the sim
	// backends stand in for them here so the control loop still has a
	// real sampling path to exercise on every tick.
	ioBoard := &ioBoard{
		mode:         &hal.ButtonTracker{},
		light:        &hal.ButtonTracker{},
		modePin:      &hal.SimButton{},
		lightPin:     &hal.SimButton{},
		chargeDetect: &hal.SimChargeDetect{},
		voltageADC:   hal.NewSimADC(cfg.Battery.EmptyMv),
		currentADC:   hal.NewSimADC(0),
		currentAvail: cfg.Battery.CurrentADCAvailable,
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	log.Printf("bms-controller ready, entering control loop")
	runLoop(ctx, ticker, sigCh, ctl, ioBoard, store, tr, pub)
	log.Printf("bms-controller shutting down")
}

// ioBoard samples the pins spec.md §6 lists (mode/light buttons, charge
// detect, voltage/current ADC channels) into one Input per tick. Its
// fields are HAL interfaces so a real GPIO backend can replace the sim
// ones wired in main() without touching runLoop.
type ioBoard struct {
	mode, light         *hal.ButtonTracker
	modePin, lightPin   hal.DigitalInput
	chargeDetect        hal.ChargeDetect
	voltageADC          hal.ADCChannel
	currentADC          hal.ADCChannel
	currentAvail        bool
}

// sample reads every pin once and folds button edges into a controller.Input,
// the direct analogue of my_task()'s top-of-loop GPIO poll in the original
// firmware. Button edges are also reported to pub (if non-nil) as one-shot
// telemetry events.
func (b *ioBoard) sample(bat *battery.Accounting, pub *telemetry.Publisher) controller.Input {
	if mv, err := b.voltageADC.ReadMv(); err == nil {
		bat.SampleVoltage(mv)
	}
	if b.currentAvail {
		if mv, err := b.currentADC.ReadMv(); err == nil {
			bat.SampleCurrent(mv)
		}
	}

	in := controller.Input{ChargePin: b.chargeDetect.Plugged()}
	switch b.mode.Poll(b.modePin.Pressed()) {
	case hal.ShortPress:
		in.ModeShortPress = true
		if pub != nil {
			pub.ButtonEvent("mode", "short")
		}
	}
	switch b.light.Poll(b.lightPin.Pressed()) {
	case hal.ShortPress:
		in.LightShortPress = true
		if pub != nil {
			pub.ButtonEvent("light", "short")
		}
	case hal.LongPress:
		in.LightLongPress = true
		if pub != nil {
			pub.ButtonEvent("light", "long")
		}
	}
	return in
}

func applyFlagOverrides(cfg *config.Config) {
	if *serialPort != "" {
		cfg.Bus.SerialPort = *serialPort
	}
	if *baudRate != 0 {
		cfg.Bus.BaudRate = *baudRate
	}
	if *redisAddr != "" {
		cfg.Redis.Addr = *redisAddr
		cfg.Redis.Enabled = true
	}
	if *redisPass != "" {
		cfg.Redis.Password = *redisPass
	}
}

func openStore(cfg *config.Config) persistence.Store {
	if cfg.Persistence.Backend == "redis" {
		client, err := redisclient.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("persistence: redis backend unavailable (%v), falling back to file store", err)
		} else {
			return persistence.NewRedisStore(client)
		}
	}
	store, err := persistence.NewFileStore(cfg.Persistence.FileDir)
	if err != nil {
		log.Fatalf("open file store: %v", err)
	}
	return store
}

func loadTrip(store persistence.Store) *trip.State {
	d := persistence.LoadDistance(store)
	return &trip.State{Trip1: d.Trip1, Trip2: d.Trip2, Total: d.Total}
}

func loadBattery(cfg *config.Config, store persistence.Store) *battery.Accounting {
	c := persistence.LoadCharge(store)
	bcfg := battery.Config{
		EmptyMv:      cfg.Battery.EmptyMv,
		FullMv:       cfg.Battery.FullMv,
		ChargeMahNom: cfg.Battery.ChargeMahNom,
	}
	return battery.New(bcfg, c.Mv, c.Percentage, c.Mah)
}

func buildDisplay(cfg *config.Config) display.Display {
	if !cfg.Display.DisplayPresent {
		return display.None{}
	}
	switch cfg.Display.Variant {
	case config.DisplayCU2:
		return display.Cu2{}
	case config.DisplayCU3:
		return display.Cu3{}
	default:
		return display.None{}
	}
}

func connectTelemetry(cfg *config.Config) *telemetry.Publisher {
	client, err := redisclient.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("telemetry: redis unavailable (%v), running without it", err)
		return nil
	}
	return telemetry.New(client, log.Default())
}

// runLoop drives the control task: one Tick per 100ms sampling period,
// sampling buttons/charge pin into an Input and letting Controller.Tick
// run the state machine and handoff round, matching my_task()'s
// while(true) structure in the original firmware.
func runLoop(ctx context.Context, ticker *time.Ticker, sigCh chan os.Signal, ctl *controller.Controller, io *ioBoard, store persistence.Store, tr *trip.State, pub *telemetry.Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			persistence.SaveDistance(store, persistence.Distance{Trip1: tr.Trip1, Trip2: tr.Trip2, Total: tr.Total})
			return
		case <-ticker.C:
			in := io.sample(ctl.Battery, pub)
			ctl.Tick(in)
			if ctl.Battery != nil && ctl.Battery.ConsumeDirty() {
				persistence.SaveCharge(store, persistence.Charge{
					Percentage: ctl.Battery.Percentage(),
					Mv:         ctl.Battery.Mv(),
					Mah:        ctl.Battery.Mah(),
				})
			}
			if pub != nil {
				pub.State(ctl.State.String())
				pub.Trip(tr.Trip1, tr.Trip2, tr.Total)
				pub.Battery(ctl.Battery.Percentage(), ctl.Battery.Mv(), ctl.Battery.Mah())
				pub.AssistLevel(ctl.RespState.Level)
				pub.Light(ctl.RespState.LightOn)
				if ctl.HandoffTimedOut {
					pub.HandoffTimeout()
					ctl.HandoffTimedOut = false
				}
			}
		}
	}
}
