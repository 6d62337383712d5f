// Package config models spec.md §6's "Configuration constants" as a typed,
// YAML-tagged struct, grounded on sagostin-goefidash/internal/server/config.go's
// Config/DefaultConfig/LoadConfig shape: a struct with per-subsystem nested
// configs, a DefaultConfig() constructor carrying every build-time constant
// the original firmware set with CONFIG_ION_* macros, and a LoadConfig(path)
// that degrades to those defaults (logging a warning, never failing) on any
// read or parse error, per spec.md §7's "configuration errors ... degrade
// ... and log a warning."
package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// DisplayVariant selects which head unit's wire protocol the display
// façade speaks, replacing the original's #ifdef CONFIG_ION_CU2/CU3.
type DisplayVariant string

const (
	DisplayNone DisplayVariant = "none"
	DisplayCU2  DisplayVariant = "cu2"
	DisplayCU3  DisplayVariant = "cu3"
)

// BusConfig carries the UART parameters.
type BusConfig struct {
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
}

// BatteryConfig carries the ADC calibration constants spec.md §6 lists:
// ADC_EMPTY_MV, ADC_FULL_MV, DIVIDER_SCALE, BAT_CHARGE.
type BatteryConfig struct {
	EmptyMv      uint32  `yaml:"empty_mv"`
	FullMv       uint32  `yaml:"full_mv"`
	DividerScale float64 `yaml:"divider_scale"`
	ChargeMahNom uint32  `yaml:"charge_mah_nominal"`
	CurrentADCAvailable bool `yaml:"current_adc_available"`
}

// GPIOConfig carries pin numbers and invert flags. Pin numbers are left as
// platform-defined opaque integers (BCM/GPIO-line numbering varies by
// board) rather than modeled further, matching spec.md §1's framing of
// GPIO as a thin external collaborator.
type GPIOConfig struct {
	MotorRelayPin      int  `yaml:"motor_relay_pin"`
	LightRelayPin      int  `yaml:"light_relay_pin"`
	StatusLEDPin       int  `yaml:"status_led_pin"`
	ChargeDetectPin    int  `yaml:"charge_detect_pin"`
	ModeButtonPin      int  `yaml:"mode_button_pin"`
	LightButtonPin     int  `yaml:"light_button_pin"`
	VoltageADCChannel  int  `yaml:"voltage_adc_channel"`
	CurrentADCChannel  int  `yaml:"current_adc_channel"`
	MotorRelayInvert   bool `yaml:"motor_relay_invert"`
	LightRelayInvert   bool `yaml:"light_relay_invert"`
	ChargeDetectInvert bool `yaml:"charge_detect_invert"`
	ButtonsAvailable   bool `yaml:"buttons_available"`
}

// DisplayConfig selects the head unit variant. DisplayPresent drives
// spec.md §9's resolved Open Question: handoff() addresses DISPLAY
// whenever a head unit is configured on the bus, MOTOR otherwise.
type DisplayConfig struct {
	Variant        DisplayVariant `yaml:"variant"`
	DisplayPresent bool           `yaml:"display_present"`
}

// PersistenceConfig selects the key-value backing: file (default, no
// external dependency) or Redis (shares the teacher's Redis connection).
type PersistenceConfig struct {
	Backend string `yaml:"backend"` // "file" or "redis"
	FileDir string `yaml:"file_dir"`
}

// RedisConfig carries the telemetry/persistence Redis connection
// parameters, mirroring the teacher's -redis-addr/-redis-pass/-redis-db flags.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config is the top-level, YAML-loadable configuration for the controller
// process.
type Config struct {
	Bus         BusConfig         `yaml:"bus"`
	Battery     BatteryConfig     `yaml:"battery"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	Display     DisplayConfig     `yaml:"display"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Redis       RedisConfig       `yaml:"redis"`
}

// DefaultConfig returns the constants the original firmware baked in at
// build time via CONFIG_ION_* macros (empty/full voltage thresholds,
// nominal pack capacity, CU3-present, file-backed persistence).
func DefaultConfig() *Config {
	return &Config{
		Bus: BusConfig{
			SerialPort: "/dev/ttymxc1",
			BaudRate:   9600,
		},
		Battery: BatteryConfig{
			EmptyMv:             30000,
			FullMv:              42000,
			DividerScale:        1.0,
			ChargeMahNom:        11000,
			CurrentADCAvailable: false,
		},
		GPIO: GPIOConfig{
			MotorRelayPin:      0,
			LightRelayPin:      0,
			StatusLEDPin:       0,
			ChargeDetectPin:    0,
			ModeButtonPin:      0,
			LightButtonPin:     0,
			VoltageADCChannel:  0,
			CurrentADCChannel:  -1,
			MotorRelayInvert:   false,
			LightRelayInvert:   false,
			ChargeDetectInvert: true,
			ButtonsAvailable:   true,
		},
		Display: DisplayConfig{
			Variant:        DisplayCU3,
			DisplayPresent: true,
		},
		Persistence: PersistenceConfig{
			Backend: "file",
			FileDir: "/var/lib/bms-controller",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

// LoadConfig reads YAML from path, falling back to DefaultConfig (with a
// logged warning, never an error) if the file is missing or malformed —
// configuration failures never abort startup, per spec.md §7.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config: no config at %s, using defaults: %v", path, err)
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("config: error parsing %s, using defaults: %v", path, err)
		return DefaultConfig()
	}
	log.Printf("config: loaded from %s", path)
	return cfg
}

// HandoffTargetAddr resolves spec.md §9's display-present Open Question
// into the node address handoff() addresses: DISPLAY when a head unit is
// configured present, MOTOR otherwise.
func (c *Config) HandoffTargetAddr(motor, display uint8) uint8 {
	if c.Display.DisplayPresent && c.Display.Variant != DisplayNone {
		return display
	}
	return motor
}
