package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// DefaultPath is where the monitor looks for its configuration.
const DefaultPath = "config.toml"

// Config holds all application configuration
type Config struct {
	Station   StationConfig   `toml:"station"`
	Interface InterfaceConfig `toml:"interface"`
	Endpoint  EndpointConfig  `toml:"endpoint"`
	KISS      KISSConfig      `toml:"kiss"`
	Request   RequestConfig   `toml:"request"`
	APRSData  APRSDataConfig  `toml:"aprsdata"`
	Log       LogConfig       `toml:"log"`
	Map       MapConfig       `toml:"map"`
	Msgbar    MsgbarConfig    `toml:"msgbar"`
}

// StationConfig holds settings specific to the user's station
type StationConfig struct {
	Callsign   string `toml:"callsign"`
	GridSquare string `toml:"gridsquare"`
}

// InterfaceConfig selects the KISS link.
type InterfaceConfig struct {
	// Type is "tcp", "serial" or "server". "kiss" picks tcp or serial from
	// the shape of Device.
	Type   string `toml:"type"`
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`
}

// EndpointConfig tunes reconnect behaviour.
type EndpointConfig struct {
	RetryDelayMs int `toml:"retrydelayms"`
}

// RetryDelay returns the reconnect delay.
func (c EndpointConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// KISSConfig sizes the frame buffer and sets the TNC parameters sent on
// connect. Zero parameters are left at the TNC's own setting.
type KISSConfig struct {
	BufferSize  int  `toml:"buffersize"`
	TxDelayMs   int  `toml:"txdelayms"`
	Persistence int  `toml:"persistence"`
	SlotTimeMs  int  `toml:"slottimems"`
	TxTailMs    int  `toml:"txtailms"`
	FullDuplex  bool `toml:"fullduplex"`
}

type RequestConfig struct {
	TimeoutMs int `toml:"timeoutms"`
}

// Timeout returns how long a request waits for its reply.
func (c RequestConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// APRSDataConfig points at an optional JSON-lines data peer. Empty Address
// disables it.
type APRSDataConfig struct {
	Address string `toml:"address"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MapConfig holds map-specific settings
type MapConfig struct {
	DefaultZoom float64 `toml:"defaultzoom"`
	Shapefile   string  `toml:"shapefile"`
}

type MsgbarConfig struct {
	Say bool `toml:"say"`
}

// Default returns the configuration used for anything the file leaves out.
func Default() Config {
	return Config{
		Interface: InterfaceConfig{Type: "tcp", Device: "localhost:8001", Baud: 9600},
		Endpoint:  EndpointConfig{RetryDelayMs: 5000},
		KISS:      KISSConfig{BufferSize: 1024},
		Request:   RequestConfig{TimeoutMs: 5000},
		Log:       LogConfig{Level: "info", File: "kissaprs.log"},
		Map: MapConfig{
			DefaultZoom: 1,
			Shapefile:   "mapdata/ne_10m_admin_1_states_provinces.shp",
		},
	}
}

// Load reads the configuration from path on top of Default. It does not
// validate, so callers can apply overrides first.
func Load(path string) (Config, error) {
	conf := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}

	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("parsing %s: %w", path, err)
	}

	return conf, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch strings.ToLower(c.Interface.Type) {
	case "tcp", "serial", "server", "kiss":
	default:
		return fmt.Errorf("interface: unknown type %q", c.Interface.Type)
	}
	if c.Interface.Device == "" {
		return fmt.Errorf("interface: no device")
	}
	if c.Interface.Baud <= 0 {
		return fmt.Errorf("interface: bad baud rate %d", c.Interface.Baud)
	}
	if c.Endpoint.RetryDelayMs <= 0 {
		return fmt.Errorf("endpoint: retrydelayms must be positive")
	}
	if c.KISS.BufferSize <= 0 {
		return fmt.Errorf("kiss: buffersize must be positive")
	}
	for name, ms := range map[string]int{"txdelayms": c.KISS.TxDelayMs, "slottimems": c.KISS.SlotTimeMs, "txtailms": c.KISS.TxTailMs} {
		if ms < 0 || ms > 2550 {
			return fmt.Errorf("kiss: %s must be 0-2550", name)
		}
	}
	if c.KISS.Persistence < 0 || c.KISS.Persistence > 255 {
		return fmt.Errorf("kiss: persistence must be 0-255")
	}
	if c.Request.TimeoutMs <= 0 {
		return fmt.Errorf("request: timeoutms must be positive")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
