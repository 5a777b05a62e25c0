// Package config provides configuration loading and management for
// neuroplan.
package config

import "time"

// Storage backend names.
const (
	StorageOrg  = "org"
	StorageJSON = "json"
)

// Config is the root configuration.
type Config struct {
	DataDir       string        `json:"data_dir"       mapstructure:"data_dir"`
	Storage       string        `json:"storage"        mapstructure:"storage"`
	CheckInterval time.Duration `json:"check_interval" mapstructure:"check_interval"`
	Reminders     Reminders     `json:"reminders"      mapstructure:"reminders"`
	Web           Web           `json:"web"            mapstructure:"web"`
}

// Reminders tunes the reminder scheduler.
type Reminders struct {
	LeadMinutes int  `json:"lead_minutes,omitempty" mapstructure:"lead_minutes"`
	Persist     bool `json:"persist,omitempty"      mapstructure:"persist"`
}

// Web configures the graph view server.
type Web struct {
	Addr string `json:"addr,omitempty" mapstructure:"addr"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		DataDir:       ".neuroplan",
		Storage:       StorageOrg,
		CheckInterval: 30 * time.Second,
		Reminders:     Reminders{LeadMinutes: 30, Persist: true},
		Web:           Web{Addr: ":8000"},
	}
}
