package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	ncerr "ctyrelay/internal/errors"
)

// fileConfig is the on-disk console description.  Files ending in
// .yaml or .yml are YAML; anything else is JSON with comments and
// trailing commas allowed.
//
//	{
//	    // management port of the HSM
//	    "ip_addr": "10.1.10.9",
//	    "servername": "dks-hsm",
//	}
type fileConfig struct {
	IPAddr     string `json:"ip_addr" yaml:"ip_addr"`
	ServerName string `json:"servername" yaml:"servername"`
}

// LoadFile overlays the console description at path onto cfg.  Empty
// fields in the file leave cfg unchanged.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ncerr.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}
	return parseFile(path, data, cfg)
}

func parseFile(path string, data []byte, cfg *Config) error {
	var fc fileConfig
	var err error
	hint := `expected {"ip_addr": "...", "servername": "..."}`
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
		hint = "expected ip_addr: and servername: keys"
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), &fc)
	}
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "config",
			Value:   path,
			Message: fmt.Sprintf("parsing: %v", err),
			Hint:    hint,
		}
	}
	if fc.IPAddr != "" {
		cfg.Host = fc.IPAddr
	}
	if fc.ServerName != "" {
		cfg.ServerName = fc.ServerName
	}
	return nil
}
