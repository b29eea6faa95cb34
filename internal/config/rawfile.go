package config

import (
	"bytes"

	"github.com/BurntSushi/toml"
)

// RawFile is a config file decoded generically, preserving every table
// and key regardless of whether this version of KILD recognizes it.
// WriteRaw(ParseRaw(text)) round-trips unknown keys (spec.md §8), which
// the strongly-typed Config above does not attempt — Config is for
// fields KILD acts on; RawFile is for the CLI's `config` inspection/edit
// commands that must not clobber keys a newer or sibling binary wrote.
type RawFile map[string]any

// ParseRaw decodes a TOML document into a generic key->value map.
func ParseRaw(text []byte) (RawFile, error) {
	var raw RawFile
	if _, err := toml.Decode(string(text), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// WriteRaw re-encodes a RawFile as TOML text.
func WriteRaw(raw RawFile) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
