// Package config loads the TOML configuration file at
// $HOME/smplr/config.toml: the sample-bank root, per-track generator
// assignments, and the MIDI CC map (§4.17, §6). Grounded on the teacher's
// config.toml conventions, parsed with github.com/pelletier/go-toml/v2
// rather than the teacher's own (JSON-based) settings format, since the
// spec calls for TOML. Schema follows §6's literal grammar: `tracks` is a
// tagged-union array (`{ RePitchGen = { bank = 0 } }`), `midi_map.cc` is a
// table nested by channel then CC number.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/smartbuf"
)

// DefaultPath returns $HOME/smplr/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, "smplr", "config.toml"), nil
}

// GeneratorKind names which SampleGenerator a track is built around (§4.17).
type GeneratorKind string

const (
	RePitchGen    GeneratorKind = "RePitchGen"
	SlicerGenKind GeneratorKind = "SlicerGen"
	PVOCGen       GeneratorKind = "PVOCGen"
)

// TrackConfig describes one mixer track: which generator it runs and which
// sample bank it starts bound to. SliceMode only applies to SlicerGen tracks
// and names which PositionsMode table the sequencer reads slice boundaries
// from; it defaults to Bar16 (§4.4, matching the engine's default 16-slice
// grid).
type TrackConfig struct {
	Generator GeneratorKind
	Bank      int
	SliceMode string
}

// UnmarshalTOML decodes one `tracks` entry from its literal §6 tagged-union
// shape, e.g. `{ RePitchGen = { bank = 0 } }`: a single-key table whose key
// names the generator and whose value holds its parameters.
func (t *TrackConfig) UnmarshalTOML(value any) error {
	m, ok := value.(map[string]interface{})
	if !ok || len(m) != 1 {
		return fmt.Errorf("config: track entry must be a single-key table naming its generator, got %#v", value)
	}
	for key, raw := range m {
		switch GeneratorKind(key) {
		case RePitchGen, SlicerGenKind, PVOCGen:
			t.Generator = GeneratorKind(key)
		default:
			return fmt.Errorf("config: unknown track generator %q", key)
		}
		fields, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("config: %s value must be a table", key)
		}
		if bank, ok := toInt(fields["bank"]); ok {
			t.Bank = bank
		}
		if mode, ok := fields["slice_mode"].(string); ok {
			t.SliceMode = mode
		}
	}
	return nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// PositionsMode resolves SliceMode to a smartbuf.PositionsMode, defaulting
// to Bar16 when unset or unrecognized.
func (t TrackConfig) PositionsMode() smartbuf.PositionsMode {
	switch t.SliceMode {
	case "onset":
		return smartbuf.Onset
	case "quantized_onset":
		return smartbuf.QuantizedOnset
	case "bar4":
		return smartbuf.Bar4
	case "bar8":
		return smartbuf.Bar8
	default:
		return smartbuf.Bar16
	}
}

// CCEntry is the ControlMessage template found at `midi_map.cc.<channel>.<cc
// number>`: the variant kind plus the track it targets. `val`/`tcode` are the
// wire message's placeholders, filled in per-message by internal/midi, so
// they have no place in the template itself.
type CCEntry struct {
	Kind     string `toml:"kind"`
	TrackNum int    `toml:"track_num"`
}

// MidiMapConfig is `[midi_map]`: `cc` nests first by MIDI channel, then by CC
// number, both written as TOML table-key strings (§6).
type MidiMapConfig struct {
	CC map[string]map[string]CCEntry `toml:"cc"`
}

// Config is the root of config.toml.
type Config struct {
	AudioRoot string        `toml:"audio_root"`
	Tracks    []TrackConfig `toml:"tracks"`
	MidiMap   MidiMapConfig `toml:"midi_map"`
}

// ErrMissingConfig wraps read/parse failures; the caller exits with code 1
// on it (§7 MissingConfig).
var ErrMissingConfig = fmt.Errorf("config: missing or unparsable config")

// Load reads and parses the TOML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	// go-toml/v2 does not call UnmarshalTOML(any), so the tagged-union
	// `tracks` entries are decoded generically and handed to it here.
	var raw struct {
		Tracks []map[string]interface{} `toml:"tracks"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	cfg.Tracks = make([]TrackConfig, len(raw.Tracks))
	for i, entry := range raw.Tracks {
		if err := cfg.Tracks[i].UnmarshalTOML(entry); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrMissingConfig, err)
		}
	}
	if cfg.AudioRoot == "" {
		return Config{}, fmt.Errorf("%w: audio_root is required", ErrMissingConfig)
	}
	return cfg, nil
}

// ccKind maps a CCEntry's string kind to a control.Kind, or false if the
// kind name is unrecognized.
func ccKind(name string) (control.Kind, bool) {
	switch name {
	case "volume":
		return control.KindTrackVolume, true
	case "pan":
		return control.KindTrackPan, true
	case "sample_select":
		return control.KindTrackSampleSelect, true
	case "next_sample":
		return control.KindTrackNextSample, true
	case "prev_sample":
		return control.KindTrackPrevSample, true
	case "loop_div":
		return control.KindTrackLoopDiv, true
	default:
		return 0, false
	}
}

// CCTable builds the channel -> cc_number -> template map internal/midi
// expects out of `midi_map.cc`. Entries whose channel/cc key isn't a valid
// uint8, or whose kind is unrecognized, are skipped and reported as
// warnings rather than failing the whole config.
func (c Config) CCTable() (map[uint8]map[uint8]control.ControlMessage, []string) {
	table := make(map[uint8]map[uint8]control.ControlMessage)
	var warnings []string
	for chanKey, byCC := range c.MidiMap.CC {
		channel, err := parseUint8(chanKey)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("config: invalid midi_map channel %q: %v", chanKey, err))
			continue
		}
		for ccKey, entry := range byCC {
			controller, err := parseUint8(ccKey)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("config: invalid midi_map cc number %q: %v", ccKey, err))
				continue
			}
			kind, ok := ccKind(entry.Kind)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("config: unknown midi_map kind %q (channel %s, cc %s)", entry.Kind, chanKey, ccKey))
				continue
			}
			if table[channel] == nil {
				table[channel] = make(map[uint8]control.ControlMessage)
			}
			table[channel][controller] = control.ControlMessage{Kind: kind, TrackNum: entry.TrackNum}
		}
	}
	return table, warnings
}

func parseUint8(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}
