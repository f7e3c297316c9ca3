package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/smplr/internal/control"
)

func TestLoadParsesValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
audio_root = "/samples"
tracks = [
  { RePitchGen = { bank = 0 } },
  { SlicerGen = { bank = 1, slice_mode = "bar8" } },
  { PVOCGen = { bank = 2 } },
]

[midi_map.cc."0"."20"]
kind = "volume"
track_num = 0
`
	require.NoError(t, writeFile(path, contents))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/samples", cfg.AudioRoot)
	require.Len(t, cfg.Tracks, 3)
	assert.Equal(t, RePitchGen, cfg.Tracks[0].Generator)
	assert.Equal(t, 0, cfg.Tracks[0].Bank)
	assert.Equal(t, SlicerGenKind, cfg.Tracks[1].Generator)
	assert.Equal(t, 1, cfg.Tracks[1].Bank)
	assert.Equal(t, "bar8", cfg.Tracks[1].SliceMode)
	assert.Equal(t, PVOCGen, cfg.Tracks[2].Generator)

	entry, ok := cfg.MidiMap.CC["0"]["20"]
	require.True(t, ok)
	assert.Equal(t, "volume", entry.Kind)
}

func TestLoadMissingFileReturnsErrMissingConfig(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestLoadRejectsEmptyAudioRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, writeFile(path, `audio_root = ""`))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestLoadRejectsUnknownTrackGenerator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
audio_root = "/samples"
tracks = [ { BogusGen = { bank = 0 } } ]
`
	require.NoError(t, writeFile(path, contents))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestCCTableBuildsNestedMapAndSkipsUnknownKinds(t *testing.T) {
	cfg := Config{
		MidiMap: MidiMapConfig{
			CC: map[string]map[string]CCEntry{
				"1": {
					"10": {Kind: "pan", TrackNum: 2},
					"11": {Kind: "bogus"},
				},
			},
		},
	}
	table, warnings := cfg.CCTable()
	require.Len(t, warnings, 1)
	tmpl, ok := table[1][10]
	require.True(t, ok)
	assert.Equal(t, control.KindTrackPan, tmpl.Kind)
	assert.Equal(t, 2, tmpl.TrackNum)

	_, present := table[1][11]
	assert.False(t, present)
}

func TestCCTableSkipsInvalidChannelAndCCKeys(t *testing.T) {
	cfg := Config{
		MidiMap: MidiMapConfig{
			CC: map[string]map[string]CCEntry{
				"not-a-channel": {"10": {Kind: "volume"}},
				"1":             {"not-a-cc": {Kind: "volume"}},
			},
		},
	}
	table, warnings := cfg.CCTable()
	assert.Len(t, warnings, 2)
	assert.Empty(t, table)
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
