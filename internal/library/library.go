// Package library indexes sample banks: one directory per bank, loaded and
// analyzed at startup, with wraparound lookups that never fail (§4.3).
package library

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/smplr/internal/smartbuf"
	"github.com/schollz/smplr/internal/wavload"
)

// Library is a two-level store: banks[i] is an ordered sequence of
// SmartBuffers loaded from AUDIO_ROOT/<bank_i>/ (§4.3).
type Library struct {
	banks     [][]*smartbuf.SmartBuffer
	bankNames []string
	empty     *smartbuf.SmartBuffer
}

// Load walks audioRoot's immediate subdirectories in alphabetical order,
// loading every WAV file in each as one bank. Unreadable files or
// unsupported bit depths are skipped and logged (§7), never fatal.
func Load(audioRoot string) (*Library, error) {
	entries, err := os.ReadDir(audioRoot)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	lib := &Library{empty: smartbuf.NewEmpty()}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		lib.banks = append(lib.banks, loadBank(filepath.Join(audioRoot, e.Name())))
		lib.bankNames = append(lib.bankNames, e.Name())
	}
	return lib, nil
}

// BankNames returns the loaded banks' directory names in load order.
func (l *Library) BankNames() []string {
	return l.bankNames
}

func loadBank(dir string) []*smartbuf.SmartBuffer {
	files, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("library: cannot read bank directory %s: %v", dir, err)
		return nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	var bank []*smartbuf.SmartBuffer
	for _, f := range files {
		if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(f.Name()), ".wav") {
			continue
		}
		path := filepath.Join(dir, f.Name())
		sb, err := wavload.Load(path)
		if err != nil {
			log.Printf("library: skipping %s: %v", path, err)
			continue
		}
		bank = append(bank, sb)
	}
	return bank
}

// NumBanks returns the number of loaded banks.
func (l *Library) NumBanks() int {
	return len(l.banks)
}

// First returns the first sample in bank, or the shared empty buffer if the
// bank is out of range or empty (§4.3).
func (l *Library) First(bank int) *smartbuf.SmartBuffer {
	if bank < 0 || bank >= len(l.banks) || len(l.banks[bank]) == 0 {
		return l.empty
	}
	return l.banks[bank][0]
}

// ByName returns the sample in bank whose FileName matches name, or the
// shared empty buffer on a miss (§4.3).
func (l *Library) ByName(bank int, name string) *smartbuf.SmartBuffer {
	if bank < 0 || bank >= len(l.banks) {
		return l.empty
	}
	for _, sb := range l.banks[bank] {
		if filepath.Base(sb.FileName) == name || sb.FileName == name {
			return sb
		}
	}
	return l.empty
}

// Sibling returns the sample at name's index plus offset within bank,
// wrapping with Euclidean modulo (§4.3).
func (l *Library) Sibling(bank int, name string, offset int) *smartbuf.SmartBuffer {
	if bank < 0 || bank >= len(l.banks) || len(l.banks[bank]) == 0 {
		return l.empty
	}
	samples := l.banks[bank]
	idx := -1
	for i, sb := range samples {
		if filepath.Base(sb.FileName) == name || sb.FileName == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return l.empty
	}
	n := len(samples)
	next := euclideanMod(idx+offset, n)
	return samples[next]
}

func euclideanMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
