// Command smplr wires config, the sample library, the mixer, and the
// audio/MIDI/OSC transports into a running engine. Grounded on the
// teacher's main.go (flag parsing, signal-driven shutdown) and
// chriskillpack-modplayer/cmd/modplay/main.go's portaudio start/stop
// lifecycle.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/smplr/internal/config"
	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/device"
	"github.com/schollz/smplr/internal/gen"
	"github.com/schollz/smplr/internal/library"
	"github.com/schollz/smplr/internal/midi"
	"github.com/schollz/smplr/internal/mixer"
	"github.com/schollz/smplr/internal/osc"
	"github.com/schollz/smplr/internal/slicer"
	"github.com/schollz/smplr/internal/track"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("smplr: ")

	configPath := flag.String("config", "", "path to config.toml (default $HOME/smplr/config.toml)")
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			log.Fatalf("resolve default config path: %v", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lib, err := library.Load(cfg.AudioRoot)
	if err != nil {
		log.Fatalf("load sample library: %v", err)
	}

	tracks := buildTracks(cfg, lib)

	hub := control.NewHub()
	defer hub.Stop()

	mx := mixer.New(lib, tracks, hub)

	stream, err := device.Open(mx)
	if err != nil {
		log.Fatalf("open audio device: %v", err)
	}
	if err := stream.Start(); err != nil {
		log.Fatalf("start audio stream: %v", err)
	}

	ccTable, warnings := cfg.CCTable()
	for _, w := range warnings {
		log.Print(w)
	}

	midiListener, err := midi.Open(ccTable)
	if err != nil {
		log.Printf("midi: %v (continuing without MIDI input)", err)
	} else {
		stopMidi, err := midiListener.Listen(hub.TrySendMidi)
		if err != nil {
			log.Printf("midi: listen: %v", err)
		} else {
			defer stopMidi()
		}
		defer midiListener.Close()
	}

	oscBridge := osc.New(osc.Config{AudioRoot: cfg.AudioRoot, Banks: lib.BankNames()})
	go func() {
		if err := oscBridge.ListenAndServe(hub.TrySendOSC); err != nil {
			log.Printf("osc: %v", err)
		}
	}()
	defer oscBridge.Close()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	<-sigch

	log.Print("shutting down")
	_ = stream.Close()
	os.Exit(0)
}

// buildTracks constructs one track.Track per config.TrackConfig, each
// wrapping the generator the config names, seeded with its bank's first
// sample (§4.17).
func buildTracks(cfg config.Config, lib *library.Library) []*track.Track {
	tracks := make([]*track.Track, 0, len(cfg.Tracks))
	for _, tc := range cfg.Tracks {
		g := buildGenerator(tc)
		t := track.New(g, tc.Bank)
		if sb := lib.First(tc.Bank); sb != nil {
			t.LoadBuffer(sb)
		}
		tracks = append(tracks, t)
	}
	return tracks
}

func buildGenerator(tc config.TrackConfig) gen.Generator {
	switch tc.Generator {
	case config.SlicerGenKind:
		seq := slicer.New(tc.PositionsMode())
		return gen.NewSlicerGen(seq)
	case config.PVOCGen:
		return gen.NewPhaseVocoderGen()
	default:
		return gen.NewRepitchGen()
	}
}
