package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	midiplay "github.com/averill/midiplay-go"
	"github.com/averill/midiplay-go/internal/instrument"
)

func main() {
	var (
		filePath = flag.String("file", "", "path to a standard MIDI file")
		speed    = flag.Int("speed", 100, "tempo scale percent (100 = original)")
		start    = flag.Float64("start", 0, "start offset in seconds")
		fontDir  = flag.String("soundfont-dir", "soundfonts", "directory holding .sf2 soundfonts")
		rate     = flag.Int("sample-rate", 44100, "output sample rate")
		volume   = flag.Float64("volume", 1.0, "master volume scalar")
		verbose  = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if *filePath == "" {
		log.Fatal("no input: -file is required")
	}

	doc, err := midiplay.ParseFile(*filePath)
	if err != nil {
		log.WithError(err).Fatal("cannot read MIDI file")
	}
	log.WithFields(logrus.Fields{
		"file":   *filePath,
		"tracks": len(doc.Tracks),
		"tpb":    doc.TicksPerBeat,
	}).Info("loaded")

	pl, err := midiplay.NewPlayer(doc,
		midiplay.WithSampleRate(*rate),
		midiplay.WithFetcher(instrument.DirFetcher{Dir: *fontDir}),
	)
	if err != nil {
		log.WithError(err).Fatal("cannot create player")
	}
	defer pl.Close()

	pl.SetMasterVolume(*volume)
	if err := pl.SetTempoScale(*speed); err != nil {
		log.WithError(err).Fatal("invalid -speed")
	}

	events := pl.Watch()
	if err := pl.Play(*start); err != nil {
		log.WithError(err).Fatal("playback failed to start")
	}
	log.WithField("speed", *speed).Info("playing")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case ev := <-events:
			if ev.Kind == midiplay.EventPlaybackEnded {
				log.Info("playback completed")
				pl.Wait()
				return
			}
		case <-sig:
			log.Info("interrupted")
			pl.Stop()
			return
		}
	}
}
