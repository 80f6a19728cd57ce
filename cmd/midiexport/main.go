package main

import (
	"bytes"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	midiplay "github.com/averill/midiplay-go"
	"github.com/averill/midiplay-go/internal/instrument"
)

func main() {
	var (
		filePath = flag.String("file", "", "path to a standard MIDI file")
		format   = flag.String("format", "json", "export format: json|wav")
		outPath  = flag.String("out", "", "output file (default stdout for json)")
		speed    = flag.Int("speed", 100, "tempo scale percent, applied to wav output only")
		fontDir  = flag.String("soundfont-dir", "soundfonts", "directory holding .sf2 soundfonts")
		rate     = flag.Int("sample-rate", 44100, "wav sample rate")
	)
	flag.Parse()

	log := logrus.New()
	if *filePath == "" {
		log.Fatal("no input: -file is required")
	}

	doc, err := midiplay.ParseFile(*filePath)
	if err != nil {
		log.WithError(err).Fatal("cannot read MIDI file")
	}

	switch *format {
	case "json":
		out := os.Stdout
		if *outPath != "" {
			f, err := os.Create(*outPath)
			if err != nil {
				log.WithError(err).Fatal("cannot create output file")
			}
			defer f.Close()
			out = f
		}
		if err := midiplay.WriteJSON(doc, out); err != nil {
			log.WithError(err).Fatal("export failed")
		}
	case "wav":
		if *outPath == "" {
			log.Fatal("wav export needs -out")
		}
		pl, err := midiplay.NewPlayer(doc,
			midiplay.WithSampleRate(*rate),
			midiplay.WithFetcher(instrument.DirFetcher{Dir: *fontDir}),
		)
		if err != nil {
			log.WithError(err).Fatal("cannot create player")
		}
		defer pl.Close()
		if err := pl.SetTempoScale(*speed); err != nil {
			log.WithError(err).Fatal("invalid -speed")
		}
		// render fully before touching the output path
		var buf bytes.Buffer
		if err := pl.ExportWAV(doc, &buf); err != nil {
			log.WithError(err).Fatal("export failed")
		}
		if err := os.WriteFile(*outPath, buf.Bytes(), 0o644); err != nil {
			log.WithError(err).Fatal("cannot write output file")
		}
		log.WithField("out", *outPath).Info("wav written")
	default:
		log.Fatalf("invalid -format %q (expected json|wav)", *format)
	}
}
