package instrument

// PercussionKey mirrors score.PercussionKey without importing it; the cache
// only needs the numeric value for locator lookup.
const PercussionKey = 128

// gmLocators maps General MIDI program numbers to resource file names.
// Unmapped keys fall back to the key-0 locator.
var gmLocators = map[int]string{
	0:   "acoustic_grand_piano.sf2",
	1:   "bright_acoustic_piano.sf2",
	2:   "electric_grand_piano.sf2",
	3:   "honkytonk_piano.sf2",
	4:   "electric_piano_1.sf2",
	5:   "electric_piano_2.sf2",
	6:   "harpsichord.sf2",
	7:   "clavinet.sf2",
	8:   "celesta.sf2",
	9:   "glockenspiel.sf2",
	10:  "music_box.sf2",
	11:  "vibraphone.sf2",
	12:  "marimba.sf2",
	13:  "xylophone.sf2",
	14:  "tubular_bells.sf2",
	15:  "dulcimer.sf2",
	16:  "drawbar_organ.sf2",
	17:  "percussive_organ.sf2",
	18:  "rock_organ.sf2",
	19:  "church_organ.sf2",
	20:  "reed_organ.sf2",
	21:  "accordion.sf2",
	22:  "harmonica.sf2",
	23:  "tango_accordion.sf2",
	24:  "acoustic_guitar_nylon.sf2",
	25:  "acoustic_guitar_steel.sf2",
	26:  "electric_guitar_jazz.sf2",
	27:  "electric_guitar_clean.sf2",
	28:  "electric_guitar_muted.sf2",
	29:  "overdriven_guitar.sf2",
	30:  "distortion_guitar.sf2",
	31:  "guitar_harmonics.sf2",
	32:  "acoustic_bass.sf2",
	33:  "electric_bass_finger.sf2",
	34:  "electric_bass_pick.sf2",
	35:  "fretless_bass.sf2",
	36:  "slap_bass_1.sf2",
	37:  "slap_bass_2.sf2",
	38:  "synth_bass_1.sf2",
	39:  "synth_bass_2.sf2",
	40:  "violin.sf2",
	41:  "viola.sf2",
	42:  "cello.sf2",
	43:  "contrabass.sf2",
	44:  "tremolo_strings.sf2",
	45:  "pizzicato_strings.sf2",
	46:  "orchestral_harp.sf2",
	47:  "timpani.sf2",
	48:  "string_ensemble_1.sf2",
	49:  "string_ensemble_2.sf2",
	50:  "synth_strings_1.sf2",
	51:  "synth_strings_2.sf2",
	52:  "choir_aahs.sf2",
	53:  "voice_oohs.sf2",
	54:  "synth_choir.sf2",
	55:  "orchestra_hit.sf2",
	56:  "trumpet.sf2",
	57:  "trombone.sf2",
	58:  "tuba.sf2",
	59:  "muted_trumpet.sf2",
	60:  "french_horn.sf2",
	61:  "brass_section.sf2",
	62:  "synth_brass_1.sf2",
	63:  "synth_brass_2.sf2",
	64:  "soprano_sax.sf2",
	65:  "alto_sax.sf2",
	66:  "tenor_sax.sf2",
	67:  "baritone_sax.sf2",
	68:  "oboe.sf2",
	69:  "english_horn.sf2",
	70:  "bassoon.sf2",
	71:  "clarinet.sf2",
	72:  "piccolo.sf2",
	73:  "flute.sf2",
	74:  "recorder.sf2",
	75:  "pan_flute.sf2",
	76:  "blown_bottle.sf2",
	77:  "shakuhachi.sf2",
	78:  "whistle.sf2",
	79:  "ocarina.sf2",
	80:  "lead_1_square.sf2",
	81:  "lead_2_sawtooth.sf2",
	82:  "lead_3_calliope.sf2",
	83:  "lead_4_chiff.sf2",
	84:  "lead_5_charang.sf2",
	85:  "lead_6_voice.sf2",
	86:  "lead_7_fifths.sf2",
	87:  "lead_8_bass_lead.sf2",
	88:  "pad_1_new_age.sf2",
	89:  "pad_2_warm.sf2",
	90:  "pad_3_polysynth.sf2",
	91:  "pad_4_choir.sf2",
	92:  "pad_5_bowed.sf2",
	93:  "pad_6_metallic.sf2",
	94:  "pad_7_halo.sf2",
	95:  "pad_8_sweep.sf2",
	96:  "fx_1_rain.sf2",
	97:  "fx_2_soundtrack.sf2",
	98:  "fx_3_crystal.sf2",
	99:  "fx_4_atmosphere.sf2",
	100: "fx_5_brightness.sf2",
	101: "fx_6_goblins.sf2",
	102: "fx_7_echoes.sf2",
	103: "fx_8_sci_fi.sf2",
	104: "sitar.sf2",
	105: "banjo.sf2",
	106: "shamisen.sf2",
	107: "koto.sf2",
	108: "kalimba.sf2",
	109: "bagpipe.sf2",
	110: "fiddle.sf2",
	111: "shanai.sf2",
	112: "tinkle_bell.sf2",
	113: "agogo.sf2",
	114: "steel_drums.sf2",
	115: "woodblock.sf2",
	116: "taiko_drum.sf2",
	117: "melodic_tom.sf2",
	118: "synth_drum.sf2",
	119: "reverse_cymbal.sf2",
	120: "guitar_fret_noise.sf2",
	121: "breath_noise.sf2",
	122: "seashore.sf2",
	123: "bird_tweet.sf2",
	124: "telephone_ring.sf2",
	125: "helicopter.sf2",
	126: "applause.sf2",
	127: "gunshot.sf2",
	128: "percussion_kit.sf2",
}

// Locator resolves an instrument key to its resource name.
func Locator(key int) string {
	if name, ok := gmLocators[key]; ok {
		return name
	}
	return gmLocators[0]
}
