package spectralmask

import (
	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

// DefaultBands are rough dominant frequency ranges of each target.
var DefaultBands = map[string][]category.Band{
	"Acoustic_guitar":       {{LowHz: 80, HighHz: 5000}},
	"Applause":              {{LowHz: 1000, HighHz: 10000}},
	"Background_noise":      {{LowHz: 20, HighHz: 200}},
	"Bark":                  {{LowHz: 400, HighHz: 1800}},
	"Bass_drum":             {{LowHz: 40, HighHz: 150}},
	"Burping_or_eructation": {{LowHz: 80, HighHz: 600}},
	"Bus":                   {{LowHz: 40, HighHz: 400}},
	"Cello":                 {{LowHz: 65, HighHz: 1000}},
	"Chime":                 {{LowHz: 1000, HighHz: 6000}},
	"Clarinet":              {{LowHz: 150, HighHz: 1600}},
	"Computer_keyboard":     {{LowHz: 2000, HighHz: 8000}},
	"Cough":                 {{LowHz: 200, HighHz: 3000}},
	"Cowbell":               {{LowHz: 500, HighHz: 2000}},
	"Double_bass":           {{LowHz: 40, HighHz: 400}},
	"Drawer_open_or_close":  {{LowHz: 200, HighHz: 3000}},
	"Electric_piano":        {{LowHz: 30, HighHz: 4200}},
	"Fart":                  {{LowHz: 50, HighHz: 400}},
	"Finger_snapping":       {{LowHz: 1500, HighHz: 6000}},
	"Fireworks":             {{LowHz: 30, HighHz: 3000}},
	"Flute":                 {{LowHz: 260, HighHz: 2500}},
	"Glockenspiel":          {{LowHz: 800, HighHz: 8000}},
	"Gong":                  {{LowHz: 50, HighHz: 1500}},
	"Gunshot_or_gunfire":    {{LowHz: 100, HighHz: 4000}},
	"Harmonica":             {{LowHz: 250, HighHz: 2500}},
	"Hi-hat":                {{LowHz: 5000, HighHz: 15000}},
	"Keys_jangling":         {{LowHz: 3000, HighHz: 12000}},
	"Knock":                 {{LowHz: 60, HighHz: 700}},
	"Laughter":              {{LowHz: 250, HighHz: 2500}},
	"Meow":                  {{LowHz: 400, HighHz: 2000}},
	"Microwave_oven":        {{LowHz: 50, HighHz: 70}, {LowHz: 100, HighHz: 130}},
	"Oboe":                  {{LowHz: 230, HighHz: 1800}},
	"Saxophone":             {{LowHz: 100, HighHz: 1500}},
	"Scissors":              {{LowHz: 2000, HighHz: 8000}},
	"Shatter":               {{LowHz: 2000, HighHz: 12000}},
	"Snare_drum":            {{LowHz: 150, HighHz: 5000}},
	"Squeak":                {{LowHz: 1000, HighHz: 5000}},
	"Tambourine":            {{LowHz: 3000, HighHz: 12000}},
	"Tearing":               {{LowHz: 1000, HighHz: 8000}},
	"Telephone":             {{LowHz: 300, HighHz: 3400}},
	"Trumpet":               {{LowHz: 160, HighHz: 1000}},
	"Violin_or_fiddle":      {{LowHz: 200, HighHz: 3500}},
	"Writing":               {{LowHz: 1500, HighHz: 6000}},
}
