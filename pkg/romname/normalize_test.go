package romname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExt(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Zelda.nes", "nes"},
		{"Game.BIN", "bin"},
		{"Super Mario Bros. 3", ""},
		{"noext", ""},
		{"Kart Fighter.nes.png", "png"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Ext(tt.input))
		})
	}
}

func TestStripDiscNames(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Final Fantasy VII (Disc 1).cue", "Final Fantasy VII.cue"},
		{"Final Fantasy VII (Disk 2 of 3) (USA).bin", "Final Fantasy VII (USA).bin"},
		{"Riven [CD2].iso", "Riven.iso"},
		{"Myst (Volume 1)", "Myst"},
		{"Policenauts Disc 2.cue", "Policenauts.cue"},
		{"Sidewinder (USA).nes", "Sidewinder (USA).nes"},
		{"Zelda.nes", "Zelda.nes"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, StripDiscNames(tt.input))
		})
	}
}

func TestSearchName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Super Metroid (USA, Europe).sfc", "Super Metroid"},
		{"Mother 3 (Japan) [T+Eng].gba", "Mother 3"},
		{"/roms/Castlevania (Rev 1) [!].nes", "Castlevania"},
		{"Final Fantasy VII (Disc 1) (USA).bin", "Final Fantasy VII"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchName(tt.input))
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Zelda", Title("/import/Zelda.cue"))
	assert.Equal(t, "Final Fantasy VII (USA)", Title("Final Fantasy VII (Disc 1) (USA).bin"))
}

func TestAggregationKey_DiscsShareKey(t *testing.T) {
	disc1 := AggregationKey("Game Title (Disc 1) (USA).bin")
	disc2 := AggregationKey("Game Title (Disc 2) (USA).bin")

	assert.Equal(t, disc1, disc2)
	assert.Equal(t, "game title (usa)", disc1)
}

func TestAggregationKey(t *testing.T) {
	assert.Equal(t, AggregationKey("Pokémon Stadium (Disc 1).cue"), AggregationKey("POKEMON STADIUM.m3u"))
	assert.Equal(t, AggregationKey("/import/Game.m3u"), AggregationKey("Game - CD2.bin"))
	assert.NotEqual(t, AggregationKey("Game (USA).m3u"), AggregationKey("Game (Disc 1) (Japan).cue"))
	assert.NotEqual(t, AggregationKey("Game.m3u"), AggregationKey("Game II (Disc 1).cue"))
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"The Legend of Zelda", "legend of zelda"},
		{"Final Fantasy VII", "final fantasy 7"},
		{"Ghosts 'n Goblins (USA)", "ghosts n goblins"},
		{"Spider-Man & Venom: Maximum Carnage", "spider man and venom maximum carnage"},
		{"  Extra   Spaces  ", "extra spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.input))
		})
	}
}
