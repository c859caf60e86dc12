package tzraster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaletteRenderer(t *testing.T) {
	palette, err := AssignColors(HashColors, NewTimezones([]string{"Etc/GMT+5", "UTC"}), DefaultColorOptions())
	require.NoError(t, err)
	r := PaletteRenderer("tzid", palette)
	assert.Equal(t, "tzid", r.Field)
	assert.Equal(t, 2, len(r.Categories))

	sym := r.SymbolFor("Etc/GMT+5")
	assert.NotNil(t, sym)
	assert.Equal(t, HashColor("UTC+05:00"), sym.Color)
	assert.False(t, sym.stroked())
	assert.Equal(t, "Etc/GMT+5", r.Categories[0].Label)

	assert.Nil(t, r.SymbolFor("UTC+05:00"))
}

func TestCategorizedRendererFirstCategoryWins(t *testing.T) {
	r := NewCategorizedRenderer("tzid", []Category{
		{Value: "UTC", Symbol: FillSymbol{Color: RGB(1, 2, 3)}},
		{Value: "UTC", Symbol: FillSymbol{Color: RGB(4, 5, 6)}},
	})
	assert.Equal(t, RGB(1, 2, 3), r.SymbolFor("UTC").Color)
}

func TestFillSymbolStroked(t *testing.T) {
	assert.False(t, (&FillSymbol{Stroke: SolidLine}).stroked())
	assert.False(t, (&FillSymbol{Stroke: NoPen, StrokeWidth: 1}).stroked())
	assert.True(t, (&FillSymbol{Stroke: SolidLine, StrokeWidth: 1}).stroked())
}

func TestTriggerRepaint(t *testing.T) {
	layer := styledLayer(t, "fixtures/two_zones.geojson")
	assert.True(t, layer.dirty)
	layer.TriggerRepaint()
	assert.False(t, layer.dirty)
	for _, f := range layer.Features {
		assert.NotNil(t, f.symbol)
	}

	layer.SetRenderer(nil)
	layer.TriggerRepaint()
	for _, f := range layer.Features {
		assert.Nil(t, f.symbol)
	}
}
