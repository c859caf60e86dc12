package tzraster

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/paulmach/orb"
	"github.com/ringsaturn/tzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// halfFinder answers west for negative longitudes and east otherwise.
type halfFinder struct {
	west, east string
}

func (f halfFinder) GetTimezoneName(lng float64, lat float64) string {
	if lat > 80 {
		return ""
	}
	if lng < 0 {
		return f.west
	}
	return f.east
}

func twoZoneArtifacts(t *testing.T) (*image.NRGBA, []MappingEntry) {
	layer := styledLayer(t, "fixtures/two_zones.geojson")
	img := renderLayer(t, layer, NewMapSettings(layer, 18))
	var entries []MappingEntry
	for _, c := range layer.Renderer().Categories {
		entries = append(entries, MappingEntry{Hex: c.Symbol.Color.Hex(), Color: c.Symbol.Color, Identifier: Normalize(c.Value)})
	}
	return img, entries
}

func TestCompareWithFinderAgrees(t *testing.T) {
	img, entries := twoZoneArtifacts(t)
	report := CompareWithFinder(img, entries, WorldExtent, halfFinder{"UTC", "America/Denver"}, 1)
	assert.Equal(t, 36*18, report.Samples)
	// the top row lies above 80 degrees north
	assert.Equal(t, 36, report.Unresolved)
	assert.Equal(t, report.Samples-report.Unresolved, report.Matches)
	assert.Empty(t, report.Mismatches)
	assert.Equal(t, 1.0, report.Agreement())
}

func TestCompareWithFinderNormalizesReference(t *testing.T) {
	img, entries := twoZoneArtifacts(t)
	report := CompareWithFinder(img, entries, WorldExtent, halfFinder{"Etc/UTC", "America/Edmonton"}, 2)
	assert.Equal(t, 18*9, report.Samples)
	assert.Equal(t, 0, report.Unresolved)
	assert.Equal(t, 18*9/2, report.Matches)
	assert.Equal(t, []Mismatch{{Image: "America/Denver", Reference: "America/Edmonton", Samples: 18 * 9 / 2}}, report.Mismatches)
	assert.InDelta(t, 0.5, report.Agreement(), 1e-9)
}

func TestCompareWithFinderSkipsBackground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	fillBackground(img, White)
	report := CompareWithFinder(img, nil, WorldExtent, halfFinder{"UTC", "UTC"}, 1)
	assert.Equal(t, 0, report.Samples)
	assert.Equal(t, 0.0, report.Agreement())
}

func TestDefaultFinder(t *testing.T) {
	finder, err := tzf.NewDefaultFinder()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", finder.GetTimezoneName(116.6386, 40.0786))
}

func TestVerifyReferenceBelowThreshold(t *testing.T) {
	outdir := compileFixture(t, "fixtures/collision.geojson", StrideColors)
	var buf bytes.Buffer
	report, err := VerifyReference(zaptest.NewLogger(t), &buf, outdir, WorldExtent, 5, 0.5)
	var verifyErr *VerifyError
	assert.True(t, errors.As(err, &verifyErr))
	assert.Equal(t, 0, report.Matches)
	assert.Contains(t, buf.String(), "agreement: 0.00%\n")
}

func TestWorldExtent(t *testing.T) {
	assert.Equal(t, orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}, WorldExtent)
}
