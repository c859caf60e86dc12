package tzraster

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestVerify(t *testing.T) {
	outdir := compileFixture(t, "fixtures/two_zones.geojson", HashColors)

	var buf bytes.Buffer
	report, err := Verify(zaptest.NewLogger(t), &buf, outdir)
	require.NoError(t, err)
	assert.Equal(t, 100, report.Width)
	assert.Equal(t, 50, report.Height)
	assert.Equal(t, 2, len(report.Entries))
	assert.Equal(t, uint64(2), report.SeenColors)
	assert.Equal(t, 0, report.UnknownPixels)
	assert.Empty(t, report.Absent)
	assert.Contains(t, buf.String(), "image: 100x50 (5,000 pixels)\n")
	assert.Contains(t, buf.String(), "mapping entries: 2\n")
}

func TestVerifyUnknownColor(t *testing.T) {
	outdir := t.TempDir()
	palette, err := AssignColors(HashColors, NewTimezones([]string{"America/Denver", "UTC"}), DefaultColorOptions())
	require.NoError(t, err)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	fillBackground(img, White)
	img.Set(0, 0, HashColor("UTC").NRGBA())
	img.Set(1, 0, RGB(1, 2, 3).NRGBA())
	_, _, err = WriteArtifacts(outdir, palette, img)
	require.NoError(t, err)

	report, err := Verify(zaptest.NewLogger(t), &bytes.Buffer{}, outdir)
	var verifyErr *VerifyError
	assert.True(t, errors.As(err, &verifyErr))
	assert.Equal(t, 1, report.UnknownPixels)
	assert.Equal(t, []string{"America/Denver"}, report.Absent)
}

func TestVerifyAspectRatio(t *testing.T) {
	outdir := t.TempDir()
	palette, err := AssignColors(HashColors, nil, DefaultColorOptions())
	require.NoError(t, err)
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	fillBackground(img, White)
	_, _, err = WriteArtifacts(outdir, palette, img)
	require.NoError(t, err)

	_, err = Verify(zaptest.NewLogger(t), &bytes.Buffer{}, outdir)
	var verifyErr *VerifyError
	assert.True(t, errors.As(err, &verifyErr))
	assert.True(t, strings.Contains(verifyErr.Problems[0], "2:1"))
}

func TestVerifyMissingArtifacts(t *testing.T) {
	_, err := Verify(zaptest.NewLogger(t), &bytes.Buffer{}, t.TempDir())
	assert.NotNil(t, err)
}

func TestReadMappingDuplicateColor(t *testing.T) {
	_, err := ReadMapping(strings.NewReader("{\n\"#bdfd4d\": \"UTC\",\n\"#BDFD4D\": \"Etc/UTC\"\n}\n"))
	assert.NotNil(t, err)
}

func TestReadMappingInvalid(t *testing.T) {
	_, err := ReadMapping(strings.NewReader(`["#bdfd4d"]`))
	assert.NotNil(t, err)
	_, err = ReadMapping(strings.NewReader(`{"white": "UTC"}`))
	assert.NotNil(t, err)
	_, err = ReadMapping(strings.NewReader(`{"#bdfd4d": 5}`))
	assert.NotNil(t, err)
}

func TestVerifyDigestsChangeWithContent(t *testing.T) {
	first := compileFixture(t, "fixtures/two_zones.geojson", HashColors)
	second := compileFixture(t, "fixtures/two_zones.geojson", StrideColors)

	a, err := Verify(zaptest.NewLogger(t), &bytes.Buffer{}, first)
	require.NoError(t, err)
	b, err := Verify(zaptest.NewLogger(t), &bytes.Buffer{}, second)
	require.NoError(t, err)
	assert.NotEqual(t, a.MappingDigest, b.MappingDigest)
	assert.NotEqual(t, a.ImageDigest, b.ImageDigest)

	data, err := os.ReadFile(filepath.Join(first, MappingFilename))
	require.NoError(t, err)
	assert.Equal(t, a.MappingDigest, xxhashOf(data))
}
