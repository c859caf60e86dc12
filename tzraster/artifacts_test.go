package tzraster

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMapping(t *testing.T) {
	palette, err := AssignColors(StrideColors, NewTimezones([]string{"America/Denver", "Etc/GMT-3", "UTC"}), DefaultColorOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Nil(t, WriteMapping(&buf, palette))
	assert.Equal(t, "{\n\"#0061a8\": \"America/Denver\",\n\"#00c350\": \"UTC-03:00\",\n\"#0124f8\": \"UTC\"\n}\n", buf.String())
}

func TestWriteMappingEmpty(t *testing.T) {
	palette, err := AssignColors(HashColors, nil, DefaultColorOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Nil(t, WriteMapping(&buf, palette))
	assert.Equal(t, "{\n}\n", buf.String())
}

func TestWriteMappingSharedColor(t *testing.T) {
	palette, err := AssignColors(HashColors, NewTimezones([]string{"Etc/UTC", "UTC"}), DefaultColorOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, palette.Len())
	assert.Equal(t, 1, palette.Colors())

	var buf bytes.Buffer
	assert.Nil(t, WriteMapping(&buf, palette))
	assert.Equal(t, "{\n\"#bdfd4d\": \"UTC\"\n}\n", buf.String())
}

func TestWriteMappingRoundTrip(t *testing.T) {
	palette, err := AssignColors(RandomColors, NewTimezones([]string{"Asia/Tokyo", "Etc/GMT+11", "Europe/Paris"}), ColorOptions{Seed: 7, Seeded: true, Background: White})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Nil(t, WriteMapping(&buf, palette))
	entries, err := ReadMapping(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, len(entries))
	for i, e := range entries {
		assert.Equal(t, palette.Entries[i].Hex, e.Hex)
		assert.Equal(t, palette.Entries[i].Color, e.Color)
		assert.Equal(t, palette.Entries[i].Normalized, e.Identifier)
	}
	assert.Equal(t, "UTC+11:00", entries[1].Identifier)
}

func TestWriteArtifactsCreatesOutdir(t *testing.T) {
	outdir := filepath.Join(t.TempDir(), "nested", "out")
	palette, err := AssignColors(HashColors, NewTimezones([]string{"UTC"}), DefaultColorOptions())
	require.NoError(t, err)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	fillBackground(img, HashColor("UTC"))

	jsonPath, pngPath, err := WriteArtifacts(outdir, palette, img)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outdir, MappingFilename), jsonPath)
	assert.Equal(t, filepath.Join(outdir, ImageFilename), pngPath)

	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), decoded.Bounds())
	assert.Equal(t, HashColor("UTC"), colorAt(decoded, 3, 1))
}
