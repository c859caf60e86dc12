package tzraster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// VerifyError lists every problem found in a set of artifacts.
type VerifyError struct {
	Problems []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("invalid artifacts: %s", strings.Join(e.Problems, "; "))
}

// MappingEntry is one line of the mapping file.
type MappingEntry struct {
	Hex        string
	Color      Color
	Identifier string
}

type VerifyReport struct {
	Width         int
	Height        int
	Entries       []MappingEntry
	SeenColors    uint64
	UnknownPixels int
	// Absent lists identifiers with no pixel in the image. Small zones can
	// vanish at low resolutions, so this is not an error.
	Absent        []string
	MappingDigest uint64
	ImageDigest   uint64
}

// ReadMapping decodes a mapping file, keeping its order and rejecting
// duplicate keys.
func ReadMapping(r io.Reader) ([]MappingEntry, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	entries := make([]MappingEntry, 0)
	seen := make(map[Color]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("value of %s: %w", key, err)
		}
		c, err := ParseColor(key)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[c]; ok {
			return nil, fmt.Errorf("duplicate color %s for %q and %q", key, other, value)
		}
		seen[c] = value
		entries = append(entries, MappingEntry{Hex: key, Color: c, Identifier: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Verify checks the artifacts in outdir: the mapping must parse, the image
// must be 2:1 and every pixel must be the background or a mapped color.
func Verify(logger *zap.Logger, w io.Writer, outdir string) (*VerifyReport, error) {
	report := &VerifyReport{}
	var problems []string

	mappingPath := filepath.Join(outdir, MappingFilename)
	imagePath := filepath.Join(outdir, ImageFilename)

	mappingBytes, err := os.ReadFile(mappingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s, %w", mappingPath, err)
	}
	report.MappingDigest = xxhash.Sum64(mappingBytes)
	report.Entries, err = ReadMapping(bytes.NewReader(mappingBytes))
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", MappingFilename, err))
	}

	imageFile, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s, %w", imagePath, err)
	}
	defer imageFile.Close()
	hasher := xxhash.New()
	img, err := png.Decode(io.TeeReader(imageFile, hasher))
	if err != nil {
		return nil, &VerifyError{Problems: append(problems, fmt.Sprintf("%s: %v", ImageFilename, err))}
	}
	io.Copy(hasher, imageFile)
	report.ImageDigest = hasher.Sum64()

	b := img.Bounds()
	report.Width, report.Height = b.Dx(), b.Dy()
	if report.Width != 2*report.Height {
		problems = append(problems, fmt.Sprintf("image is %dx%d, expected a 2:1 aspect ratio", report.Width, report.Height))
	}

	mapped := roaring.New()
	for _, e := range report.Entries {
		mapped.Add(uint32(e.Color))
	}
	seen := roaring.New()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := colorAt(img, x, y)
			if c == White {
				continue
			}
			seen.Add(uint32(c))
			if !mapped.Contains(uint32(c)) {
				report.UnknownPixels++
			}
		}
	}
	report.SeenColors = seen.GetCardinality()
	if report.UnknownPixels > 0 {
		problems = append(problems, fmt.Sprintf("%d pixels have colors missing from the mapping", report.UnknownPixels))
	}
	for _, e := range report.Entries {
		if !seen.Contains(uint32(e.Color)) {
			report.Absent = append(report.Absent, e.Identifier)
		}
	}
	if len(report.Absent) > 0 {
		logger.Warn("timezones without pixels", zap.Strings("tzids", report.Absent))
	}

	fmt.Fprintf(w, "image: %dx%d (%s pixels)\n", report.Width, report.Height, humanize.Comma(int64(report.Width*report.Height)))
	fmt.Fprintf(w, "mapping entries: %d\n", len(report.Entries))
	fmt.Fprintf(w, "colors in image: %d\n", report.SeenColors)
	fmt.Fprintf(w, "timezones without pixels: %d\n", len(report.Absent))
	fmt.Fprintf(w, "%s xxhash=%016x\n", MappingFilename, report.MappingDigest)
	fmt.Fprintf(w, "%s xxhash=%016x\n", ImageFilename, report.ImageDigest)

	if len(problems) > 0 {
		return report, &VerifyError{Problems: problems}
	}
	return report, nil
}

func colorAt(img image.Image, x, y int) Color {
	switch v := img.(type) {
	case *image.NRGBA:
		px := v.Pix[v.PixOffset(x, y):]
		return RGB(px[0], px[1], px[2])
	case *image.RGBA:
		px := v.Pix[v.PixOffset(x, y):]
		return RGB(px[0], px[1], px[2])
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
