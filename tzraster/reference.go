package tzraster

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/ringsaturn/tzf"
	"go.uber.org/zap"
)

// WorldExtent is the extent of the timezone-boundary-builder releases that
// include oceans.
var WorldExtent = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// TimezoneFinder resolves a coordinate to an IANA identifier. An empty
// result means the finder has no answer.
type TimezoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// Mismatch is one image identifier that a reference finder resolves
// differently.
type Mismatch struct {
	Image     string
	Reference string
	Samples   int
}

type ReferenceReport struct {
	Samples    int
	Matches    int
	Unresolved int
	Mismatches []Mismatch
}

// Agreement is the share of resolved samples where the image and the
// reference agree.
func (r *ReferenceReport) Agreement() float64 {
	resolved := r.Samples - r.Unresolved
	if resolved == 0 {
		return 0
	}
	return float64(r.Matches) / float64(resolved)
}

// CompareWithFinder samples every step-th pixel of img in both directions and
// compares the mapped identifier with what finder returns for the pixel
// center. Background pixels and colors missing from the mapping are skipped.
func CompareWithFinder(img image.Image, entries []MappingEntry, extent orb.Bound, finder TimezoneFinder, step int) *ReferenceReport {
	if step <= 0 {
		step = 1
	}
	byColor := make(map[Color]string, len(entries))
	for _, e := range entries {
		byColor[e.Color] = e.Identifier
	}

	b := img.Bounds()
	proj := newProjection(extent, b.Dx(), b.Dy())
	report := &ReferenceReport{}
	mismatches := make(map[[2]string]int)
	for y := b.Min.Y + step/2; y < b.Max.Y; y += step {
		for x := b.Min.X + step/2; x < b.Max.X; x += step {
			id, ok := byColor[colorAt(img, x, y)]
			if !ok {
				continue
			}
			report.Samples++
			lng := extent.Min[0] + (float64(x-b.Min.X)+0.5)/proj.sx
			lat := extent.Max[1] - (float64(y-b.Min.Y)+0.5)/proj.sy
			name := finder.GetTimezoneName(lng, lat)
			if name == "" {
				report.Unresolved++
				continue
			}
			if ref := Normalize(name); ref != id {
				mismatches[[2]string{id, ref}]++
				continue
			}
			report.Matches++
		}
	}

	for k, n := range mismatches {
		report.Mismatches = append(report.Mismatches, Mismatch{Image: k[0], Reference: k[1], Samples: n})
	}
	sort.Slice(report.Mismatches, func(i, j int) bool {
		a, b := report.Mismatches[i], report.Mismatches[j]
		if a.Samples != b.Samples {
			return a.Samples > b.Samples
		}
		if a.Image != b.Image {
			return a.Image < b.Image
		}
		return a.Reference < b.Reference
	})
	return report
}

// VerifyReference checks the artifacts in outdir against the timezone data
// bundled with tzf. Borders differ slightly between releases, so only an
// agreement below minAgreement is an error.
func VerifyReference(logger *zap.Logger, w io.Writer, outdir string, extent orb.Bound, step int, minAgreement float64) (*ReferenceReport, error) {
	mappingFile, err := os.Open(filepath.Join(outdir, MappingFilename))
	if err != nil {
		return nil, err
	}
	defer mappingFile.Close()
	entries, err := ReadMapping(mappingFile)
	if err != nil {
		return nil, &VerifyError{Problems: []string{fmt.Sprintf("%s: %v", MappingFilename, err)}}
	}

	imageFile, err := os.Open(filepath.Join(outdir, ImageFilename))
	if err != nil {
		return nil, err
	}
	defer imageFile.Close()
	img, err := png.Decode(imageFile)
	if err != nil {
		return nil, &VerifyError{Problems: []string{fmt.Sprintf("%s: %v", ImageFilename, err)}}
	}

	logger.Info("loading reference timezone finder")
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference finder, %w", err)
	}

	report := CompareWithFinder(img, entries, extent, finder, step)
	fmt.Fprintf(w, "reference samples: %s\n", humanize.Comma(int64(report.Samples)))
	fmt.Fprintf(w, "unresolved: %s\n", humanize.Comma(int64(report.Unresolved)))
	fmt.Fprintf(w, "agreement: %.2f%%\n", report.Agreement()*100)
	for i, m := range report.Mismatches {
		if i == 10 {
			fmt.Fprintf(w, "... %d more\n", len(report.Mismatches)-i)
			break
		}
		fmt.Fprintf(w, "%s != %s (%d samples)\n", m.Image, m.Reference, m.Samples)
	}

	if report.Agreement() < minAgreement {
		return report, &VerifyError{Problems: []string{
			fmt.Sprintf("agreement with reference %.2f%% is below %.2f%%", report.Agreement()*100, minAgreement*100),
		}}
	}
	return report, nil
}
