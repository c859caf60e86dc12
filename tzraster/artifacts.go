package tzraster

import (
	"bufio"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

const (
	MappingFilename = "timezones.json"
	ImageFilename   = "timezones.png"
)

// WriteMapping writes the color to identifier mapping in palette order, one
// key per line. The file is written by hand so that regenerating it from the
// same dataset gives identical bytes.
func WriteMapping(w io.Writer, p *Palette) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("{\n")

	written := make(map[Color]bool, p.Len())
	first := true
	for _, a := range p.Entries {
		if written[a.Color] {
			continue
		}
		written[a.Color] = true

		key, err := json.Marshal(a.Hex)
		if err != nil {
			return err
		}
		value, err := json.Marshal(a.Normalized)
		if err != nil {
			return err
		}
		if !first {
			bw.WriteString(",\n")
		}
		first = false
		fmt.Fprintf(bw, "%s: %s", key, value)
	}
	if !first {
		bw.WriteString("\n")
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// WriteArtifacts creates outdir if needed and writes the mapping file and
// the image. It returns the paths written.
func WriteArtifacts(outdir string, p *Palette, img image.Image) (string, string, error) {
	if outdir == "" {
		outdir = "."
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory %s, %w", outdir, err)
	}

	jsonPath := filepath.Join(outdir, MappingFilename)
	if err := writeFile(jsonPath, func(w io.Writer) error { return WriteMapping(w, p) }); err != nil {
		return "", "", err
	}

	pngPath := filepath.Join(outdir, ImageFilename)
	if err := writeFile(pngPath, func(w io.Writer) error { return WritePNG(w, img) }); err != nil {
		return jsonPath, "", err
	}
	return jsonPath, pngPath, nil
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s, %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s, %w", name, err)
	}
	return f.Close()
}
