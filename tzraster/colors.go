package tzraster

import (
	"crypto/sha1"
	"fmt"
	"image/color"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Color is a 24-bit RGB value.
type Color uint32

// White is the default background color; it is never assigned to a timezone.
const White Color = 0xFFFFFF

// StrideStep is the distance between consecutive colors of the stride strategy.
const StrideStep = 25000

func RGB(r, g, b uint8) Color {
	return Color(r)<<16 | Color(g)<<8 | Color(b)
}

func (c Color) RGB() (uint8, uint8, uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (c Color) NRGBA() color.NRGBA {
	r, g, b := c.RGB()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xFFFFFF)
}

// ParseColor accepts #rrggbb in either case.
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return 0, fmt.Errorf("invalid color %q, expected #RRGGBB", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q, %w", s, err)
	}
	return Color(v), nil
}

// ColorStrategy selects how timezones are mapped to colors. The strategies
// produce different artifacts and are not interchangeable.
type ColorStrategy string

const (
	// RandomColors draws three random bytes per timezone and redraws on collision.
	RandomColors ColorStrategy = "random"
	// StrideColors walks a 24-bit counter in StrideStep increments over the sorted timezones.
	StrideColors ColorStrategy = "stride"
	// HashColors takes the first three bytes of the SHA-1 of the normalized identifier.
	HashColors ColorStrategy = "hash"
)

func ParseColorStrategy(s string) (ColorStrategy, error) {
	switch ColorStrategy(strings.ToLower(s)) {
	case RandomColors:
		return RandomColors, nil
	case StrideColors:
		return StrideColors, nil
	case HashColors, "":
		return HashColors, nil
	}
	return "", fmt.Errorf("unknown color strategy %q", s)
}

// ColorCollisionError reports two identifiers that were given the same color.
type ColorCollisionError struct {
	Identifier string
	Other      string
	Color      string
}

func (e *ColorCollisionError) Error() string {
	return fmt.Sprintf("color collision: %q and %q both map to %s", e.Identifier, e.Other, e.Color)
}

// Assignment is one timezone with its color. Hex is the spelling written to
// the mapping file.
type Assignment struct {
	Timezone
	Color Color
	Hex   string
}

// Palette holds the color assignments of one run, in sorted raw identifier order.
type Palette struct {
	Strategy ColorStrategy
	Entries  []Assignment
	byColor  map[Color]int
}

func newPalette(strategy ColorStrategy, n int) *Palette {
	return &Palette{Strategy: strategy, Entries: make([]Assignment, 0, n), byColor: make(map[Color]int, n)}
}

func (p *Palette) add(a Assignment) {
	if _, ok := p.byColor[a.Color]; !ok {
		p.byColor[a.Color] = len(p.Entries)
	}
	p.Entries = append(p.Entries, a)
}

func (p *Palette) Len() int {
	return len(p.Entries)
}

// Lookup returns the first assignment using color c.
func (p *Palette) Lookup(c Color) (Assignment, bool) {
	idx, ok := p.byColor[c]
	if !ok {
		return Assignment{}, false
	}
	return p.Entries[idx], true
}

// Colors returns the number of distinct colors in the palette.
func (p *Palette) Colors() int {
	return len(p.byColor)
}

type ColorOptions struct {
	// Seed makes the random strategy reproducible when Seeded is set.
	Seed   uint64
	Seeded bool
	// Background is reserved and never assigned.
	Background Color
}

func DefaultColorOptions() ColorOptions {
	return ColorOptions{Background: White}
}

// AssignColors gives every timezone a color. The timezones must be in sorted
// raw identifier order for the stride strategy to be reproducible.
func AssignColors(strategy ColorStrategy, timezones []Timezone, opts ColorOptions) (*Palette, error) {
	switch strategy {
	case RandomColors:
		return assignRandom(timezones, opts), nil
	case StrideColors:
		return assignStride(timezones, opts)
	case HashColors:
		return assignHash(timezones, opts)
	}
	return nil, fmt.Errorf("unknown color strategy %q", strategy)
}

func assignRandom(timezones []Timezone, opts ColorOptions) *Palette {
	var rng *rand.Rand
	if opts.Seeded {
		rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9E3779B97F4A7C15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	p := newPalette(RandomColors, len(timezones))
	for _, tz := range timezones {
		for {
			c := Color(rng.Uint32() & 0xFFFFFF)
			if _, taken := p.byColor[c]; taken || c == opts.Background {
				continue
			}
			p.add(Assignment{Timezone: tz, Color: c, Hex: strings.ToUpper(c.Hex())})
			break
		}
	}
	return p
}

func assignStride(timezones []Timezone, opts ColorOptions) (*Palette, error) {
	p := newPalette(StrideColors, len(timezones))
	current := 0
	for _, tz := range timezones {
		current += StrideStep
		c := Color(current & 0xFFFFFF)
		if err := p.checkFree(tz.Raw, c, opts.Background); err != nil {
			return nil, err
		}
		p.add(Assignment{Timezone: tz, Color: c, Hex: c.Hex()})
	}
	return p, nil
}

func assignHash(timezones []Timezone, opts ColorOptions) (*Palette, error) {
	p := newPalette(HashColors, len(timezones))
	for _, tz := range timezones {
		c := HashColor(tz.Normalized)
		if idx, ok := p.byColor[c]; ok && p.Entries[idx].Normalized == tz.Normalized {
			// several raw zones normalizing to one identifier share its color
			p.add(Assignment{Timezone: tz, Color: c, Hex: c.Hex()})
			continue
		}
		if err := p.checkFree(tz.Normalized, c, opts.Background); err != nil {
			return nil, err
		}
		p.add(Assignment{Timezone: tz, Color: c, Hex: c.Hex()})
	}
	return p, nil
}

// HashColor derives a color from the first six hex digits of the SHA-1 of id.
func HashColor(id string) Color {
	sum := sha1.Sum([]byte(id))
	return RGB(sum[0], sum[1], sum[2])
}

func (p *Palette) checkFree(id string, c Color, background Color) error {
	if c == background {
		return &ColorCollisionError{Identifier: id, Other: "background", Color: c.Hex()}
	}
	if idx, ok := p.byColor[c]; ok {
		other := p.Entries[idx]
		otherID := other.Raw
		if p.Strategy == HashColors {
			otherID = other.Normalized
		}
		return &ColorCollisionError{Identifier: id, Other: otherID, Color: c.Hex()}
	}
	return nil
}
