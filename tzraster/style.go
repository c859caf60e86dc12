package tzraster

// PenStyle describes how polygon outlines are stroked.
type PenStyle int

const (
	NoPen PenStyle = iota
	SolidLine
)

// FillSymbol fills a polygon with a flat color. The outline is drawn on top
// of the fill in StrokeColor unless Stroke is NoPen or StrokeWidth is zero.
type FillSymbol struct {
	Color       Color
	StrokeColor Color
	StrokeWidth float64
	Stroke      PenStyle
}

func (s *FillSymbol) stroked() bool {
	return s.Stroke != NoPen && s.StrokeWidth > 0
}

// Category binds one attribute value to a symbol.
type Category struct {
	Value  string
	Symbol FillSymbol
	Label  string
}

// CategorizedRenderer picks a symbol per feature by the value of an attribute.
type CategorizedRenderer struct {
	Field      string
	Categories []Category
	byValue    map[string]int
}

func NewCategorizedRenderer(field string, categories []Category) *CategorizedRenderer {
	r := &CategorizedRenderer{Field: field, Categories: categories, byValue: make(map[string]int, len(categories))}
	for idx, c := range categories {
		if _, ok := r.byValue[c.Value]; !ok {
			r.byValue[c.Value] = idx
		}
	}
	return r
}

// PaletteRenderer creates one borderless fill per palette entry, keyed by
// the raw dataset identifier.
func PaletteRenderer(field string, p *Palette) *CategorizedRenderer {
	categories := make([]Category, 0, p.Len())
	for _, a := range p.Entries {
		categories = append(categories, Category{
			Value:  a.Raw,
			Symbol: FillSymbol{Color: a.Color, StrokeWidth: 0, Stroke: NoPen},
			Label:  a.Raw,
		})
	}
	return NewCategorizedRenderer(field, categories)
}

// SymbolFor returns nil when no category matches value.
func (r *CategorizedRenderer) SymbolFor(value string) *FillSymbol {
	idx, ok := r.byValue[value]
	if !ok {
		return nil
	}
	return &r.Categories[idx].Symbol
}

// SetRenderer replaces the layer's styling.
func (l *Layer) SetRenderer(r *CategorizedRenderer) {
	l.renderer = r
	l.dirty = true
}

func (l *Layer) Renderer() *CategorizedRenderer {
	return l.renderer
}

// TriggerRepaint resolves every feature's symbol against the current renderer.
func (l *Layer) TriggerRepaint() {
	for i := range l.Features {
		if l.renderer == nil {
			l.Features[i].symbol = nil
			continue
		}
		l.Features[i].symbol = l.renderer.SymbolFor(l.Features[i].Tzid)
	}
	l.dirty = false
}
