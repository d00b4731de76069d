package tracking

import (
	"fmt"
	"sort"
)

// Source is a named geometry the map draws from.
type Source struct {
	ID          string       `json:"id"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Layer renders one source.
type Layer struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Kind   string `json:"kind"` // line or marker
}

// Overlay mirrors the layers a map client should show. It is rebuilt from
// scratch on every route update; there is no incremental diffing.
type Overlay struct {
	generation int
	sources    map[string]Source
	layers     []Layer
}

func NewOverlay() *Overlay {
	return &Overlay{sources: map[string]Source{}}
}

// Clear removes every layer, then every source, and starts a new generation.
func (o *Overlay) Clear() {
	o.layers = nil
	o.sources = map[string]Source{}
	o.generation++
}

func (o *Overlay) AddSource(s Source) error {
	if _, dup := o.sources[s.ID]; dup {
		return fmt.Errorf("overlay: source %q already exists", s.ID)
	}
	o.sources[s.ID] = s
	return nil
}

func (o *Overlay) AddLayer(l Layer) error {
	if _, ok := o.sources[l.Source]; !ok {
		return fmt.Errorf("overlay: layer %q references missing source %q", l.ID, l.Source)
	}
	for _, existing := range o.layers {
		if existing.ID == l.ID {
			return fmt.Errorf("overlay: layer %q already exists", l.ID)
		}
	}
	o.layers = append(o.layers, l)
	return nil
}

// OverlayState is a serializable copy of an Overlay.
type OverlayState struct {
	Generation int      `json:"generation"`
	Layers     []Layer  `json:"layers"`
	Sources    []Source `json:"sources"`
}

func (o *Overlay) State() OverlayState {
	st := OverlayState{Generation: o.generation, Layers: append([]Layer(nil), o.layers...)}
	for _, s := range o.sources {
		st.Sources = append(st.Sources, s)
	}
	sort.Slice(st.Sources, func(i, j int) bool { return st.Sources[i].ID < st.Sources[j].ID })
	return st
}
