package presentation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_layout.yaml
var defaultLayout []byte

// emuPerInch converts layout inches to OOXML English Metric Units.
const emuPerInch = 914400

// Layout maps data keys and charts onto template slides.
type Layout struct {
	Slides []SlideLayout `yaml:"slides"`
}

// SlideLayout lists the slots on one slide. Slide numbers start at 1 and
// match ppt/slides/slideN.xml.
type SlideLayout struct {
	Slide  int         `yaml:"slide"`
	Text   []TextSlot  `yaml:"text"`
	Charts []ChartSlot `yaml:"charts"`
}

// TextSlot replaces Placeholder with the value of Key.
type TextSlot struct {
	Placeholder string `yaml:"placeholder"`
	Key         string `yaml:"key"`
}

// ChartSlot places the chart named Chart. Geometry is in inches.
type ChartSlot struct {
	Chart    string  `yaml:"chart"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Required bool    `yaml:"required"`
}

func (c ChartSlot) emu() (x, y, cx, cy int64) {
	return int64(c.X * emuPerInch), int64(c.Y * emuPerInch),
		int64(c.Width * emuPerInch), int64(c.Height * emuPerInch)
}

// DefaultLayout returns the built-in layout.
func DefaultLayout() *Layout {
	l, err := ParseLayout(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("presentation: embedded layout: %v", err))
	}
	return l
}

// LoadLayout reads a layout file. An empty path yields the built-in layout.
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		return DefaultLayout(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

// ParseLayout decodes and validates a YAML layout. Unknown keys are rejected.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks slide numbers, slot names and chart geometry.
func (l *Layout) Validate() error {
	if len(l.Slides) == 0 {
		return errors.New("layout has no slides")
	}
	seen := make(map[int]bool, len(l.Slides))
	for _, s := range l.Slides {
		if s.Slide < 1 {
			return fmt.Errorf("slide number %d must be at least 1", s.Slide)
		}
		if seen[s.Slide] {
			return fmt.Errorf("slide %d listed twice", s.Slide)
		}
		seen[s.Slide] = true
		for _, t := range s.Text {
			if t.Placeholder == "" || t.Key == "" {
				return fmt.Errorf("slide %d: text slot needs placeholder and key", s.Slide)
			}
		}
		for _, c := range s.Charts {
			if c.Chart == "" {
				return fmt.Errorf("slide %d: chart slot needs a chart name", s.Slide)
			}
			if c.Width <= 0 || c.Height <= 0 || c.X < 0 || c.Y < 0 {
				return fmt.Errorf("slide %d: chart %s has invalid geometry", s.Slide, c.Chart)
			}
		}
	}
	return nil
}

// Placeholders lists every placeholder of the layout once, in layout order.
func (l *Layout) Placeholders() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range l.Slides {
		for _, t := range s.Text {
			if !seen[t.Placeholder] {
				seen[t.Placeholder] = true
				out = append(out, t.Placeholder)
			}
		}
	}
	return out
}
