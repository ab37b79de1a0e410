package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overlay is the on-disk form of extra lexicon words.
//
//	positive: [пушка, огонь]
//	negative: [пресно]
type Overlay struct {
	Positive    []string `yaml:"positive,omitempty"`
	Negative    []string `yaml:"negative,omitempty"`
	Negation    []string `yaml:"negation,omitempty"`
	Intensifier []string `yaml:"intensifier,omitempty"`
	Diminisher  []string `yaml:"diminisher,omitempty"`
}

func (o Overlay) words() map[Class][]string {
	return map[Class][]string{
		Positive:    o.Positive,
		Negative:    o.Negative,
		Negation:    o.Negation,
		Intensifier: o.Intensifier,
		Diminisher:  o.Diminisher,
	}
}

// LoadWithOverlay returns the default lexicon extended with the words from
// a YAML overlay file. An empty path returns the default lexicon.
func LoadWithOverlay(path string) (*Lexicon, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon overlay: %w", err)
	}

	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse lexicon overlay: %w", err)
	}

	l, err := base.Extend(o.words())
	if err != nil {
		return nil, fmt.Errorf("merge lexicon overlay: %w", err)
	}
	return l, nil
}
