package content

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed topics.yaml
var builtin []byte

type Topic struct {
	Name  string   `yaml:"name"`
	Words []string `yaml:"words"`
}

// Catalogue is an immutable set of topics. It is safe for concurrent reads.
type Catalogue struct {
	topics []Topic
	total  int
}

var ErrEmptyCatalogue = errors.New("catalogue has no words")

// Default returns the embedded catalogue.
func Default() *Catalogue {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("content: embedded topics: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalogue, error) {
	var doc struct {
		Topics []Topic `yaml:"topics"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	c := &Catalogue{}
	for _, t := range doc.Topics {
		name := strings.TrimSpace(t.Name)
		var words []string
		for _, w := range t.Words {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
		if name == "" || len(words) == 0 {
			continue
		}
		c.topics = append(c.topics, Topic{Name: name, Words: words})
		c.total += len(words)
	}
	if c.total == 0 {
		return nil, ErrEmptyCatalogue
	}
	return c, nil
}

func (c *Catalogue) Topics() []Topic { return c.topics }

// Pick draws a uniformly random word and its topic. When exclude is set and
// another word exists, the excluded word is never returned.
func (c *Catalogue) Pick(rng *rand.Rand, exclude string) (string, string) {
	n := c.total
	skip := false
	if exclude != "" {
		if k := c.count(exclude); k > 0 && k < c.total {
			n -= k
			skip = true
		}
	}
	i := rng.IntN(n)
	for _, t := range c.topics {
		for _, w := range t.Words {
			if skip && w == exclude {
				continue
			}
			if i == 0 {
				return t.Name, w
			}
			i--
		}
	}
	t := c.topics[0]
	return t.Name, t.Words[0]
}

func (c *Catalogue) count(word string) int {
	n := 0
	for _, t := range c.topics {
		for _, w := range t.Words {
			if w == word {
				n++
			}
		}
	}
	return n
}
