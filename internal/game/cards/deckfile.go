package cards

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultDeckName is the deck used when none is configured.
const DefaultDeckName = "default"

//go:embed data/default_decks.yaml
var defaultDecksYAML []byte

type deckFile struct {
	Cards []*CardDefinition  `yaml:"cards"`
	Decks map[string][]string `yaml:"decks"`
}

// Library is a card catalog plus named decks built from it.
type Library struct {
	cards map[string]*CardDefinition
	decks map[string][]string
}

// DefaultLibrary returns the built-in catalog.
func DefaultLibrary() *Library {
	lib, err := ParseLibrary(defaultDecksYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in deck library: %v", err))
	}
	return lib
}

// LoadDeckFile reads and parses a deck file from fs.
func LoadDeckFile(fs afero.Fs, path string) (*Library, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read deck file %s: %w", path, err)
	}
	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, fmt.Errorf("parse deck file %s: %w", path, err)
	}
	return lib, nil
}

// ParseLibrary decodes a YAML deck document. Every card is validated and
// every deck may only name cards of the catalog.
func ParseLibrary(data []byte) (*Library, error) {
	var file deckFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(file.Cards) == 0 {
		return nil, fmt.Errorf("no cards defined")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	lib := &Library{
		cards: make(map[string]*CardDefinition, len(file.Cards)),
		decks: make(map[string][]string, len(file.Decks)),
	}
	for i, def := range file.Cards {
		if def == nil {
			return nil, fmt.Errorf("card %d: empty entry", i)
		}
		def.Name = strings.TrimSpace(def.Name)
		if err := validate.Struct(def); err != nil {
			return nil, fmt.Errorf("card %d (%s): %w", i, def.Name, err)
		}
		if _, dup := lib.cards[def.Name]; dup {
			return nil, fmt.Errorf("card %q defined twice", def.Name)
		}
		lib.cards[def.Name] = def
	}

	for name, names := range file.Decks {
		if len(names) == 0 {
			return nil, fmt.Errorf("deck %q is empty", name)
		}
		for _, cardName := range names {
			if _, ok := lib.cards[cardName]; !ok {
				return nil, fmt.Errorf("deck %q: unknown card %q", name, cardName)
			}
		}
		lib.decks[name] = append([]string(nil), names...)
	}
	return lib, nil
}

// Card returns a catalog entry by name.
func (l *Library) Card(name string) (*CardDefinition, bool) {
	def, ok := l.cards[name]
	return def, ok
}

// Deck resolves a named deck into its card definitions.
func (l *Library) Deck(name string) ([]*CardDefinition, error) {
	names, ok := l.decks[name]
	if !ok {
		return nil, fmt.Errorf("deck %q: %w", name, ErrNoDeck)
	}
	defs := make([]*CardDefinition, 0, len(names))
	for _, n := range names {
		defs = append(defs, l.cards[n])
	}
	return defs, nil
}

// CardNames lists the catalog in name order.
func (l *Library) CardNames() []string {
	names := make([]string, 0, len(l.cards))
	for n := range l.cards {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DeckNames lists the decks in name order.
func (l *Library) DeckNames() []string {
	names := make([]string, 0, len(l.decks))
	for n := range l.decks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
