package deck

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/godo.v2/glob"
	"gopkg.in/yaml.v3"
	"partydeck.io/server/logging"
)

var loaderLogger = logging.GetZeroLogger("deck::loader", nil)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", &UnsupportedFormatError{Format: filepath.Ext(path)}
}

// Parse decodes a deck document. YAML documents are converted to JSON first so
// both formats go through the same union decoding.
func Parse(data []byte, format Format) (*Deck, error) {
	switch format {
	case FormatJSON:
	case FormatYAML:
		var tree interface{}
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, errors.Wrap(err, "Error parsing YAML deck")
		}
		converted, err := json.Marshal(tree)
		if err != nil {
			return nil, errors.Wrap(err, "Error converting YAML deck to JSON")
		}
		data = converted
	default:
		return nil, &UnsupportedFormatError{Format: string(format)}
	}

	d, err := decodeDeck(data)
	if err != nil {
		return nil, errors.Wrap(err, "Error parsing deck")
	}
	return d, nil
}

func LoadFile(path string) (*Deck, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Error reading deck file [%s]", path)
	}
	d, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid deck file [%s]", path)
	}
	return d, nil
}

// LoadDir loads every deck document under dir, recursively.
func LoadDir(dir string) ([]*Deck, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s does not exist", dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to stat %s", dir)
	}
	if !info.IsDir() {
		d, err := LoadFile(dir)
		if err != nil {
			return nil, err
		}
		return []*Deck{d}, nil
	}

	patterns := []string{
		fmt.Sprintf("%s/**/*.json", dir),
		fmt.Sprintf("%s/**/*.yaml", dir),
		fmt.Sprintf("%s/**/*.yml", dir),
	}
	files, _, err := glob.Glob(patterns)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get deck file(s) from dir: %s", dir)
	}

	decks := make([]*Deck, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		d, err := LoadFile(file.Path)
		if err != nil {
			return nil, err
		}
		loaderLogger.Debug().Str(logging.DeckIDKey, d.Meta.ID).Msgf("Loaded deck [%s] from %s", d.Meta.DeckName, file.Path)
		decks = append(decks, d)
	}
	return decks, nil
}
