package loader

import (
	"errors"

	"github.com/pelletier/go-toml/v2"
)

// TOML is the default configuration syntax.
var TOML = Format{
	Name: "TOML",
	Exts: []string{".toml"},
	decode: func(data []byte) (map[string]any, error) {
		var m map[string]any
		err := toml.Unmarshal(data, &m)
		return m, err
	},
	position: func(err error) (int, int) {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return derr.Position()
		}
		return 0, 0
	},
}
