package loader

import (
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// YAML decodes to the same value types as TOML: integers become int64.
var YAML = Format{
	Name: "YAML",
	Exts: []string{".yaml", ".yml"},
	decode: func(data []byte) (map[string]any, error) {
		var m map[string]any
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		for k, v := range m {
			m[k] = widenInts(v)
		}
		return m, nil
	},
	position: func(err error) (int, int) {
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			line, _ := strconv.Atoi(m[1])
			return line, 0
		}
		return 0, 0
	},
}

// yaml.v3 reports positions only in its messages.
var yamlLine = regexp.MustCompile(`line (\d+)`)

func widenInts(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case map[string]any:
		for k, sub := range v {
			v[k] = widenInts(sub)
		}
	case []any:
		for i, sub := range v {
			v[i] = widenInts(sub)
		}
	}
	return v
}
