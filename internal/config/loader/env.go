package loader

import (
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Env reads settings from environment variables starting with Prefix.
//
// A variable named in Mapping goes to the path it maps to. Any other
// variable maps PREFIX_SECTION_SOME_NAME to section.someName; one with
// no setting part after the section is ignored.
type Env struct {
	Prefix  string
	Mapping map[string]string

	// Environ lists the variables as KEY=value. Defaults to os.Environ.
	Environ func() []string
}

// Load returns the settings found. Values are typed by parseValue, and
// empty values are kept as empty strings.
func (e *Env) Load() (map[string]any, error) {
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}

	out := make(map[string]any)
	for _, kv := range environ() {
		name, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, e.Prefix) {
			continue
		}
		path, ok := e.Mapping[name]
		if !ok {
			path = EnvPath(strings.TrimPrefix(name, e.Prefix))
		}
		if path != "" {
			setPath(out, strings.Split(path, "."), parseValue(value))
		}
	}
	return out, nil
}

// EnvPath converts FILES_MAX_FILE_SIZE to files.maxFileSize. It returns
// "" for a name without both a section and a setting.
func EnvPath(name string) string {
	section, setting, ok := strings.Cut(strings.ToLower(name), "_")
	if !ok || section == "" || setting == "" {
		return ""
	}
	title := cases.Title(language.Und)
	words := strings.Split(setting, "_")
	for i := 1; i < len(words); i++ {
		words[i] = title.String(words[i])
	}
	return section + "." + strings.Join(words, "")
}

// parseValue types an environment value: booleans (true/yes/on and
// false/no/off), integers, decimals, durations, then JSON arrays and
// objects. Anything else stays a string.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "":
		return s
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if s[0] == '[' || s[0] == '{' {
		var v any
		if json.Unmarshal([]byte(s), &v) == nil {
			return v
		}
	}
	return s
}

func setPath(m map[string]any, parts []string, value any) {
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}
