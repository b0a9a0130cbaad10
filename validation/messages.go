package validation

import (
	_ "embed"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lang/en.yaml
var englishCatalog []byte

// Localizer looks up message templates by dotted key, e.g. validation.min.string.
// The boolean reports whether a translation exists; callers must not fall back
// to the key itself.
type Localizer interface {
	Translate(key string, replace map[string]string) (string, bool)
}

// LocalizerFunc adapts a function to Localizer.
type LocalizerFunc func(key string, replace map[string]string) (string, bool)

// Translate implements Localizer.
func (f LocalizerFunc) Translate(key string, replace map[string]string) (string, bool) {
	return f(key, replace)
}

// Translator is a flat key -> template Localizer with Laravel-style placeholder
// replacement.
type Translator struct {
	messages map[string]string
}

// NewTranslator returns an empty translator.
func NewTranslator() *Translator {
	return &Translator{messages: make(map[string]string)}
}

var (
	english     *Translator
	englishOnce sync.Once
)

// English returns the translator for the embedded English catalog.
func English() *Translator {
	englishOnce.Do(func() {
		english = NewTranslator()
		if err := english.Load(strings.NewReader(string(englishCatalog))); err != nil {
			panic(fmt.Sprintf("validation: embedded catalog: %v", err))
		}
	})
	return english
}

// Clone returns a copy that can be overlaid without touching t.
func (t *Translator) Clone() *Translator {
	out := NewTranslator()
	for k, v := range t.messages {
		out.messages[k] = v
	}
	return out
}

// Load merges a YAML catalog into the translator. Nested maps become dotted keys.
func (t *Translator) Load(r io.Reader) error {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode catalog: %w", err)
	}
	t.merge("", doc)
	return nil
}

// Set adds one template.
func (t *Translator) Set(key, template string) {
	t.messages[key] = template
}

func (t *Translator) merge(prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case string:
			t.messages[key] = x
		case map[string]any:
			t.merge(key, x)
		}
	}
}

// Keys returns all keys, sorted.
func (t *Translator) Keys() []string {
	keys := make([]string, 0, len(t.messages))
	for k := range t.messages {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Translate implements Localizer.
func (t *Translator) Translate(key string, replace map[string]string) (string, bool) {
	tpl, ok := t.messages[key]
	if !ok || tpl == "" || tpl == key {
		return "", false
	}
	return Replace(tpl, replace), true
}

// Replace substitutes :name placeholders. Like Laravel, :Name capitalizes the
// value and :NAME upper-cases it. Longer names are replaced first so :values is
// not clobbered by :value.
func Replace(tpl string, replace map[string]string) string {
	if len(replace) == 0 || !strings.Contains(tpl, ":") {
		return tpl
	}
	names := make([]string, 0, len(replace))
	for k := range replace {
		names = append(names, k)
	}
	slices.SortFunc(names, func(a, b string) int {
		if d := len(b) - len(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	pairs := make([]string, 0, len(names)*6)
	for _, n := range names {
		v := replace[n]
		pairs = append(pairs,
			":"+strings.ToUpper(n), strings.ToUpper(v),
			":"+capitalize(n), capitalize(v),
			":"+n, v,
		)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Humanize turns a field key into a display name: first_name -> first name.
func Humanize(field string) string {
	return strings.TrimSpace(strings.NewReplacer("_", " ").Replace(field))
}
