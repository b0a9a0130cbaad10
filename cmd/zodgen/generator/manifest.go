package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/tlipoca9/zodgen/rules"
	"github.com/tlipoca9/zodgen/schema"
)

// Manifest declares schemas without Go types.
//
// YAML keeps field order from the rules mapping:
//
//	schemas:
//	  - name: CreateUser
//	    rules:
//	      email: required|email
//	      roles: [array, "min:1"]
//
// JSON uses an ordered list instead: "rules": [{"field": "email", "rules": "required|email"}].
type Manifest struct {
	Schemas []ManifestSchema `yaml:"schemas" json:"schemas"`
}

// ManifestSchema is one schema entry of a manifest.
type ManifestSchema struct {
	Name       string            `yaml:"name" json:"name"`
	Class      string            `yaml:"class" json:"class"`
	Kind       string            `yaml:"kind" json:"kind"`
	Rules      RuleList          `yaml:"rules" json:"rules"`
	Messages   map[string]string `yaml:"messages" json:"messages"`
	Attributes map[string]string `yaml:"attributes" json:"attributes"`
	Refs       map[string]string `yaml:"refs" json:"refs"`
	ItemRefs   map[string]string `yaml:"item_refs" json:"item_refs"`
	Optional   []string          `yaml:"optional" json:"optional"`
}

// RuleList is an ordered rule-set decoded from a manifest. A field's rules
// are a pipe-joined string or a list of tokens.
type RuleList rules.Set

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *RuleList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rules must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			*l = append(*l, rules.Field{Name: key.Value, Rules: val.Value})
		case yaml.SequenceNode:
			var tokens []string
			if err := val.Decode(&tokens); err != nil {
				return fmt.Errorf("line %d: rules of %s: %w", val.Line, key.Value, err)
			}
			*l = append(*l, rules.Field{Name: key.Value, Rules: tokenList(tokens)})
		default:
			return fmt.Errorf("line %d: rules of %s must be a string or a list", val.Line, key.Value)
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *RuleList) UnmarshalJSON(data []byte) error {
	var pairs []struct {
		Field string          `json:"field"`
		Rules json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	for _, p := range pairs {
		var s string
		if err := json.Unmarshal(p.Rules, &s); err == nil {
			*l = append(*l, rules.Field{Name: p.Field, Rules: s})
			continue
		}
		var tokens []string
		if err := json.Unmarshal(p.Rules, &tokens); err != nil {
			return fmt.Errorf("rules of %s must be a string or a list: %w", p.Field, err)
		}
		*l = append(*l, rules.Field{Name: p.Field, Rules: tokenList(tokens)})
	}
	return nil
}

func tokenList(tokens []string) []any {
	list := make([]any, len(tokens))
	for i, t := range tokens {
		list[i] = t
	}
	return list
}

// LoadManifest reads a .yaml, .yml or .json manifest.
func LoadManifest(path string) ([]schema.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	srcs, err := ParseManifest(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return srcs, nil
}

// ParseManifest decodes a manifest in the format named by ext.
func ParseManifest(data []byte, ext string) ([]schema.Source, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", ext)
	}
	return m.Sources()
}

// Sources converts the manifest entries. All invalid entries are reported.
func (m *Manifest) Sources() ([]schema.Source, error) {
	var (
		srcs []schema.Source
		errs []error
	)
	for i, s := range m.Schemas {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("schema #%d: name is required", i+1))
			continue
		}
		src := schema.Source{
			Name:       s.Name,
			Class:      s.Class,
			Rules:      rules.Set(s.Rules),
			Messages:   s.Messages,
			Attributes: s.Attributes,
			Refs:       s.Refs,
			ItemRefs:   s.ItemRefs,
			Optional:   s.Optional,
		}
		if src.Class == "" {
			src.Class = s.Name
		}
		switch kind := schema.Kind(s.Kind); kind {
		case "":
			src.Kind = schema.KindFormRequest
			if len(s.Refs) > 0 || len(s.ItemRefs) > 0 {
				src.Kind = schema.KindDataObject
			}
		case schema.KindFormRequest, schema.KindPlainClass, schema.KindDataObject:
			src.Kind = kind
		default:
			errs = append(errs, fmt.Errorf("schema %s: unknown kind %q", s.Name, s.Kind))
			continue
		}
		srcs = append(srcs, src)
	}
	return srcs, utilerrors.NewAggregate(errs)
}
