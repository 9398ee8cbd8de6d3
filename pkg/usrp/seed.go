package usrp

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

// Seed describes extra tree contents applied after Build.
//
//	values:
//	  /mboards/0/tick_rate: 100000000
//	  /radio0/gain/value: 20
//	nodes:
//	  - path: /user/site
//	    kind: string
//	    value: roof
//	aliases:
//	  /rx0: /mboards/0/rx_dsps/0
type Seed struct {
	Values  map[string]any    `yaml:"values"`
	Nodes   []SeedNode        `yaml:"nodes"`
	Aliases map[string]string `yaml:"aliases"`
}

// SeedNode is a node to create.
type SeedNode struct {
	Path        string `yaml:"path"`
	Kind        string `yaml:"kind"`
	Value       any    `yaml:"value"`
	Unit        string `yaml:"unit"`
	Description string `yaml:"description"`
	ReadOnly    bool   `yaml:"read_only"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses seed YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &s, nil
}

// Apply creates the seed's nodes and writes its values in one update, then
// adds its aliases. Values are converted to the kind of the existing node.
func (s *Seed) Apply(t *tree.Tree) error {
	err := t.Update(func(tx *tree.Txn) error {
		for _, n := range s.Nodes {
			kind, err := property.ParseKind(n.Kind)
			if err != nil {
				return fmt.Errorf("seed node %s: %w", n.Path, err)
			}
			v, err := property.Convert(kind, n.Value)
			if err != nil {
				return fmt.Errorf("seed node %s: %w", n.Path, err)
			}
			meta := &property.Metadata{Unit: n.Unit, Description: n.Description}
			if n.ReadOnly {
				meta.Access = property.AccessReadOnly
			}
			if _, err := tx.CreateNode(n.Path, v, nil, meta); err != nil {
				return err
			}
		}

		paths := make([]string, 0, len(s.Values))
		for p := range s.Values {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			cur, err := tx.Get(p)
			if err != nil {
				return err
			}
			v, err := property.Convert(cur.Kind(), s.Values[p])
			if err != nil {
				return fmt.Errorf("seed value %s: %w", p, err)
			}
			if err := tx.Set(p, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	aliases := make([]string, 0, len(s.Aliases))
	for a := range s.Aliases {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, a := range aliases {
		if err := t.Alias(a, s.Aliases[a]); err != nil {
			return fmt.Errorf("seed alias %s: %w", a, err)
		}
	}
	return nil
}
