// Package profile loads per-obfuscator run configuration: the shuffled
// opcode byte mapping of a build, rule toggles and the report path.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/unvirt/unvirt/internal/vm"
)

// Profile configures one devirtualization run.
type Profile struct {
	Name string `yaml:"name"`

	// OpcodeMap maps raw opcode bytes of the analyzed build to
	// canonical mnemonics. Empty means the identity mapping.
	OpcodeMap map[uint8]string `yaml:"opcode_map"`

	Rules struct {
		// Disabled lists stock rule names to skip.
		Disabled []string `yaml:"disabled"`
	} `yaml:"rules"`

	Report struct {
		// Path of the sqlite report store; empty disables reporting.
		Path string `yaml:"path"`
	} `yaml:"report"`
}

// Default returns the profile used when no file is given: identity
// opcode mapping, every stock rule enabled, no report store.
func Default() *Profile {
	return &Profile{Name: "default"}
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a profile from YAML bytes.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) validate() error {
	seen := make(map[string]uint8, len(p.OpcodeMap))
	for raw, mnemonic := range p.OpcodeMap {
		if _, ok := vm.OpcodeByName(mnemonic); !ok {
			return fmt.Errorf("profile %q: unknown mnemonic %q for byte 0x%02x", p.Name, mnemonic, raw)
		}
		if prev, dup := seen[mnemonic]; dup {
			return fmt.Errorf("profile %q: mnemonic %q mapped from both 0x%02x and 0x%02x", p.Name, mnemonic, prev, raw)
		}
		seen[mnemonic] = raw
	}
	return nil
}

// VMOpcodeMap resolves the profile mapping to the decoder's form.
func (p *Profile) VMOpcodeMap() vm.OpcodeMap {
	if len(p.OpcodeMap) == 0 {
		return vm.Identity()
	}
	m := make(vm.OpcodeMap, len(p.OpcodeMap))
	for raw, mnemonic := range p.OpcodeMap {
		op, _ := vm.OpcodeByName(mnemonic)
		m[raw] = op
	}
	return m
}

// RuleDisabled reports whether a stock rule is toggled off.
func (p *Profile) RuleDisabled(name string) bool {
	for _, disabled := range p.Rules.Disabled {
		if disabled == name {
			return true
		}
	}
	return false
}
