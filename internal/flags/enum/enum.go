// Package enum provides pflag values restricted to a fixed set of
// spellings, with the allowed set rendered into the flag's usage text.
package enum

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const flagType = "enum"

type value struct {
	allowed []string
	current string
}

func (v *value) String() string { return v.current }

func (v *value) Type() string { return flagType }

func (v *value) Set(s string) error {
	for _, a := range v.allowed {
		if a == s {
			v.current = s
			return nil
		}
	}
	return fmt.Errorf("invalid value %q, must be one of %s", s, strings.Join(v.allowed, ", "))
}

// Var registers an enum flag whose default is the first allowed value.
func Var(f *pflag.FlagSet, name string, allowed []string, usage string) {
	VarP(f, name, "", allowed, usage)
}

// VarP is Var with a shorthand.
func VarP(f *pflag.FlagSet, name, shorthand string, allowed []string, usage string) {
	v := &value{allowed: allowed, current: allowed[0]}
	f.VarP(v, name, shorthand, fmt.Sprintf("%s (must be one of %s)", usage, strings.Join(allowed, ", ")))
}

// Get reads the current value of an enum flag.
func Get(f *pflag.FlagSet, name string) (string, error) {
	flag := f.Lookup(name)
	if flag == nil {
		return "", fmt.Errorf("flag accessed but not defined: %s", name)
	}
	if flag.Value.Type() != flagType {
		return "", fmt.Errorf("flag %s is a %s, not an enum", name, flag.Value.Type())
	}
	return flag.Value.String(), nil
}
