// Package command defines the typed description of one external tool
// invocation and its rendering into an argument vector.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var flagNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Flag is a single `--name=value` pair passed to a tool.
type Flag struct {
	Name  string
	Value string
}

// Spec describes one external process: the program to launch and its flags
// in the order they are passed. A Spec is treated as immutable once built.
type Spec struct {
	Program string
	Flags   []Flag
}

// New builds a Spec from a program and flags, copying the flag slice.
func New(program string, flags ...Flag) Spec {
	return Spec{Program: program, Flags: append([]Flag(nil), flags...)}
}

// Validate checks that the spec can be rendered into a meaningful argv.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Program) == "" {
		return errors.New("command program must not be empty")
	}

	seen := make(map[string]struct{}, len(s.Flags))
	for _, f := range s.Flags {
		if !flagNameRegex.MatchString(f.Name) {
			return fmt.Errorf("command %s: invalid flag name %q", s.Program, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("command %s: flag %q declared more than once", s.Program, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Argv renders the spec as [program, --flag=value, ...].
func (s Spec) Argv() []string {
	argv := make([]string, 0, len(s.Flags)+1)
	argv = append(argv, s.Program)
	for _, f := range s.Flags {
		argv = append(argv, fmt.Sprintf("--%s=%s", f.Name, f.Value))
	}
	return argv
}

// Lookup returns the value of the named flag.
func (s Spec) Lookup(name string) (string, bool) {
	for _, f := range s.Flags {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// String implements fmt.Stringer for log output.
func (s Spec) String() string {
	return strings.Join(s.Argv(), " ")
}
