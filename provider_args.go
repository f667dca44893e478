// provider_args.go: Read-only provider backed by command-line arguments
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"strings"

	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// ArgsProvider exposes --seg1-seg2=value arguments as flag overrides. One
// string flag is registered per key path; arguments naming no known key are
// ignored so the provider can share os.Args with the application's own flags.
//
//	keys, _ := vexilla.ComposeKeys(root, keyConfig)
//	args, _ := vexilla.NewArgsProvider("args", keys, os.Args[1:])
type ArgsProvider struct {
	name   string
	flags  *flashflags.FlagSet
	byPath map[string]string
	keys   map[string]KeyPath
	values map[string]string
}

// NewArgsProvider registers keys and parses args.
func NewArgsProvider(name string, keys []KeyPath, args []string) (*ArgsProvider, error) {
	if name == "" {
		name = "args"
	}
	p := &ArgsProvider{
		name:   name,
		flags:  flashflags.New(name),
		byPath: make(map[string]string, len(keys)),
		keys:   make(map[string]KeyPath, len(keys)),
		values: make(map[string]string, len(keys)),
	}
	for _, key := range keys {
		if key.IsEmpty() {
			continue
		}
		flagName := ArgName(key)
		p.keys[key.FullPath()] = key
		if _, dup := p.values[flagName]; dup {
			p.byPath[key.FullPath()] = flagName
			continue
		}
		p.flags.String(flagName, "", "override for "+key.FullPath())
		p.byPath[key.FullPath()] = flagName
		p.values[flagName] = ""
	}

	if err := p.flags.Parse(p.filter(args)); err != nil {
		return nil, errors.Wrap(err, ErrCodeUserInput, "failed to parse command-line overrides")
	}
	p.flags.VisitAll(func(f *flashflags.Flag) {
		if _, known := p.values[f.Name()]; known {
			p.values[f.Name()] = p.flags.GetString(f.Name())
		}
	})
	return p, nil
}

// ArgName returns the argument name for key, without leading dashes.
func ArgName(key KeyPath) string { return strings.Join(key.Segments(), "-") }

// filter keeps only arguments naming registered keys, rewritten to the
// --name=value form.
func (p *ArgsProvider) filter(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		name, value, hasValue := strings.Cut(arg[2:], "=")
		if _, known := p.values[name]; !known {
			continue
		}
		if !hasValue {
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				continue
			}
			value = args[i+1]
			i++
		}
		out = append(out, "--"+name+"="+value)
	}
	return out
}

// Name returns the provider name.
func (p *ArgsProvider) Name() string { return p.name }

// IsWritable is always false.
func (p *ArgsProvider) IsWritable() bool { return false }

// Read returns the argument given for key. An empty argument counts as unset.
func (p *ArgsProvider) Read(key KeyPath) (EncodedValue, bool) {
	flagName, ok := p.byPath[key.FullPath()]
	if !ok {
		flagName = ArgName(key)
	}
	v := p.values[flagName]
	if v == "" {
		return EncodedValue{}, false
	}
	return StringValue(v), true
}

// Write refuses every value.
func (p *ArgsProvider) Write(KeyPath, EncodedValue) (bool, error) {
	return false, ReadOnlyError(p.name)
}

// Reset refuses to modify arguments.
func (p *ArgsProvider) Reset(KeyPath) error { return ReadOnlyError(p.name) }

// Keys returns the key paths that received a non-empty argument.
func (p *ArgsProvider) Keys() []KeyPath {
	var out []KeyPath
	for full, flagName := range p.byPath {
		if p.values[flagName] != "" {
			out = append(out, p.keys[full])
		}
	}
	sortKeyPaths(out)
	return out
}

// PrintHelp prints one line per registered override.
func (p *ArgsProvider) PrintHelp() { p.flags.PrintHelp() }
