// Package vexilla provides typed feature flags organized in a tree of groups
// and resolved against an ordered chain of value providers.
//
// # Philosophy
//
// A flag is declared once, as a field of an ordinary Go struct, with a default
// value and a codec. Registration walks the tree a single time, composes every
// flag's key path and binds the flag to its loader. Reading a flag afterwards is
// a provider lookup and a decode; nothing is composed or reflected on the hot
// path.
//
// # Declaring Flags
//
// Groups embed GroupInfo and list their children in declaration order:
//
//	type UIFlags struct {
//		vexilla.GroupInfo
//		DarkMode *vexilla.Flag[bool]
//		Theme    *vexilla.Flag[string]
//	}
//
//	func (u *UIFlags) Children() []vexilla.Child {
//		return []vexilla.Child{
//			vexilla.Field("darkMode", u.DarkMode),
//			vexilla.Field("theme", u.Theme),
//		}
//	}
//
//	type AppFlags struct {
//		UI *UIFlags
//	}
//
//	func (a *AppFlags) Children() []vexilla.Child {
//		return []vexilla.Child{vexilla.Field("ui", a.UI)}
//	}
//
//	flags := &AppFlags{UI: &UIFlags{
//		GroupInfo: vexilla.GroupOf(vexilla.Description("User interface")),
//		DarkMode:  vexilla.Bool(false),
//		Theme:     vexilla.Enum("light", []string{"light", "dark"}),
//	}}
//
// # Key Composition
//
// Each flag's key path is the chain of its ancestors' segments followed by its
// own. A node's segment comes from its KeyPolicy:
//   - Inherit: transform the field name with the loader's transform
//   - SnakeCase, KebabCase, AsIs: transform the field name
//   - FixedSegment(s): use s verbatim
//   - Skip: contribute no segment; children attach to the parent
//
// With the default snake_case transform and "/" separator the flags above
// live at ui/dark_mode and ui/theme. A loader prefix prepends one segment to
// every path except those fixed with WithKey, which replace the whole path.
//
// # Providers
//
// A Provider is a named key/value store. Resolution asks providers in loader
// order and returns the first value that decodes into the flag's type; missing
// and undecodable values fall through, and the default is used last. A
// computed function attached with WithComputed is consulted before any
// provider.
//
// Bundled providers:
//   - MemoryProvider: ephemeral, writable
//   - FileProvider: JSON, YAML or TOML file, atomic writes, polling Watch
//   - EnvProvider: environment variables, read-only
//   - ArgsProvider: --seg1-seg2=value arguments, read-only
//   - providers/sqlite: SQLite table, writable
//   - providers/remote: HTTP or custom Source with refresh and file fallback
//
// A flag may exclude provider types with ExcludeProviders, and a read or a
// write may be limited to given types with OnlyFrom or the variadic type
// arguments of Set, Clear and SetValue.
//
//	local, _ := vexilla.NewFileProvider("flags.json", vexilla.FileProviderOptions{})
//	loader, err := vexilla.NewLoader(flags, vexilla.WithProviders(local))
//	if err != nil {
//		return err
//	}
//	defer loader.Close()
//
//	if flags.UI.DarkMode.Value() {
//		// ...
//	}
//	_, err = flags.UI.Theme.Set("dark")
//
// # Loader Lifetime
//
// Flags hold a weak reference to their loader. When the loader is collected,
// flags keep working and resolve to their defaults; writes fail with
// VEXILLA_FLAG_NOT_BOUND.
//
// # Errors
//
// Errors carry go-errors codes (VEXILLA_*). Failures below the provider
// boundary, such as a malformed stored value, are absorbed by resolution;
// failures a caller can act on, such as a write that could not be persisted,
// are returned. Use HasCode to test an error chain.
//
// # Audit
//
// WithAudit records every write, clear and reset with its old and new value
// in a JSONL file or SQLite database, each record sealed with a SHA-256
// checksum. ReadAuditTrail reads either form back.
//
// # Configuration
//
// LoadConfigFromEnv reads VEXILLA_KEY_* and VEXILLA_AUDIT_* variables; apply
// the result with WithConfig.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package vexilla
