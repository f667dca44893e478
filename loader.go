// loader.go: Flag tree registration and provider ownership
//
// A Loader owns one flag tree and the ordered provider list its flags read
// from. NewLoader walks the tree exactly once, composing every key path and
// binding each flag and group to the loader. Flags only hold a weak
// reference: keep the Loader (or the Manager owning it) alive for as long
// as its flags should resolve through providers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"reflect"
	"weak"

	"github.com/agilira/go-errors"
	"github.com/rs/zerolog"
)

// Loader binds a flag tree to an ordered provider list. Provider order is
// precedence order: the first provider holding a decodable value wins.
//
// Thread safety: immutable after NewLoader returns.
type Loader struct {
	root      Configurable
	meta      Metadata
	keys      KeyConfig
	providers []Provider
	dynamic   func() []Provider

	flags  []AnyFlag
	groups []Group
	index  map[string]AnyFlag

	logger      zerolog.Logger
	audit       *AuditLogger
	auditConfig *AuditConfig
	ownsAudit   bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProviders sets the static provider list, in precedence order.
func WithProviders(providers ...Provider) LoaderOption {
	return func(l *Loader) { l.providers = append([]Provider(nil), providers...) }
}

// WithDynamicProviders supplies the provider list through a callback invoked
// on every resolution. It takes precedence over WithProviders.
func WithDynamicProviders(fn func() []Provider) LoaderOption {
	return func(l *Loader) { l.dynamic = fn }
}

// WithKeys sets the whole key configuration.
func WithKeys(keys KeyConfig) LoaderOption {
	return func(l *Loader) { l.keys = keys }
}

// WithPrefix sets the global key prefix.
func WithPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.keys.Prefix = prefix }
}

// WithSeparator sets the key path separator.
func WithSeparator(separator string) LoaderOption {
	return func(l *Loader) { l.keys.Separator = separator }
}

// WithTransform sets the default key transform.
func WithTransform(transform KeyTransform) LoaderOption {
	return func(l *Loader) { l.keys.Transform = transform }
}

// WithLogger sets the structured logger. Default: zerolog.Nop().
func WithLogger(logger zerolog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithAudit records flag writes and resets to an existing audit logger.
func WithAudit(audit *AuditLogger) LoaderOption {
	return func(l *Loader) { l.audit = audit }
}

// WithLoaderMetadata describes the loader for browsing tools.
func WithLoaderMetadata(meta Metadata) LoaderOption {
	return func(l *Loader) { l.meta = meta }
}

// WithConfig applies a Config: key settings, plus an audit logger owned by
// the loader when auditing is enabled and no WithAudit logger is given.
func WithConfig(cfg Config) LoaderOption {
	return func(l *Loader) {
		cfg = *cfg.WithDefaults()
		l.keys = cfg.Keys
		audit := cfg.Audit
		l.auditConfig = &audit
	}
}

// NewLoader registers root and returns the loader owning it.
func NewLoader(root Configurable, opts ...LoaderOption) (*Loader, error) {
	if isNilNode(root) {
		return nil, errors.New(ErrCodeInvalidTree, "loader root cannot be nil")
	}

	l := &Loader{
		root:   root,
		logger: zerolog.Nop(),
		index:  make(map[string]AnyFlag),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	l.keys = l.keys.WithDefaults()

	if l.audit == nil && l.auditConfig != nil && l.auditConfig.Enabled {
		audit, err := NewAuditLogger(*l.auditConfig)
		if err != nil {
			return nil, err
		}
		l.audit = audit
		l.ownsAudit = true
	}

	err := walkTree(root, l.keys, func(v visit) {
		if v.group != nil {
			info := v.group.groupInfo()
			info.state.bound.Store(&binding{loader: weak.Make(l), name: v.name, key: v.key, parents: v.parents})
			l.groups = append(l.groups, v.group)
			return
		}
		v.flag.bind(l, v.name, v.key, v.parents)
		l.flags = append(l.flags, v.flag)
		if _, dup := l.index[v.key.FullPath()]; dup {
			l.logger.Warn().Str("key", v.key.FullPath()).Msg("several flags share one key path")
			return
		}
		l.index[v.key.FullPath()] = v.flag
	})
	if err != nil {
		if l.ownsAudit {
			_ = l.audit.Close()
		}
		return nil, err
	}

	l.logger.Debug().
		Int("flags", len(l.flags)).
		Int("groups", len(l.groups)).
		Int("providers", len(l.Providers())).
		Str("prefix", l.keys.Prefix).
		Msg("flag tree registered")
	return l, nil
}

// Root returns the registered tree.
func (l *Loader) Root() Configurable { return l.root }

// Metadata returns the loader's metadata.
func (l *Loader) Metadata() Metadata { return l.meta }

// Keys returns the effective key configuration.
func (l *Loader) Keys() KeyConfig { return l.keys }

// Flags returns every flag of the tree, depth first in declaration order.
func (l *Loader) Flags() []AnyFlag { return append([]AnyFlag(nil), l.flags...) }

// Groups returns every group of the tree, depth first in declaration order.
func (l *Loader) Groups() []Group { return append([]Group(nil), l.groups...) }

// Flag returns the flag registered at fullPath.
func (l *Loader) Flag(fullPath string) (AnyFlag, bool) {
	f, ok := l.index[fullPath]
	return f, ok
}

// Children returns the root's immediate children.
func (l *Loader) Children() []NodeInfo { return ListChildren(l.root) }

// Providers returns the current provider list in precedence order.
func (l *Loader) Providers() []Provider {
	source := l.providers
	if l.dynamic != nil {
		source = l.dynamic()
	}
	out := make([]Provider, 0, len(source))
	for _, p := range source {
		if !isNilNode(p) {
			out = append(out, p)
		}
	}
	return out
}

// Audit returns the audit logger, or nil.
func (l *Loader) Audit() *AuditLogger { return l.audit }

// Close releases resources the loader created itself, such as an audit
// logger built from WithConfig.
func (l *Loader) Close() error {
	if l.ownsAudit && l.audit != nil {
		return l.audit.Close()
	}
	return nil
}

// candidates selects the providers a flag reads from or writes to. A
// non-empty only list bypasses exclusion.
func (l *Loader) candidates(excluded, only []ProviderType) []Provider {
	all := l.Providers()
	out := all[:0]
	for _, p := range all {
		if len(only) > 0 {
			if matchesAny(only, p) {
				out = append(out, p)
			}
			continue
		}
		if !matchesAny(excluded, p) {
			out = append(out, p)
		}
	}
	return out
}

func matchesAny(types []ProviderType, p Provider) bool {
	for _, t := range types {
		if t.Matches(p) {
			return true
		}
	}
	return false
}

func (l *Loader) recordAudit(level AuditLevel, event string, key KeyPath, p Provider, oldVal, newVal EncodedValue) {
	if l.audit == nil {
		return
	}
	l.audit.LogFlagChange(level, event, key.FullPath(), p.Name(), oldVal, newVal)
}

// visit is one node met by walkTree.
type visit struct {
	name    string
	key     KeyPath
	parents []Segment
	flag    AnyFlag
	group   Group
}

// walkTree visits every node under root depth first, composing key paths.
func walkTree(root Configurable, keys KeyConfig, fn func(visit)) error {
	keys = keys.WithDefaults()
	visiting := make(map[*groupState]bool)

	var walk func(c Configurable, parents []Segment) error
	walk = func(c Configurable, parents []Segment) error {
		for _, child := range c.Children() {
			if isNilNode(child.Node) {
				return errors.New(ErrCodeInvalidTree, "child node is nil").
					WithContext("child", child.Name).
					WithContext("parent", describeParents(parents))
			}
			switch n := child.Node.(type) {
			case Group:
				state := n.groupInfo().ensure()
				if visiting[state] {
					return errors.New(ErrCodeInvalidTree, "group contains itself").
						WithContext("child", child.Name).
						WithContext("parent", describeParents(parents))
				}
				seg := Segment{Name: child.Name, Policy: state.settings.policy}
				nested := append(append([]Segment(nil), parents...), seg)
				fn(visit{
					name:    child.Name,
					key:     composeKeyPath(parents, seg, "", keys),
					parents: parents,
					group:   n,
				})
				visiting[state] = true
				if err := walk(n, nested); err != nil {
					return err
				}
				delete(visiting, state)
			case AnyFlag:
				s := n.nodeSettings()
				seg := Segment{Name: child.Name, Policy: s.policy}
				fn(visit{
					name:    child.Name,
					key:     composeKeyPath(parents, seg, s.fixedKey, keys),
					parents: parents,
					flag:    n,
				})
			default:
				return errors.New(ErrCodeInvalidTree, "unsupported node type").
					WithContext("child", child.Name).
					WithContext("type", reflect.TypeOf(child.Node).String())
			}
		}
		return nil
	}
	return walk(root, nil)
}

// ComposeKeys returns the key path of every flag under root, in registration
// order, without binding anything. Providers that must know the keys up
// front, such as ArgsProvider, use it before the loader exists.
func ComposeKeys(root Configurable, keys KeyConfig) ([]KeyPath, error) {
	if isNilNode(root) {
		return nil, errors.New(ErrCodeInvalidTree, "root cannot be nil")
	}
	var out []KeyPath
	err := walkTree(root, keys, func(v visit) {
		if v.flag != nil {
			out = append(out, v.key)
		}
	})
	return out, err
}

func describeParents(parents []Segment) string {
	if len(parents) == 0 {
		return "<root>"
	}
	names := make([]string, len(parents))
	for i, p := range parents {
		names[i] = p.Name
	}
	return NewKeyPath(".", names...).FullPath()
}

// isNilNode reports whether v is nil or a typed nil pointer.
func isNilNode(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return rv.IsNil()
	}
	return false
}
