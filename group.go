// group.go: Nested flag groups
//
// Groups are ordinary Go structs that embed GroupInfo and list their children
// explicitly:
//
//	type NetworkFlags struct {
//	    vexilla.GroupInfo
//	    Timeout *vexilla.Flag[time.Duration]
//	    Retry   *RetryFlags
//	}
//
//	func (n *NetworkFlags) Children() []vexilla.Child {
//	    return []vexilla.Child{
//	        vexilla.Field("timeout", n.Timeout),
//	        vexilla.Field("retry", n.Retry),
//	    }
//	}
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Configurable lists the children of a flag tree node, in declaration order.
// Roots passed to NewLoader only need this method.
type Configurable interface {
	Children() []Child
}

// Node is a flag or a group. It is implemented by *Flag[T] and by every type
// embedding GroupInfo.
type Node interface {
	isNode()
}

// Group is a Configurable node with its own metadata and policy.
type Group interface {
	Configurable
	Node
	groupInfo() *GroupInfo
}

// Child is one declared member of a group.
type Child struct {
	Name string
	Node Node
}

// Field declares a child named name. The name feeds key composition.
func Field(name string, node Node) Child {
	return Child{Name: name, Node: node}
}

// GroupInfo carries a group's identity, metadata and composition policy.
// Embed it in group structs; the zero value is a plain inheriting group.
type GroupInfo struct {
	state *groupState
}

type groupState struct {
	id       uuid.UUID
	settings nodeSettings
	bound    atomic.Pointer[binding]
}

// GroupOf builds the GroupInfo of a group declared with opts.
func GroupOf(opts ...Option) GroupInfo {
	return GroupInfo{state: &groupState{id: uuid.New(), settings: applyOptions(opts)}}
}

// ID returns the group's identity, or uuid.Nil for an unregistered zero GroupInfo.
func (g *GroupInfo) ID() uuid.UUID {
	if g.state == nil {
		return uuid.Nil
	}
	return g.state.id
}

// Metadata returns the group's metadata; Name defaults to the declared field name.
func (g *GroupInfo) Metadata() Metadata {
	if g.state == nil {
		return Metadata{}
	}
	meta := g.state.settings.meta
	if meta.Name == "" {
		if b := g.state.bound.Load(); b != nil {
			meta.Name = b.name
		}
	}
	return meta
}

// Policy returns the group's own composition policy.
func (g *GroupInfo) Policy() KeyPolicy {
	if g.state == nil {
		return Inherit()
	}
	return g.state.settings.policy
}

// Presentation returns how a UI should show the group.
func (g *GroupInfo) Presentation() Presentation {
	if g.state == nil {
		return PresentAsNavigation
	}
	return g.state.settings.presentation
}

// KeyPath returns the group's own path: the prefix its flags share.
func (g *GroupInfo) KeyPath() KeyPath {
	if g.state == nil {
		return KeyPath{}
	}
	if b := g.state.bound.Load(); b != nil {
		return b.key
	}
	return KeyPath{}
}

// Loader returns the owning loader, or nil if unregistered or collected.
func (g *GroupInfo) Loader() *Loader {
	if g.state == nil {
		return nil
	}
	if b := g.state.bound.Load(); b != nil {
		return b.loader.Value()
	}
	return nil
}

func (g *GroupInfo) isNode() {}

func (g *GroupInfo) groupInfo() *GroupInfo { return g }

// ensure allocates state for a zero GroupInfo. Called during registration only.
func (g *GroupInfo) ensure() *groupState {
	if g.state == nil {
		g.state = &groupState{id: uuid.New()}
	}
	return g.state
}
