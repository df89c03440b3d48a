// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package command implements a registry of interactive commands and a
// dispatcher that turns input lines into command invocations.
//
// Command names are resolved in three steps: an exact command name, then an
// exact single-character shortcut, then a prefix shared by exactly one
// command name.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

// A Handler executes a command on behalf of the state value s. The args
// slice holds the whitespace-delimited arguments following the command name.
type Handler[S any] func(s S, args []string) error

// A Descriptor describes a single command.
type Descriptor[S any] struct {
	Name        string // full command name
	Shortcut    string // optional one-character shortcut
	Brief       string // one-line summary shown in command lists
	Description string // help text
	Usage       string // usage synopsis
	Handler     Handler[S]
}

// A Registry holds an immutable set of commands.
type Registry[S any] struct {
	Title string
	cmds  []*Descriptor[S]
	exact map[string]*Descriptor[S]
	tree  *prefixtree.Tree[*Descriptor[S]]
}

// ErrDuplicate is returned when two commands share a name or shortcut.
var ErrDuplicate = errors.New("duplicate command")

// NewRegistry builds a registry from a list of command descriptors.
// Duplicate names or shortcuts, and malformed descriptors, are rejected.
func NewRegistry[S any](title string, list []Descriptor[S]) (*Registry[S], error) {
	r := &Registry[S]{
		Title: title,
		cmds:  make([]*Descriptor[S], len(list)),
		exact: make(map[string]*Descriptor[S]),
		tree:  prefixtree.New[*Descriptor[S]](),
	}

	for i := range list {
		c := list[i]
		switch {
		case c.Name == "" || strings.ContainsAny(c.Name, " \t"):
			return nil, fmt.Errorf("invalid command name '%s'", c.Name)
		case len(c.Shortcut) > 1:
			return nil, fmt.Errorf("command '%s' has invalid shortcut '%s'", c.Name, c.Shortcut)
		case c.Handler == nil:
			return nil, fmt.Errorf("command '%s' has no handler", c.Name)
		}

		r.cmds[i] = &c
		for _, key := range []string{c.Name, c.Shortcut} {
			if key == "" {
				continue
			}
			key = strings.ToLower(key)
			if _, ok := r.exact[key]; ok {
				return nil, fmt.Errorf("%w: '%s'", ErrDuplicate, key)
			}
			r.exact[key] = &c
		}
		r.tree.Add(strings.ToLower(c.Name), &c)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics if the command list is
// invalid. It is intended for package-level command tables.
func MustRegistry[S any](title string, list []Descriptor[S]) *Registry[S] {
	r, err := NewRegistry(title, list)
	if err != nil {
		panic(err)
	}
	return r
}

// Commands returns the registered commands in registration order.
func (r *Registry[S]) Commands() []*Descriptor[S] {
	return r.cmds
}

// Lookup finds the command identified by token.
func (r *Registry[S]) Lookup(token string) (*Descriptor[S], error) {
	key := strings.ToLower(token)
	if c, ok := r.exact[key]; ok {
		return c, nil
	}

	c, err := r.tree.FindValue(key)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, prefixtree.ErrPrefixAmbiguous):
		return nil, &AmbiguousError{Prefix: token, Candidates: r.candidates(key)}
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownCommand, token)
	}
}

// Return the sorted names of all commands starting with prefix.
func (r *Registry[S]) candidates(prefix string) []string {
	var names []string
	for _, c := range r.cmds {
		if strings.HasPrefix(strings.ToLower(c.Name), prefix) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}
