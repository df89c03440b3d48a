// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"context"
	"sync"

	"github.com/beevik/hbdb/logger"
	"github.com/beevik/hbdb/vm"
)

// A Registry tracks the debug sessions attached to target machines. At most
// one session exists per target. A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[uint64]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint64]*Session)}
}

type registryKey struct{}

// WithRegistry returns a copy of ctx carrying the registry r.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// RegistryFrom returns the registry carried by ctx.
func RegistryFrom(ctx context.Context) (*Registry, bool) {
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok
}

type options struct {
	companion    vm.Config
	hasCompanion bool
	settings     *Settings
}

// An Option configures a session created by Attach.
type Option func(o *options)

// WithCompanionConfig overrides the configuration used to build the
// session's companion machine. By default the companion uses the target's
// configuration.
func WithCompanionConfig(cfg vm.Config) Option {
	return func(o *options) {
		o.companion, o.hasCompanion = cfg, true
	}
}

// WithSettings supplies the initial debugger settings.
func WithSettings(s *Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// Attach returns the debug session of the target machine, creating one if
// the target is not being debugged yet. Attaching to a target that already
// has a session re-arms the session so that it stops at the target's next
// instruction boundary, and returns it unchanged.
//
// If the session's companion machine cannot be created, Attach returns an
// *InitializationError and the target continues undebugged.
func (r *Registry) Attach(target *vm.Machine, opts ...Option) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[target.ID()]; ok {
		s.flags |= flagRunning | flagEnter
		logger.Log(s.tag, "re-attached")
		return s, nil
	}

	if target.IsShutdown() {
		return nil, &InitializationError{Target: target.ID(), Err: vm.ErrShutdown}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasCompanion {
		o.companion = target.Config()
		o.companion.Name = target.Config().Name + "-companion"
	}
	if o.settings == nil {
		o.settings = DefaultSettings()
	}

	companion, err := vm.New(o.companion)
	if err != nil {
		logger.Logf("attach", "machine %d: %v", target.ID(), err)
		return nil, &InitializationError{Target: target.ID(), Err: err}
	}

	s := newSession(r, target, companion, o.settings)
	r.sessions[target.ID()] = s

	target.SetBoundaryHandler(s.onBoundary)
	target.OnLoad(s.onLoad)
	target.OnShutdown(s.onShutdown)

	logger.Logf(s.tag, "attached to machine %d (%s)", target.ID(), target.Config().Name)
	return s, nil
}

// Lookup returns the session attached to the target machine.
func (r *Registry) Lookup(target *vm.Machine) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[target.ID()]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.target.ID()] == s {
		delete(r.sessions, s.target.ID())
	}
}
