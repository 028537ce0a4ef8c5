// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"sync"

	"github.com/aldasoro/troupe/pkg/errors"
)

// Directory holds the role and task declarations for every agent type.
// It is the explicit, statically-populated replacement for runtime
// annotation scanning: registration happens at startup, lookups are plain
// map reads. Declarations are immutable once registered; duplicates are
// rejected.
type Directory struct {
	mu    sync.RWMutex
	roles map[string]Role
	tasks map[string]map[string]Task
}

// NewDirectory creates an empty declaration directory.
func NewDirectory() *Directory {
	return &Directory{
		roles: make(map[string]Role),
		tasks: make(map[string]map[string]Task),
	}
}

// RegisterRole declares the role for an agent type. Exactly one role per
// type is allowed.
func (d *Directory) RegisterRole(agentType string, role Role) error {
	if agentType == "" {
		return errors.New(errors.CodeInvalidInput, "agent type is required", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.roles[agentType]; exists {
		return errors.New(errors.CodeInvalidInput, "role already declared for agent type", nil).
			WithContext("agent_type", agentType)
	}
	d.roles[agentType] = role
	return nil
}

// RegisterTask declares the task for one operation of an agent type.
func (d *Directory) RegisterTask(agentType, operation string, task Task) error {
	if agentType == "" || operation == "" {
		return errors.New(errors.CodeInvalidInput, "agent type and operation are required", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := d.tasks[agentType]
	if ops == nil {
		ops = make(map[string]Task)
		d.tasks[agentType] = ops
	}
	if _, exists := ops[operation]; exists {
		return errors.New(errors.CodeInvalidInput, "task already declared for operation", nil).
			WithContext("agent_type", agentType).
			WithContext("operation", operation)
	}
	ops[operation] = task
	return nil
}

// Role returns the declared role for an agent type. A missing declaration is
// a fatal, descriptive error naming the offending type.
func (d *Directory) Role(agentType string) (Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	role, ok := d.roles[agentType]
	if !ok {
		return Role{}, errors.New(errors.CodeMissingDeclaration,
			"agent type has no role declaration: "+agentType, nil).
			WithContext("agent_type", agentType)
	}
	return role, nil
}

// Task returns the declared task for an operation of an agent type.
func (d *Directory) Task(agentType, operation string) (Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	task, ok := d.tasks[agentType][operation]
	if !ok {
		return Task{}, errors.New(errors.CodeMissingDeclaration,
			"operation has no task declaration: "+agentType+"."+operation, nil).
			WithContext("agent_type", agentType).
			WithContext("operation", operation)
	}
	return task, nil
}

// Operations returns the operation names declared for an agent type.
func (d *Directory) Operations(agentType string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ops := make([]string, 0, len(d.tasks[agentType]))
	for name := range d.tasks[agentType] {
		ops = append(ops, name)
	}
	return ops
}
