// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema converts Go shape descriptors into JSON Schema documents.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/aldasoro/troupe/pkg/errors"
)

// Generator produces a JSON Schema document for a shape descriptor.
// Implementations must be pure: the same shape always yields the same schema.
type Generator interface {
	Generate(shape any) (string, error)
}

// Reflector is the default Generator. It reflects Go values into
// self-contained schemas suitable for embedding in prompts: definitions are
// inlined and no $id is emitted.
type Reflector struct {
	reflector jsonschema.Reflector
}

// NewReflector creates a Reflector with prompt-friendly defaults.
func NewReflector() *Reflector {
	return &Reflector{
		reflector: jsonschema.Reflector{
			DoNotReference: true,
			Anonymous:      true,
		},
	}
}

// Generate implements Generator.
func (r *Reflector) Generate(shape any) (string, error) {
	if shape == nil {
		return "", errors.New(errors.CodeInvalidInput, "shape descriptor is nil", nil)
	}
	s := r.reflector.Reflect(shape)
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Literal is a Generator that returns a fixed, pre-built schema document
// regardless of the shape it is asked about.
type Literal string

// Generate implements Generator.
func (l Literal) Generate(any) (string, error) {
	if l == "" {
		return "", errors.New(errors.CodeInvalidInput, "literal schema is empty", nil)
	}
	return string(l), nil
}
