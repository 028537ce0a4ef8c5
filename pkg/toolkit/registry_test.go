// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/aldasoro/troupe/pkg/errors"
	"github.com/aldasoro/troupe/pkg/schema"
	"github.com/aldasoro/troupe/pkg/telemetry"
)

func quietRegistry(opts ...RegistryOption) *Registry {
	opts = append([]RegistryOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewRegistry(opts...)
}

func echoAction(_ context.Context, name, arguments string) (string, error) {
	return name + ":" + arguments, nil
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := quietRegistry()

	err := reg.Register(Function{
		Name:        "GetWeather",
		Description: "Current weather for a city",
		Action:      echoAction,
		Schema:      `{"type":"object","properties":{"city":{"type":"string"}}}`,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	action, err := reg.Resolve("GetWeather")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	out, err := action(context.Background(), "GetWeather", `{"city":"Valencia"}`)
	if err != nil {
		t.Fatalf("action failed: %v", err)
	}
	if out != `GetWeather:{"city":"Valencia"}` {
		t.Errorf("unexpected action output: %s", out)
	}

	fn, ok := reg.Lookup("GetWeather")
	if !ok {
		t.Fatal("expected Lookup to find the function")
	}
	if fn.Schema == "" {
		t.Error("expected registered schema to be preserved")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := quietRegistry()

	_, err := reg.Resolve("Nope")
	if err == nil {
		t.Fatal("expected error for unregistered function")
	}
	if !errors.HasCode(err, errors.CodeFunctionNotFound) {
		t.Errorf("expected FUNCTION_NOT_FOUND, got %v", err)
	}
}

func TestRegistryDuplicateRejected(t *testing.T) {
	reg := quietRegistry()

	fn := Function{Name: "GetWeather", Action: echoAction, Schema: `{}`}
	if err := reg.Register(fn); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := reg.Register(fn)
	if !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected duplicate registration to be rejected, got %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("expected registry to keep one entry, got %d", reg.Len())
	}
}

func TestRegistryAdvertisedOrder(t *testing.T) {
	reg := quietRegistry()

	names := []string{"Charlie", "Alpha", "Bravo"}
	for _, name := range names {
		if err := reg.Register(Function{Name: name, Action: echoAction, Schema: `{}`}); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}

	tools := reg.Advertised()
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}
	for i, name := range names {
		if tools[i].Function.Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, tools[i].Function.Name)
		}
	}
}

func TestRegistryRegisterShape(t *testing.T) {
	type weatherQuery struct {
		City string `json:"city"`
	}

	reg := quietRegistry(WithGenerator(schema.NewReflector()))
	err := reg.RegisterShape("GetWeather", "Current weather", echoAction, &weatherQuery{})
	if err != nil {
		t.Fatalf("RegisterShape failed: %v", err)
	}

	fn, ok := reg.Lookup("GetWeather")
	if !ok {
		t.Fatal("expected function to be registered")
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(fn.Schema), &doc); err != nil {
		t.Fatalf("derived schema is not valid JSON: %v", err)
	}
	props, _ := doc["properties"].(map[string]interface{})
	if _, ok := props["city"]; !ok {
		t.Errorf("expected derived schema to describe the city parameter: %s", fn.Schema)
	}
}

func TestRegistryRegistrationMetric(t *testing.T) {
	metrics, err := telemetry.NewChatMetrics(context.Background())
	if err != nil {
		t.Fatalf("failed to create chat metrics: %v", err)
	}

	reg := quietRegistry(WithMetrics(metrics))
	if err := reg.Register(Function{Name: "GetWeather", Action: echoAction, Schema: `{}`}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// A registry without metrics attached must register just the same.
	bare := quietRegistry()
	if err := bare.Register(Function{Name: "GetWeather", Action: echoAction, Schema: `{}`}); err != nil {
		t.Fatalf("Register without metrics failed: %v", err)
	}
}

func TestRegistryValidation(t *testing.T) {
	reg := quietRegistry()

	if err := reg.Register(Function{Action: echoAction, Schema: `{}`}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := reg.Register(Function{Name: "x", Schema: `{}`}); err == nil {
		t.Error("expected error for missing action")
	}
	if err := reg.Register(Function{Name: "x", Action: echoAction}); err == nil {
		t.Error("expected error for missing schema")
	}
}
