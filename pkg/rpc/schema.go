package rpc

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
)

// SchemaSet compiles and caches the JSON Schemas that validate every RPC
// method's input and output, per spec.md §4.2. Schemas are compiled once
// at registration time; validation at call time is pure lookup + check.
type SchemaSet struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaSet returns an empty SchemaSet.
func NewSchemaSet() *SchemaSet {
	return &SchemaSet{compiled: map[string]*jsonschema.Schema{}}
}

// Register compiles schemaJSON (a JSON Schema document) under key and
// caches it. key is typically "<method>.input" or "<method>.output".
func (s *SchemaSet) Register(key string, schemaJSON string) error {
	if schemaJSON == "" {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(key, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("rpc: compiling schema %q: %w", key, err)
	}
	compiled, err := compiler.Compile(key)
	if err != nil {
		return fmt.Errorf("rpc: compiling schema %q: %w", key, err)
	}
	s.mu.Lock()
	s.compiled[key] = compiled
	s.mu.Unlock()
	return nil
}

// Validate checks raw (a JSON document) against the schema registered
// under key. A missing key is treated as "no schema declared" and always
// passes, matching methods that carry no payload.
func (s *SchemaSet) Validate(key string, raw []byte) error {
	s.mu.RLock()
	compiled, ok := s.compiled[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return hostsdk.NewError(hostsdk.ErrSchemaInvalid, "payload is not valid JSON", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return hostsdk.NewError(hostsdk.ErrSchemaInvalid, fmt.Sprintf("payload failed schema %q", key), err)
	}
	return nil
}
