package domain

import (
	"errors"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

// ErrUnknownClass is returned when decoding a tag that has no registered factory.
var ErrUnknownClass = errors.New("unknown class tag")

// Tagged is implemented by values that can be written in the tagged JSON
// encoding: {"__class__": {"name": <tag>, "value": {...}}}.
type Tagged interface {
	ClassTag() string
	ClassValue() map[string]any
}

// Factory rebuilds a value from the "value" object of the tagged encoding.
type Factory func(value map[string]any) (any, error)

// Registry maps stable tags to factories. Registration happens at startup;
// lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds tag to f. Registering a tag twice panics.
func (r *Registry) Register(tag string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[tag]; dup {
		panic(fmt.Sprintf("domain: class tag %q already registered", tag))
	}
	r.factories[tag] = f
}

// Lookup returns the factory for tag.
func (r *Registry) Lookup(tag string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[tag]
	return f, ok
}

type taggedEnvelope struct {
	Class taggedClass `json:"__class__"`
}

type taggedClass struct {
	Name  string         `json:"name"`
	Value map[string]any `json:"value"`
}

// Encode writes v in the tagged encoding.
func (r *Registry) Encode(v Tagged) ([]byte, error) {
	return json.Marshal(taggedEnvelope{Class: taggedClass{Name: v.ClassTag(), Value: v.ClassValue()}})
}

// Decode parses the tagged encoding and rebuilds the value through the
// factory registered for its tag.
func (r *Registry) Decode(data []byte) (any, error) {
	var env taggedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode tagged json: %w", err)
	}
	if env.Class.Name == "" {
		return nil, fmt.Errorf("decode tagged json: missing __class__ name")
	}
	f, ok := r.Lookup(env.Class.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, env.Class.Name)
	}
	return f(env.Class.Value)
}
