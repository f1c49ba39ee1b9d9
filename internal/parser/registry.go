package parser

import (
	"sort"
	"sync"
)

// Factory builds a parser from the shared environment. Concrete parsers
// register a Factory at package load time.
type Factory func(Env) Parser

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a parser factory under a stable key. It panics on duplicate
// keys; registration happens only from init functions.
func Register(key string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[key]; exists {
		panic("parser: duplicate registration for key " + key)
	}
	registry[key] = factory
}

// Get returns the parser registered under key. Unknown or empty keys fall
// back to the generic LLM extractor rather than erroring.
func Get(key string, env Env) Parser {
	registryMu.RLock()
	factory, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return NewGenericParser(env)
	}
	return factory(env)
}

// Keys returns all registered parser keys, sorted.
func Keys() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
