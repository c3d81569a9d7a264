// Package ai defines the oracle abstraction for external text-generation
// backends and the shared retry policy for transient failures.
//
// The Oracle interface is deliberately small: the pipeline treats the backend
// as a stateless text-in/text-out function and owns all prompt construction
// and response parsing itself. Concrete backends live in ai/llm; ai/mock
// provides a configurable test double.
package ai
