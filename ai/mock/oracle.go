// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mock provides a configurable Oracle test double.
package mock

import (
	"context"
	"sync"
)

// Invocation records one call to the mock oracle.
type Invocation struct {
	Prompt          string
	Temperature     float64
	ReasoningBudget int
}

// MockOracle implements ai.Oracle for testing. Set InvokeFunc to control
// responses; invocations are recorded and safe for concurrent callers.
type MockOracle struct {
	InvokeFunc func(ctx context.Context, prompt string, temperature float64, reasoningBudget int) (string, error)

	mu          sync.Mutex
	invocations []Invocation
}

// NewMockOracle creates a mock oracle that echoes the prompt by default.
func NewMockOracle() *MockOracle {
	return &MockOracle{}
}

// Invoke records the call and delegates to InvokeFunc when set.
func (m *MockOracle) Invoke(ctx context.Context, prompt string, temperature float64, reasoningBudget int) (string, error) {
	m.mu.Lock()
	m.invocations = append(m.invocations, Invocation{
		Prompt:          prompt,
		Temperature:     temperature,
		ReasoningBudget: reasoningBudget,
	})
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, prompt, temperature, reasoningBudget)
	}
	return prompt, nil
}

// CallCount returns how many times Invoke was called.
func (m *MockOracle) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invocations)
}

// Invocations returns a copy of the recorded calls in order.
func (m *MockOracle) Invocations() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Invocation, len(m.invocations))
	copy(out, m.invocations)
	return out
}

// Reset clears the recorded calls.
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocations = nil
}
