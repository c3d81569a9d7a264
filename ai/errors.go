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

package ai

import "errors"

var (
	// ErrUnknownProvider is a configuration error: the provider name is not
	// one of the supported backends. Fatal, never retried.
	ErrUnknownProvider = errors.New("unknown oracle provider")

	// ErrTransientBackend wraps rate-limited, temporarily-unavailable and
	// transport-level failures that persisted through the retry policy.
	ErrTransientBackend = errors.New("transient backend failure")

	// ErrEmptyResponse indicates the backend returned no choices at all.
	ErrEmptyResponse = errors.New("backend returned no choices")

	// ErrInvalidMaxRetries is returned when a retry is requested with a
	// negative retry budget. Zero retries is valid and means one attempt.
	ErrInvalidMaxRetries = errors.New("max retries cannot be negative")
)
