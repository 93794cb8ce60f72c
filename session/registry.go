// Copyright 2026 Google LLC
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

package session

import (
	"sync"

	"github.com/google/uuid"
)

// registry tracks the process's active session. At most one session is
// active at a time.
type registry struct {
	mu     sync.Mutex
	active *Session
}

var sessions registry

// reserve makes s the active session.
func (r *registry) reserve(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return ErrSessionActive
	}
	r.active = s
	return nil
}

// release clears s if it is the active session.
func (r *registry) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}

func (r *registry) get() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Active returns the active session, or nil when none is mounted.
func Active() *Session {
	return sessions.get()
}

// Lookup returns the active session if its ID is id.
func Lookup(id uuid.UUID) (*Session, bool) {
	s := sessions.get()
	if s == nil || s.id != id {
		return nil, false
	}
	return s, true
}
