// Copyright (c) 2026 John Earle
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

package models

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure is terminal to the current operation; none
// are retried.
var (
	// ErrAuthExchange means the token endpoint did not yield an access token.
	ErrAuthExchange = errors.New("oauth code exchange failed")

	// ErrMissingCredential is the parent of ErrNoSession and ErrNoAPIKey.
	ErrMissingCredential = errors.New("missing credential")

	// ErrNoSession means no access token is held for the session.
	ErrNoSession = fmt.Errorf("%w: no session access token", ErrMissingCredential)

	// ErrNoAPIKey means neither the request nor the process configuration
	// supplied a language model API key.
	ErrNoAPIKey = fmt.Errorf("%w: no language model API key", ErrMissingCredential)

	// ErrFetch covers transport, status and decode failures reading mail.
	ErrFetch = errors.New("mail fetch failed")

	// ErrSend means the provider rejected or failed the send call.
	ErrSend = errors.New("mail send failed")

	// ErrMarkRead means removing the UNREAD label failed after a send.
	ErrMarkRead = errors.New("mark read failed")
)
