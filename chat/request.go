// Copyright 2025 Storyowl Labs
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


package chat

import "github.com/storyowl/storyowl/core"

// Request is one conversational turn. User and session identifiers travel
// here explicitly; nothing about the turn lives in ambient state.
type Request struct {
	// UserId identifies the account. Required.
	UserId string

	// SessionKey scopes continuation state to one conversation. Required.
	SessionKey string

	// Text is the raw user utterance ("dinosaur books").
	Text string

	// Category is an explicit category/topic parameter from the caller,
	// resolved through the genre aliases.
	Category string

	// Kind is the desired media type hint; zero means infer from the text
	// or return any kind.
	Kind core.Kind

	// Personalize asks for taste-forward results from the external
	// personalizer and profile-vector seeding.
	Personalize bool

	// Role is the account type; the zero value is treated as a child.
	Role core.Role

	// Age is the child's age hint; zero means unknown.
	Age int

	// Lang restricts catalog results to a language code when set.
	Lang string
}

// Outcome classifies a reply for callers that branch on it.
type Outcome string

const (
	// OutcomeList is a normal recommendation list.
	OutcomeList Outcome = "list"
	// OutcomeBlocked is a safety decline.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeClarify asks the user to say more.
	OutcomeClarify Outcome = "clarify"
	// OutcomeWelcome is the last-resort greeting.
	OutcomeWelcome Outcome = "welcome"
	// OutcomeTimeout is the apologetic reply after the soft timeout.
	OutcomeTimeout Outcome = "timeout"
)

// Card is one recommended item in a reply.
type Card struct {
	SourceId string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Thumb    string `json:"thumb,omitempty"`
	Link     string `json:"link,omitempty"`
	Kind     string `json:"kind"`
}

// Reply is the outcome of one turn: a plain-text summary, the item cards,
// and the updated continuation state for the next turn.
type Reply struct {
	Outcome  Outcome
	Text     string
	Cards    []Card
	Strategy core.Strategy

	// State is the continuation state after this turn; nil for terminal
	// outcomes that carry nothing to continue from.
	State *core.ContinuationState
}
