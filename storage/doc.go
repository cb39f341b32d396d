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


// Package storage defines the repository interfaces for the retrieval
// engine's persistence layer: the item catalog, user profiles, and
// per-session continuation state.
//
// The interfaces are backend-agnostic. The storage/badger sub-package
// provides the BadgerDB implementation used in production and, via its
// in-memory mode, in tests. Records are serialized with the MUS binary
// format; the serializers live in this package so every backend shares
// one wire encoding.
package storage
