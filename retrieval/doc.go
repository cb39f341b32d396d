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


// Package retrieval implements the candidate pipeline that turns seed
// vectors into a ranked, diversified list of items:
//
//	Retriever (multi-seed gather) -> Scorer -> Diversifier (MMR) -> Re-ranker
//
// The Retriever fetches a candidate pool per seed vector concurrently and
// interleaves the pools round-robin by rank, so the query signal and the
// taste-profile signal both contribute without either dominating. The Scorer
// blends query similarity, interest overlap, and demographic fit with
// weights that adapt to how much history the user has. The Diversifier runs
// greedy Maximal Marginal Relevance, and the Re-ranker boosts explicit
// author/title matches while guarding against confidently returning far
// nearest neighbors.
//
// The empirically tuned constants (confidence floors, MMR lambdas, pool
// sizing) live in Config rather than as hard-coded invariants.
package retrieval
