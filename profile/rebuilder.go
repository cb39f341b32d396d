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


package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/storyowl/storyowl/ai"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
)

var (
	// ErrEmbedderRequired indicates the rebuilder was constructed without
	// an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrProfileRepositoryRequired indicates the rebuilder was constructed
	// without a profile repository.
	ErrProfileRepositoryRequired = errors.New("profile repository is required")

	// ErrNoSignals indicates the rebuild input carries nothing to embed.
	ErrNoSignals = errors.New("no history or interests to rebuild from")
)

// Signal weights. Favourites are deliberate choices and count double;
// declared interests are noisier than behaviour and count half.
const (
	activityWeight  = 1.0
	favouriteWeight = 2.0
	interestWeight  = 0.5
)

// RebuildInput is the interaction history snapshot for one user.
type RebuildInput struct {
	UserId string
	Role   core.Role
	Age    int

	// Interests are declared interest terms ("dinosaurs", "space").
	Interests []string

	// Restrictions are user-specific restricted terms carried onto the
	// rebuilt profile unchanged.
	Restrictions []string

	// FavouriteTexts are composed texts of explicitly favourited items.
	FavouriteTexts []string

	// ActivityTexts are composed texts of recently opened or watched items.
	ActivityTexts []string
}

// Rebuilder turns interaction history into a preference vector.
type Rebuilder struct {
	embedder ai.Embedder
	profiles storage.ProfileRepository
	logger   *slog.Logger
}

// NewRebuilder creates a Rebuilder. The profile repository receives the
// rebuilt profile; the embedder vectorizes the history in one batch.
func NewRebuilder(embedder ai.Embedder, profiles storage.ProfileRepository) (*Rebuilder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if profiles == nil {
		return nil, ErrProfileRepositoryRequired
	}
	return &Rebuilder{
		embedder: embedder,
		profiles: profiles,
		logger:   slog.Default().With("component", "profile-rebuilder"),
	}, nil
}

// Rebuild embeds the history, folds it into a normalized preference vector,
// and stores the resulting profile. The stored profile is returned.
func (r *Rebuilder) Rebuild(ctx context.Context, input RebuildInput) (*core.UserProfile, error) {
	if input.UserId == "" {
		return nil, core.ErrEmptyUserId
	}

	texts, weights := composeSignals(input)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNoSignals, input.UserId)
	}

	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d history texts: %w", len(texts), err)
	}

	vector := weightedSum(vectors, weights)
	normalize(vector)

	profile := &core.UserProfile{
		UserId:         input.UserId,
		Role:           input.Role,
		Interests:      input.Interests,
		Restrictions:   input.Restrictions,
		Age:            input.Age,
		Vector:         vector,
		FavouriteCount: len(input.FavouriteTexts),
		ActivityCount:  len(input.ActivityTexts),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := r.profiles.PutProfile(ctx, profile); err != nil {
		return nil, err
	}

	r.logger.Info("rebuilt preference vector",
		"user", input.UserId,
		"favourites", profile.FavouriteCount,
		"activities", profile.ActivityCount,
		"interests", len(input.Interests))
	return profile, nil
}

// composeSignals flattens the input into parallel text and weight slices,
// skipping blank entries.
func composeSignals(input RebuildInput) ([]string, []float64) {
	var texts []string
	var weights []float64
	add := func(raw string, weight float64) {
		if text := strings.TrimSpace(raw); text != "" {
			texts = append(texts, text)
			weights = append(weights, weight)
		}
	}
	for _, t := range input.ActivityTexts {
		add(t, activityWeight)
	}
	for _, t := range input.FavouriteTexts {
		add(t, favouriteWeight)
	}
	for _, t := range input.Interests {
		add(t, interestWeight)
	}
	return texts, weights
}

// weightedSum accumulates vectors in float64 and returns the float32 sum.
// Vectors shorter than the widest one contribute only their own dimensions.
func weightedSum(vectors [][]float32, weights []float64) []float32 {
	dims := 0
	for _, v := range vectors {
		if len(v) > dims {
			dims = len(v)
		}
	}
	if dims == 0 {
		return nil
	}

	acc := make([]float64, dims)
	for i, v := range vectors {
		for j, x := range v {
			acc[j] += weights[i] * float64(x)
		}
	}

	out := make([]float32, dims)
	for i, x := range acc {
		out[i] = float32(x)
	}
	return out
}

// normalize scales the vector to unit length in place. A zero vector is
// left untouched.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
