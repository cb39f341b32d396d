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


package catalog

import (
	"regexp"
	"strings"

	"github.com/storyowl/storyowl/core"
)

// genreAliases maps user phrasings to canonical genre labels.
var genreAliases = map[string]string{
	"all": "all", "fiction": "fiction", "fiction book": "fiction", "fiction books": "fiction",
	"non fiction": "nonfiction", "non-fiction": "nonfiction", "nonfiction": "nonfiction",
	"non fiction book": "nonfiction", "nonfiction book": "nonfiction",
	"education": "education", "educational": "education",
	"children s literature": "children_literature", "childrens literature": "children_literature",
	"picture board early": "picture_board_early", "picture books": "picture_board_early",
	"board books": "picture_board_early", "early reader": "picture_board_early", "early readers": "picture_board_early",
	"middle grade": "middle_grade", "poetry humor": "poetry_humor", "poetry & humor": "poetry_humor", "funny": "poetry_humor",
	"biography": "biography", "other kids": "other_kids", "young adult": "young_adult", "ya": "young_adult",
	"stories": "stories", "story": "stories", "songs rhymes": "songs_rhymes", "song": "songs_rhymes",
	"songs": "songs_rhymes", "nursery rhymes": "songs_rhymes",
	"learning": "learning", "learning videos": "learning", "science": "science", "stem": "science",
	"math": "math", "mathematics": "math", "animals": "animals", "wildlife": "animals", "pets": "animals",
	"art crafts": "art_crafts", "arts crafts": "art_crafts", "art and crafts": "art_crafts", "art & crafts": "art_crafts",
	"space": "science", "fantasy": "fiction", "mystery": "fiction", "coding": "education", "programming": "education",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// CanonicalGenre normalizes a raw genre/category phrase to its canonical
// label. Unrecognized phrases pass through normalized, so free topics like
// "dinosaurs" survive as-is.
func CanonicalGenre(raw string) string {
	if raw == "" {
		return ""
	}
	k := strings.ToLower(raw)
	k = strings.ReplaceAll(k, "&", " and ")
	k = nonAlnum.ReplaceAllString(k, " ")
	k = strings.TrimSpace(k)
	k = strings.Join(strings.Fields(k), " ")
	if canon, ok := genreAliases[k]; ok {
		return canon
	}
	return k
}

// IsKnownGenre reports whether the phrase maps to a canonical genre, as
// opposed to a free topic.
func IsKnownGenre(raw string) bool {
	if raw == "" {
		return false
	}
	k := strings.ToLower(raw)
	k = strings.ReplaceAll(k, "&", " and ")
	k = nonAlnum.ReplaceAllString(k, " ")
	k = strings.TrimSpace(k)
	k = strings.Join(strings.Fields(k), " ")
	_, ok := genreAliases[k]
	return ok
}

// BookQueryFor maps a canonical genre to a canned book search term and
// whether to restrict the public catalog to the juvenile subject.
func BookQueryFor(canon string) (term string, juvenile bool) {
	switch canon {
	case "all":
		return "children books", true
	case "fiction":
		return "juvenile fiction", true
	case "nonfiction":
		return "juvenile nonfiction", true
	case "education", "learning":
		return "education for children", true
	case "children_literature":
		return "children's literature", true
	case "picture_board_early":
		return "picture books", true
	case "middle_grade":
		return "middle grade", true
	case "poetry_humor":
		return "children poetry humor", true
	case "biography":
		return "biography for children", true
	case "other_kids":
		return "children books", true
	case "young_adult":
		return "young adult", false
	default:
		if canon == "" {
			return "children books", true
		}
		return canon, true
	}
}

// VideoQueryFor maps a canonical topic to a canned kid-safe video search
// term.
func VideoQueryFor(canon string) string {
	switch canon {
	case "stories":
		return "bedtime stories for kids"
	case "songs_rhymes":
		return "nursery rhymes kids songs"
	case "learning":
		return "educational videos for kids"
	case "science":
		return "science for kids"
	case "math":
		return "math for kids"
	case "animals":
		return "animals for kids"
	case "art_crafts":
		return "arts and crafts for kids"
	default:
		if canon == "" {
			return "kids"
		}
		return canon
	}
}

// TopicVariants expands a free topic into the spellings worth matching:
// the topic itself, its singular/plural twin, and hand-kept synonym sets
// for topics kids ask about constantly.
func TopicVariants(raw string) []string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return nil
	}
	variants := []string{t}
	if strings.HasSuffix(t, "s") {
		variants = append(variants, strings.TrimSuffix(t, "s"))
	} else {
		variants = append(variants, t+"s")
	}
	if t == "dinosaur" || t == "dinosaurs" {
		variants = append(variants,
			"dino", "dinos", "t. rex", "trex", "tyrannosaurus",
			"triceratops", "stegosaurus", "paleontolog")
	}
	return variants
}

// MatchesTopic reports whether an item's text mentions any variant of the
// topic. Books match on title, authors, or description; videos on title or
// description.
func MatchesTopic(item *core.Item, topic string) bool {
	variants := TopicVariants(topic)
	if len(variants) == 0 {
		return false
	}
	if containsAny(item.Title, variants) || containsAny(item.Description, variants) {
		return true
	}
	if item.Kind == core.KindBook && containsAny(strings.Join(item.Authors, ", "), variants) {
		return true
	}
	return false
}

// minTopicMatches is the smallest filtered set worth keeping; below it the
// strict filter is judged to have over-filtered and the unfiltered page is
// returned instead.
const minTopicMatches = 3

// FilterByTopic applies the strict topic filter, reverting to the original
// list when fewer than minTopicMatches items survive.
func FilterByTopic(items []*core.Item, topic string) []*core.Item {
	if topic == "" || len(items) == 0 {
		return items
	}
	var matched []*core.Item
	for _, item := range items {
		if MatchesTopic(item, topic) {
			matched = append(matched, item)
		}
	}
	if len(matched) >= minTopicMatches {
		return matched
	}
	return items
}

func containsAny(hay string, needles []string) bool {
	if hay == "" {
		return false
	}
	lower := strings.ToLower(hay)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
