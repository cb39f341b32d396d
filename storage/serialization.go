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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/storyowl/storyowl/core"
)

// MUS serializers for the domain records. Fields are written in struct
// order; adding a field means appending it here and bumping nothing, since
// records are rewritten wholesale on upsert. Timestamps are stored as Unix
// microseconds, with 0 meaning the zero time.

var (
	stringSliceSer  = ord.NewSliceSer[string](ord.String)
	float32SliceSer = ord.NewSliceSer[float32](raw.Float32)
	summarySliceSer = ord.NewSliceSer[core.ItemSummary](itemSummarySer{})
)

func marshalTime(t time.Time, bs []byte) int {
	var us int64
	if !t.IsZero() {
		us = t.UnixMicro()
	}
	return varint.Int64.Marshal(us, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || us == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var us int64
	if !t.IsZero() {
		us = t.UnixMicro()
	}
	return varint.Int64.Size(us)
}

// itemSer serializes core.Item.
type itemSer struct{}

// ItemMUS is the MUS serializer for core.Item.
var ItemMUS = itemSer{}

func (itemSer) Marshal(v core.Item, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.SourceId, bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += stringSliceSer.Marshal(v.Authors, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += stringSliceSer.Marshal(v.Tags, bs[n:])
	n += varint.Int.Marshal(v.AgeMin, bs[n:])
	n += varint.Int.Marshal(v.AgeMax, bs[n:])
	n += ord.String.Marshal(v.Thumb, bs[n:])
	n += ord.String.Marshal(v.Link, bs[n:])
	n += float32SliceSer.Marshal(v.Vector, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (itemSer) Unmarshal(bs []byte) (v core.Item, n int, err error) {
	var (
		n1   int
		id   uint64
		kind int
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = core.ID(id)
	if v.SourceId, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if kind, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	v.Kind = core.Kind(kind)
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Authors, n1, err = stringSliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Description, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Tags, n1, err = stringSliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.AgeMin, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.AgeMax, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Thumb, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Link, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Vector, n1, err = float32SliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.InsertedAt, n1, err = unmarshalTime(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); chk(&n, n1, err) {
		return
	}
	return
}

func (itemSer) Size(v core.Item) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.SourceId)
	size += varint.Int.Size(int(v.Kind))
	size += ord.String.Size(v.Title)
	size += stringSliceSer.Size(v.Authors)
	size += ord.String.Size(v.Description)
	size += stringSliceSer.Size(v.Tags)
	size += varint.Int.Size(v.AgeMin)
	size += varint.Int.Size(v.AgeMax)
	size += ord.String.Size(v.Thumb)
	size += ord.String.Size(v.Link)
	size += float32SliceSer.Size(v.Vector)
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return
}

func (s itemSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// profileSer serializes core.UserProfile.
type profileSer struct{}

// ProfileMUS is the MUS serializer for core.UserProfile.
var ProfileMUS = profileSer{}

func (profileSer) Marshal(v core.UserProfile, bs []byte) (n int) {
	n = ord.String.Marshal(v.UserId, bs)
	n += varint.Int.Marshal(int(v.Role), bs[n:])
	n += stringSliceSer.Marshal(v.Interests, bs[n:])
	n += stringSliceSer.Marshal(v.Restrictions, bs[n:])
	n += varint.Int.Marshal(v.Age, bs[n:])
	n += float32SliceSer.Marshal(v.Vector, bs[n:])
	n += varint.Int.Marshal(v.FavouriteCount, bs[n:])
	n += varint.Int.Marshal(v.ActivityCount, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (profileSer) Unmarshal(bs []byte) (v core.UserProfile, n int, err error) {
	var (
		n1   int
		role int
	)
	v.UserId, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	if role, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	v.Role = core.Role(role)
	if v.Interests, n1, err = stringSliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Restrictions, n1, err = stringSliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Age, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Vector, n1, err = float32SliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.FavouriteCount, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.ActivityCount, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); chk(&n, n1, err) {
		return
	}
	return
}

func (profileSer) Size(v core.UserProfile) (size int) {
	size = ord.String.Size(v.UserId)
	size += varint.Int.Size(int(v.Role))
	size += stringSliceSer.Size(v.Interests)
	size += stringSliceSer.Size(v.Restrictions)
	size += varint.Int.Size(v.Age)
	size += float32SliceSer.Size(v.Vector)
	size += varint.Int.Size(v.FavouriteCount)
	size += varint.Int.Size(v.ActivityCount)
	size += sizeTime(v.UpdatedAt)
	return
}

func (s profileSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// itemSummarySer serializes core.ItemSummary.
type itemSummarySer struct{}

func (itemSummarySer) Marshal(v core.ItemSummary, bs []byte) (n int) {
	n = ord.String.Marshal(v.SourceId, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Thumb, bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	return
}

func (itemSummarySer) Unmarshal(bs []byte) (v core.ItemSummary, n int, err error) {
	var (
		n1   int
		kind int
	)
	v.SourceId, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.Thumb, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if kind, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	v.Kind = core.Kind(kind)
	return
}

func (itemSummarySer) Size(v core.ItemSummary) (size int) {
	size = ord.String.Size(v.SourceId)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Thumb)
	size += varint.Int.Size(int(v.Kind))
	return
}

func (s itemSummarySer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// stateSer serializes core.ContinuationState.
type stateSer struct{}

// StateMUS is the MUS serializer for core.ContinuationState.
var StateMUS = stateSer{}

func (stateSer) Marshal(v core.ContinuationState, bs []byte) (n int) {
	n = ord.String.Marshal(v.UserKey, bs)
	n += ord.String.Marshal(v.SessionKey, bs[n:])
	n += varint.Int.Marshal(int(v.Strategy), bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.SeedQuery, bs[n:])
	n += ord.String.Marshal(v.SeedTitle, bs[n:])
	n += summarySliceSer.Marshal(v.LastItems, bs[n:])
	n += varint.Int.Marshal(v.NextOffset, bs[n:])
	n += ord.String.Marshal(v.PageToken, bs[n:])
	n += stringSliceSer.Marshal(v.SeenIds, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (stateSer) Unmarshal(bs []byte) (v core.ContinuationState, n int, err error) {
	var (
		n1       int
		strategy int
		kind     int
	)
	v.UserKey, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	if v.SessionKey, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if strategy, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	v.Strategy = core.Strategy(strategy)
	if kind, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	v.Kind = core.Kind(kind)
	if v.Category, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.SeedQuery, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.SeedTitle, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.LastItems, n1, err = summarySliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.NextOffset, n1, err = varint.Int.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.PageToken, n1, err = ord.String.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.SeenIds, n1, err = stringSliceSer.Unmarshal(bs[n:]); chk(&n, n1, err) {
		return
	}
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); chk(&n, n1, err) {
		return
	}
	return
}

func (stateSer) Size(v core.ContinuationState) (size int) {
	size = ord.String.Size(v.UserKey)
	size += ord.String.Size(v.SessionKey)
	size += varint.Int.Size(int(v.Strategy))
	size += varint.Int.Size(int(v.Kind))
	size += ord.String.Size(v.Category)
	size += ord.String.Size(v.SeedQuery)
	size += ord.String.Size(v.SeedTitle)
	size += summarySliceSer.Size(v.LastItems)
	size += varint.Int.Size(v.NextOffset)
	size += ord.String.Size(v.PageToken)
	size += stringSliceSer.Size(v.SeenIds)
	size += sizeTime(v.UpdatedAt)
	return
}

func (s stateSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// chk accumulates the field byte count and reports whether decoding should
// stop.
func chk(n *int, n1 int, err error) bool {
	*n += n1
	return err != nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	return core.ID(id), err
}

// MarshalItem serializes an Item to bytes.
func MarshalItem(item *core.Item) []byte {
	buf := make([]byte, ItemMUS.Size(*item))
	ItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalItem deserializes an Item from bytes.
func UnmarshalItem(data []byte) (*core.Item, error) {
	item, _, err := ItemMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &item, nil
}

// MarshalProfile serializes a UserProfile to bytes.
func MarshalProfile(profile *core.UserProfile) []byte {
	buf := make([]byte, ProfileMUS.Size(*profile))
	ProfileMUS.Marshal(*profile, buf)
	return buf
}

// UnmarshalProfile deserializes a UserProfile from bytes.
func UnmarshalProfile(data []byte) (*core.UserProfile, error) {
	profile, _, err := ProfileMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &profile, nil
}

// MarshalState serializes a ContinuationState to bytes.
func MarshalState(state *core.ContinuationState) []byte {
	buf := make([]byte, StateMUS.Size(*state))
	StateMUS.Marshal(*state, buf)
	return buf
}

// UnmarshalState deserializes a ContinuationState from bytes.
func UnmarshalState(data []byte) (*core.ContinuationState, error) {
	state, _, err := StateMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &state, nil
}
