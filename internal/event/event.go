// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package event defines the interaction-event envelope shared by the
// publisher side (the CRUD/HTTP services) and this pipeline.
//
// Every message is a JSON object carrying a discriminant "type" field.
// "pre_" variants are intention events published at the moment a user
// acts, before derived foreign keys (post author, hashtag set) are
// known; the remaining variants are fully resolved and ready for
// aggregation or downstream consumption.
package event

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Type discriminates event variants on the wire.
type Type string

// Wire values for the "type" field.
const (
	TypePreAuthorWeight   Type = "pre_author_weight"
	TypeAuthorWeight      Type = "author_weight"
	TypePreHashtagsWeight Type = "pre_hashtags_weight"
	TypeHashtagsWeight    Type = "hashtags_weight"
	TypePreNewComment     Type = "pre_new_comment"
	TypeNewComment        Type = "new_comment"
	TypePreNewPost        Type = "pre_new_post"
	TypeNewPost           Type = "new_post"
	TypePreNewLike        Type = "pre_new_like"
	TypeNewLike           Type = "new_like"
	TypeNewSubscriber     Type = "new_subscriber"
)

// Like target object kinds for PreNewLike/NewLike.
const (
	ObjectPost    = "post"
	ObjectComment = "comment"
)

// Decode/validation failure classes. ErrUnknownType messages are acked
// and dropped (the publisher side may evolve faster than this consumer);
// ErrMalformed messages are poison and must never be retried.
var (
	ErrUnknownType = errors.New("unknown event type")
	ErrMalformed   = errors.New("malformed event")
)

// Event is the sealed union of all envelope variants.
type Event interface {
	// EventType returns the wire discriminant for the variant.
	EventType() Type

	// Validate checks required fields.
	Validate() error

	isEvent()
}

// PreAuthorWeight asks the relay to resolve a post's author and forward
// the weight delta as an AuthorWeight event.
type PreAuthorWeight struct {
	Type   Type      `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	PostID int64     `json:"post_id"`
	Weight int       `json:"weight"`
}

// AuthorWeight carries a resolved per-(user, author) weight delta.
type AuthorWeight struct {
	Type     Type      `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	AuthorID uuid.UUID `json:"author_id"`
	Weight   int       `json:"weight"`
}

// PreHashtagsWeight asks the relay to resolve a post's hashtag set and
// forward the weight delta as a HashtagsWeight event.
type PreHashtagsWeight struct {
	Type   Type      `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	PostID int64     `json:"post_id"`
	Weight int       `json:"weight"`
}

// HashtagsWeight carries a resolved weight delta applied independently
// to each hashtag id in the list.
type HashtagsWeight struct {
	Type       Type      `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	HashtagIDs []int64   `json:"hashtags_ids"`
	Weight     int       `json:"weight"`
}

// PreNewComment asks the relay to resolve the commented post's author.
type PreNewComment struct {
	Type      Type      `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	PostID    int64     `json:"post_id"`
	CommentID int64     `json:"comment_id"`
}

// NewComment notifies downstream services that a comment was created.
type NewComment struct {
	Type      Type      `json:"type"`
	AuthorID  uuid.UUID `json:"author_id"`
	PostID    int64     `json:"post_id"`
	CommentID int64     `json:"comment_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// PreNewPost asks the relay to resolve the author's subscriber list.
type PreNewPost struct {
	Type     Type      `json:"type"`
	PostID   int64     `json:"post_id"`
	AuthorID uuid.UUID `json:"author_id"`
}

// NewPost notifies downstream services that a post was published,
// carrying the author's subscribers for fan-out delivery.
type NewPost struct {
	Type           Type        `json:"type"`
	PostID         int64       `json:"post_id"`
	AuthorID       uuid.UUID   `json:"author_id"`
	SubscribersIDs []uuid.UUID `json:"subscribers_ids"`
}

// PreNewLike asks the relay to resolve the liked object's author.
// Exactly one of PostID/CommentID is set, selected by TypeObject.
type PreNewLike struct {
	Type       Type      `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	TypeObject string    `json:"type_object"`
	PostID     *int64    `json:"post_id,omitempty"`
	CommentID  *int64    `json:"comment_id,omitempty"`
}

// NewLike notifies downstream services that a like was placed.
type NewLike struct {
	Type       Type      `json:"type"`
	TypeObject string    `json:"type_object"`
	UserID     uuid.UUID `json:"user_id"`
	PostID     int64     `json:"post_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	CommentID  *int64    `json:"comment_id,omitempty"`
}

// NewSubscriber notifies downstream services about a new subscription.
type NewSubscriber struct {
	Type         Type      `json:"type"`
	AuthorID     uuid.UUID `json:"author_id"`
	SubscriberID uuid.UUID `json:"subscriber_id"`
}

func (PreAuthorWeight) EventType() Type   { return TypePreAuthorWeight }
func (AuthorWeight) EventType() Type      { return TypeAuthorWeight }
func (PreHashtagsWeight) EventType() Type { return TypePreHashtagsWeight }
func (HashtagsWeight) EventType() Type    { return TypeHashtagsWeight }
func (PreNewComment) EventType() Type     { return TypePreNewComment }
func (NewComment) EventType() Type        { return TypeNewComment }
func (PreNewPost) EventType() Type        { return TypePreNewPost }
func (NewPost) EventType() Type           { return TypeNewPost }
func (PreNewLike) EventType() Type        { return TypePreNewLike }
func (NewLike) EventType() Type           { return TypeNewLike }
func (NewSubscriber) EventType() Type     { return TypeNewSubscriber }

func (PreAuthorWeight) isEvent()   {}
func (AuthorWeight) isEvent()      {}
func (PreHashtagsWeight) isEvent() {}
func (HashtagsWeight) isEvent()    {}
func (PreNewComment) isEvent()     {}
func (NewComment) isEvent()        {}
func (PreNewPost) isEvent()        {}
func (NewPost) isEvent()           {}
func (PreNewLike) isEvent()        {}
func (NewLike) isEvent()           {}
func (NewSubscriber) isEvent()     {}

// Validate checks required fields and returns an error if validation fails.
func (e PreAuthorWeight) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id: required", ErrMalformed)
	}
	if e.PostID <= 0 {
		return fmt.Errorf("%w: post_id: required", ErrMalformed)
	}
	return nil
}

func (e AuthorWeight) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id: required", ErrMalformed)
	}
	if e.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: author_id: required", ErrMalformed)
	}
	return nil
}

func (e PreHashtagsWeight) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id: required", ErrMalformed)
	}
	if e.PostID <= 0 {
		return fmt.Errorf("%w: post_id: required", ErrMalformed)
	}
	return nil
}

func (e HashtagsWeight) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id: required", ErrMalformed)
	}
	if len(e.HashtagIDs) == 0 {
		return fmt.Errorf("%w: hashtags_ids: required", ErrMalformed)
	}
	return nil
}

func (e PreNewComment) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id: required", ErrMalformed)
	}
	if e.PostID <= 0 {
		return fmt.Errorf("%w: post_id: required", ErrMalformed)
	}
	if e.CommentID <= 0 {
		return fmt.Errorf("%w: comment_id: required", ErrMalformed)
	}
	return nil
}

func (e NewComment) Validate() error {
	if e.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: author_id: required", ErrMalformed)
	}
	if e.PostID <= 0 {
		return fmt.Errorf("%w: post_id: required", ErrMalformed)
	}
	if e.CommentID <= 0 {
		return fmt.Errorf("%w: comment_id: required", ErrMalformed)
	}
	return nil
}

func (e PreNewPost) Validate() error {
	if e.PostID <= 0 {
		return fmt.Errorf("%w: post_id: required", ErrMalformed)
	}
	if e.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: author_id: required", ErrMalformed)
	}
	return nil
}

func (e NewPost) Validate() error {
	if e.PostID <= 0 {
		return fmt.Errorf("%w: post_id: required", ErrMalformed)
	}
	if e.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: author_id: required", ErrMalformed)
	}
	return nil
}

func (e PreNewLike) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id: required", ErrMalformed)
	}
	switch e.TypeObject {
	case ObjectPost:
		if e.PostID == nil || *e.PostID <= 0 {
			return fmt.Errorf("%w: post_id: required for type_object=post", ErrMalformed)
		}
	case ObjectComment:
		if e.CommentID == nil || *e.CommentID <= 0 {
			return fmt.Errorf("%w: comment_id: required for type_object=comment", ErrMalformed)
		}
	default:
		return fmt.Errorf("%w: type_object: must be post or comment", ErrMalformed)
	}
	return nil
}

func (e NewLike) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id: required", ErrMalformed)
	}
	if e.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: author_id: required", ErrMalformed)
	}
	return nil
}

func (e NewSubscriber) Validate() error {
	if e.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: author_id: required", ErrMalformed)
	}
	if e.SubscriberID == uuid.Nil {
		return fmt.Errorf("%w: subscriber_id: required", ErrMalformed)
	}
	return nil
}

// envelope peeks at the discriminant before full decoding.
type envelope struct {
	Type Type `json:"type"`
}

// Decode parses a raw message body into its typed variant.
//
// Unknown discriminants return ErrUnknownType; everything else that
// fails to parse or validate returns an error wrapping ErrMalformed.
func Decode(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var ev Event
	switch env.Type {
	case TypePreAuthorWeight:
		ev = decodeInto[PreAuthorWeight](body)
	case TypeAuthorWeight:
		ev = decodeInto[AuthorWeight](body)
	case TypePreHashtagsWeight:
		ev = decodeInto[PreHashtagsWeight](body)
	case TypeHashtagsWeight:
		ev = decodeInto[HashtagsWeight](body)
	case TypePreNewComment:
		ev = decodeInto[PreNewComment](body)
	case TypeNewComment:
		ev = decodeInto[NewComment](body)
	case TypePreNewPost:
		ev = decodeInto[PreNewPost](body)
	case TypeNewPost:
		ev = decodeInto[NewPost](body)
	case TypePreNewLike:
		ev = decodeInto[PreNewLike](body)
	case TypeNewLike:
		ev = decodeInto[NewLike](body)
	case TypeNewSubscriber:
		ev = decodeInto[NewSubscriber](body)
	case "":
		return nil, fmt.Errorf("%w: type: required", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if ev == nil {
		return nil, fmt.Errorf("%w: invalid %s payload", ErrMalformed, env.Type)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

// decodeInto unmarshals body into T, returning nil on parse failure.
func decodeInto[T Event](body []byte) Event {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	return v
}

// Marshal serializes an event, stamping the discriminant from the
// variant so callers cannot publish a mismatched type field.
func Marshal(ev Event) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	// Re-stamp the type field. Variant structs carry Type for wire
	// compatibility but the discriminant is authoritative.
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	t, err := json.Marshal(ev.EventType())
	if err != nil {
		return nil, err
	}
	m["type"] = t
	return json.Marshal(m)
}
