// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package event

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestDecodePreAuthorWeight(t *testing.T) {
	userID := uuid.New()
	body := []byte(`{"type":"pre_author_weight","user_id":"` + userID.String() + `","post_id":42,"weight":1}`)

	ev, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	pre, ok := ev.(PreAuthorWeight)
	if !ok {
		t.Fatalf("Decode() returned %T, want PreAuthorWeight", ev)
	}
	if pre.UserID != userID {
		t.Errorf("UserID = %s, want %s", pre.UserID, userID)
	}
	if pre.PostID != 42 {
		t.Errorf("PostID = %d, want 42", pre.PostID)
	}
	if pre.Weight != 1 {
		t.Errorf("Weight = %d, want 1", pre.Weight)
	}
}

func TestDecodeHashtagsWeightCarriesIDList(t *testing.T) {
	userID := uuid.New()
	body := []byte(`{"type":"hashtags_weight","user_id":"` + userID.String() + `","hashtags_ids":[1,2,3],"weight":-1}`)

	ev, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	hw, ok := ev.(HashtagsWeight)
	if !ok {
		t.Fatalf("Decode() returned %T, want HashtagsWeight", ev)
	}
	if len(hw.HashtagIDs) != 3 {
		t.Errorf("HashtagIDs = %v, want 3 ids", hw.HashtagIDs)
	}
	if hw.Weight != -1 {
		t.Errorf("Weight = %d, want -1", hw.Weight)
	}
}

func TestDecodeErrors(t *testing.T) {
	userID := uuid.New().String()

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "unknown type is forward-compatible",
			body:    `{"type":"post_archived","post_id":1}`,
			wantErr: ErrUnknownType,
		},
		{
			name:    "missing type",
			body:    `{"post_id":1}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "invalid json",
			body:    `{"type":`,
			wantErr: ErrMalformed,
		},
		{
			name:    "wrong field type",
			body:    `{"type":"pre_author_weight","user_id":"` + userID + `","post_id":"not-a-number"}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "missing user id",
			body:    `{"type":"pre_author_weight","post_id":7,"weight":1}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "like without target",
			body:    `{"type":"pre_new_like","user_id":"` + userID + `","type_object":"post"}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "like with bad object kind",
			body:    `{"type":"pre_new_like","user_id":"` + userID + `","type_object":"reaction","post_id":1}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "hashtags weight with empty id list",
			body:    `{"type":"hashtags_weight","user_id":"` + userID + `","hashtags_ids":[],"weight":1}`,
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodePreNewLikeVariants(t *testing.T) {
	userID := uuid.New()

	postBody := []byte(`{"type":"pre_new_like","user_id":"` + userID.String() + `","type_object":"post","post_id":5}`)
	ev, err := Decode(postBody)
	if err != nil {
		t.Fatalf("Decode(post like) error = %v", err)
	}
	like := ev.(PreNewLike)
	if like.TypeObject != ObjectPost || like.PostID == nil || *like.PostID != 5 {
		t.Errorf("unexpected post like: %+v", like)
	}

	commentBody := []byte(`{"type":"pre_new_like","user_id":"` + userID.String() + `","type_object":"comment","comment_id":9}`)
	ev, err = Decode(commentBody)
	if err != nil {
		t.Fatalf("Decode(comment like) error = %v", err)
	}
	like = ev.(PreNewLike)
	if like.TypeObject != ObjectComment || like.CommentID == nil || *like.CommentID != 9 {
		t.Errorf("unexpected comment like: %+v", like)
	}
}

func TestMarshalStampsType(t *testing.T) {
	// Type deliberately left empty; Marshal must stamp it.
	ev := AuthorWeight{
		UserID:   uuid.New(),
		AuthorID: uuid.New(),
		Weight:   100,
	}

	body, err := Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(body), `"type":"author_weight"`) {
		t.Errorf("expected stamped type, got %s", body)
	}

	decoded, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode(Marshal()) error = %v", err)
	}
	round, ok := decoded.(AuthorWeight)
	if !ok {
		t.Fatalf("round trip returned %T", decoded)
	}
	if round.Weight != 100 || round.UserID != ev.UserID {
		t.Errorf("round trip mismatch: %+v", round)
	}
}

func TestMarshalRejectsInvalid(t *testing.T) {
	_, err := Marshal(AuthorWeight{Weight: 1})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Marshal(invalid) error = %v, want ErrMalformed", err)
	}
}

func TestNewPostSubscribersRoundTrip(t *testing.T) {
	subs := []uuid.UUID{uuid.New(), uuid.New()}
	ev := NewPost{PostID: 3, AuthorID: uuid.New(), SubscribersIDs: subs}

	body, err := Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := raw["subscribers_ids"]; !ok {
		t.Error("expected subscribers_ids on the wire")
	}

	decoded, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := decoded.(NewPost); len(got.SubscribersIDs) != 2 {
		t.Errorf("SubscribersIDs = %v, want 2 entries", got.SubscribersIDs)
	}
}
