package store

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"playmatch/pkg/domain"
)

func TestMatchFromDocValidates(t *testing.T) {
	doc := matchToDoc(domain.Match{
		ID: "match_1", User1ID: "user_a", User2ID: "user_b",
		Score: 72.5, Status: domain.MatchPending, CreatedAt: baseTime,
	})
	m, err := matchFromDoc(doc)
	if err != nil {
		t.Fatalf("valid doc rejected: %v", err)
	}
	if m.Reasons == nil {
		t.Fatalf("expected empty reasons slice, got nil")
	}

	doc.Status = "archived"
	if _, err := matchFromDoc(doc); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
	doc.Status = string(domain.MatchPending)
	doc.Score = 140
	if _, err := matchFromDoc(doc); err == nil {
		t.Fatalf("expected out-of-range score to be rejected")
	}
}

func TestUserDocWithoutProfileEncodesNull(t *testing.T) {
	raw, err := bson.Marshal(userToDoc(domain.User{ID: "user_a", Email: "a@example.com", CreatedAt: baseTime}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := m["gaming_profile"]; !ok || v != nil {
		t.Fatalf("expected explicit null gaming_profile, got %v", v)
	}
	if _, ok := m["avatar_key"]; ok {
		t.Fatalf("expected empty avatar key to be omitted")
	}

	var doc userDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode doc: %v", err)
	}
	u := userFromDoc(doc)
	if u.HasProfile() || u.Availability == nil {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestChatFromDocKeepsMessageOrder(t *testing.T) {
	chat := domain.Chat{ID: "chat_1", MatchID: "match_1", CreatedAt: baseTime, Messages: []domain.Message{
		{ID: "msg_1", SenderID: "user_a", Text: "first", Timestamp: baseTime},
		{ID: "msg_2", SenderID: "user_b", Text: "second", Timestamp: baseTime},
	}}
	got := chatFromDoc(chatToDoc(chat))
	if len(got.Messages) != 2 || got.Messages[0].ID != "msg_1" || got.Messages[1].Text != "second" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestRatingTotalsPipelineFiltersByRatedUser(t *testing.T) {
	p := ratingTotalsPipeline("user_c")
	if len(p) != 2 {
		t.Fatalf("expected match and group stages, got %d", len(p))
	}
	if p[0][0].Key != "$match" || p[1][0].Key != "$group" {
		t.Fatalf("unexpected stages: %v", p)
	}
	filter, ok := p[0][0].Value.(bson.M)
	if !ok || filter["rated_user_id"] != "user_c" {
		t.Fatalf("unexpected match stage: %v", p[0][0].Value)
	}
}

func TestPendingMatchFilterRequiresPending(t *testing.T) {
	f := pendingMatchFilter("match_1")
	if f["match_id"] != "match_1" || f["status"] != string(domain.MatchPending) {
		t.Fatalf("unexpected filter: %v", f)
	}
}

func TestPairFilterCoversBothSlotOrders(t *testing.T) {
	or, ok := pairFilter("user_a", "user_b")["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected two $or branches, got %v", or)
	}
	first, second := or[0].(bson.M), or[1].(bson.M)
	if first["user1_id"] != "user_a" || first["user2_id"] != "user_b" {
		t.Fatalf("unexpected first branch: %v", first)
	}
	if second["user1_id"] != "user_b" || second["user2_id"] != "user_a" {
		t.Fatalf("unexpected second branch: %v", second)
	}
}
