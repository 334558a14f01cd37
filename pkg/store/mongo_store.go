package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"playmatch/pkg/domain"
)

const (
	colUsers    = "users"
	colSessions = "user_sessions"
	colMatches  = "matches"
	colChats    = "chats"
	colRatings  = "ratings"
)

// MongoStore implements Store and SessionStore on MongoDB. Each write touches
// a single document; AcceptMatch is therefore two writes.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects, pings and ensures the unique indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	indexes := map[string][]mongo.IndexModel{
		colUsers:    {unique(bson.D{{Key: "user_id", Value: 1}}), unique(bson.D{{Key: "email", Value: 1}})},
		colSessions: {unique(bson.D{{Key: "session_token", Value: 1}})},
		colMatches: {
			unique(bson.D{{Key: "match_id", Value: 1}}),
			{Keys: bson.D{{Key: "user1_id", Value: 1}, {Key: "user2_id", Value: 1}}},
		},
		colChats:   {unique(bson.D{{Key: "chat_id", Value: 1}}), unique(bson.D{{Key: "match_id", Value: 1}})},
		colRatings: {{Keys: bson.D{{Key: "rated_user_id", Value: 1}}}},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", col, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SaveUser upserts a user document by user_id.
func (s *MongoStore) SaveUser(ctx context.Context, u domain.User) error {
	doc := userToDoc(u)
	_, err := s.db.Collection(colUsers).ReplaceOne(ctx,
		bson.M{"user_id": u.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// GetUserByID returns a user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	return s.findUser(ctx, bson.M{"user_id": id})
}

// GetUserByEmail looks up a user by email.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (domain.User, bool, error) {
	var doc userDoc
	if err := s.db.Collection(colUsers).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromDoc(doc), true, nil
}

// UpdateProfile replaces the gaming profile and availability of a user.
func (s *MongoStore) UpdateProfile(ctx context.Context, userID string, profile domain.GamingProfile, schedule domain.AvailabilitySchedule) error {
	return s.setUserFields(ctx, userID, bson.M{
		"gaming_profile":        profile,
		"availability_schedule": scheduleOrEmpty(schedule),
	})
}

// SetAvatarKey records the object key of a user's avatar.
func (s *MongoStore) SetAvatarKey(ctx context.Context, userID, key string) error {
	return s.setUserFields(ctx, userID, bson.M{"avatar_key": key})
}

func (s *MongoStore) setUserFields(ctx context.Context, userID string, fields bson.M) error {
	res, err := s.db.Collection(colUsers).UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// ListCandidates returns profiled users other than excludeID, oldest first.
func (s *MongoStore) ListCandidates(ctx context.Context, excludeID string, limit int) ([]domain.User, error) {
	filter := bson.M{
		"user_id":        bson.M{"$ne": excludeID},
		"gaming_profile": bson.M{"$ne": nil},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.db.Collection(colUsers).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		res = append(res, userFromDoc(d))
	}
	return res, nil
}

// SaveMatch inserts a match document.
func (s *MongoStore) SaveMatch(ctx context.Context, m domain.Match) error {
	_, err := s.db.Collection(colMatches).ReplaceOne(ctx,
		bson.M{"match_id": m.ID}, matchToDoc(m), options.Replace().SetUpsert(true))
	return err
}

// GetMatch retrieves a match by ID.
func (s *MongoStore) GetMatch(ctx context.Context, id string) (domain.Match, bool, error) {
	return s.findMatch(ctx, bson.M{"match_id": id}, options.FindOne())
}

// MatchesBetween returns every match for the pair in either slot order, oldest first.
func (s *MongoStore) MatchesBetween(ctx context.Context, a, b string) ([]domain.Match, error) {
	cur, err := s.db.Collection(colMatches).Find(ctx, pairFilter(a, b), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []matchDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Match, 0, len(docs))
	for _, doc := range docs {
		m, err := matchFromDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *MongoStore) findMatch(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (domain.Match, bool, error) {
	var doc matchDoc
	if err := s.db.Collection(colMatches).FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Match{}, false, nil
		}
		return domain.Match{}, false, err
	}
	m, err := matchFromDoc(doc)
	if err != nil {
		return domain.Match{}, false, err
	}
	return m, true, nil
}

// SetMatchStatus moves a pending match to status. The pending condition is
// part of the update filter so concurrent decisions cannot both apply.
func (s *MongoStore) SetMatchStatus(ctx context.Context, id string, status domain.MatchStatus) error {
	col := s.db.Collection(colMatches)
	res, err := col.UpdateOne(ctx,
		pendingMatchFilter(id),
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := col.CountDocuments(ctx, bson.M{"match_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("set match status %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("set match status %s: %w", id, ErrNotPending)
}

// AcceptMatch sets the status, then creates the chat. A failure between the
// two writes leaves an accepted match without a chat.
func (s *MongoStore) AcceptMatch(ctx context.Context, matchID string, chat domain.Chat) error {
	if err := s.SetMatchStatus(ctx, matchID, domain.MatchAccepted); err != nil {
		return err
	}
	_, err := s.EnsureChat(ctx, chat)
	return err
}

// EnsureChat inserts chat unless its match already has one.
func (s *MongoStore) EnsureChat(ctx context.Context, chat domain.Chat) (domain.Chat, error) {
	col := s.db.Collection(colChats)
	_, err := col.UpdateOne(ctx,
		bson.M{"match_id": chat.MatchID},
		bson.M{"$setOnInsert": chatToDoc(chat)},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return domain.Chat{}, err
	}
	stored, ok, err := s.GetChatByMatch(ctx, chat.MatchID)
	if err != nil {
		return domain.Chat{}, err
	}
	if !ok {
		return domain.Chat{}, fmt.Errorf("ensure chat for %s: %w", chat.MatchID, ErrNotFound)
	}
	return stored, nil
}

// GetChatByMatch returns the chat attached to a match.
func (s *MongoStore) GetChatByMatch(ctx context.Context, matchID string) (domain.Chat, bool, error) {
	var doc chatDoc
	if err := s.db.Collection(colChats).FindOne(ctx, bson.M{"match_id": matchID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Chat{}, false, nil
		}
		return domain.Chat{}, false, err
	}
	return chatFromDoc(doc), true, nil
}

// AppendMessage pushes msg onto the chat's message array.
func (s *MongoStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) error {
	res, err := s.db.Collection(colChats).UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$push": bson.M{"messages": messageToDoc(msg)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("append message %s: %w", chatID, ErrNotFound)
	}
	return nil
}

// SaveRating inserts a rating document.
func (s *MongoStore) SaveRating(ctx context.Context, r domain.Rating) error {
	_, err := s.db.Collection(colRatings).InsertOne(ctx, ratingToDoc(r))
	return err
}

// RatingTotals sums every rating received by userID server-side.
func (s *MongoStore) RatingTotals(ctx context.Context, userID string) (domain.RatingTotals, error) {
	cur, err := s.db.Collection(colRatings).Aggregate(ctx, ratingTotalsPipeline(userID))
	if err != nil {
		return domain.RatingTotals{}, err
	}
	var rows []ratingTotalsDoc
	if err := cur.All(ctx, &rows); err != nil {
		return domain.RatingTotals{}, err
	}
	if len(rows) == 0 {
		return domain.RatingTotals{}, nil
	}
	return domain.RatingTotals{
		Count:         rows[0].Count,
		Communication: rows[0].Communication,
		Respect:       rows[0].Respect,
		Teamwork:      rows[0].Teamwork,
	}, nil
}

// pairFilter matches a pair in either slot order.
func pairFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"user1_id": a, "user2_id": b},
		bson.M{"user1_id": b, "user2_id": a},
	}}
}

func pendingMatchFilter(id string) bson.M {
	return bson.M{"match_id": id, "status": string(domain.MatchPending)}
}

func ratingTotalsPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"rated_user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"count":         bson.M{"$sum": 1},
			"communication": bson.M{"$sum": "$communication"},
			"respect":       bson.M{"$sum": "$respect"},
			"teamwork":      bson.M{"$sum": "$teamwork"},
		}}},
	}
}

// SaveSession inserts a session document.
func (s *MongoStore) SaveSession(ctx context.Context, sess domain.Session) error {
	_, err := s.db.Collection(colSessions).InsertOne(ctx, sessionToDoc(sess))
	return err
}

// GetSession resolves a token to its session record.
func (s *MongoStore) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	var doc sessionDoc
	if err := s.db.Collection(colSessions).FindOne(ctx, bson.M{"session_token": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, err
	}
	return sessionFromDoc(doc), true, nil
}

// DeleteSession removes a session document.
func (s *MongoStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.Collection(colSessions).DeleteOne(ctx, bson.M{"session_token": token})
	return err
}
