package store

import (
	"context"
	"fmt"
	"hotelscore/internal/score"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	rulesCollection     = "rules"
	shortlistCollection = "shortlist"
)

// ruleDocument is the stored shape of a rule. The kind is not a field of its
// own: a rule carries exactly one of scoreHotel or scoreCountry.
//
//	{"scoreHotel": 5, "active": true}
type ruleDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ScoreHotel   *float64           `bson:"scoreHotel,omitempty"`
	ScoreCountry *float64           `bson:"scoreCountry,omitempty"`
	Active       bool               `bson:"active"`
}

// rule converts the document; ok is false for documents with no score field.
func (d ruleDocument) rule() (r score.Rule, ok bool) {
	switch {
	case d.ScoreHotel != nil:
		return score.Rule{Kind: score.Hotel, Value: *d.ScoreHotel, Active: d.Active}, true
	case d.ScoreCountry != nil:
		return score.Rule{Kind: score.Country, Value: *d.ScoreCountry, Active: d.Active}, true
	}
	return score.Rule{}, false
}

func newRuleDocument(r score.Rule) ruleDocument {
	v := r.Value
	doc := ruleDocument{Active: r.Active}
	switch r.Kind {
	case score.Hotel:
		doc.ScoreHotel = &v
	case score.Country:
		doc.ScoreCountry = &v
	}
	return doc
}

// shortlistDocument is the stored shape of a shortlist entry: {"type": "hotel", "id": 1001}.
type shortlistDocument struct {
	Type string `bson:"type"`
	ID   int64  `bson:"id"`
}

// MongoStore keeps rules and shortlist in two MongoDB collections.
type MongoStore struct {
	client    *mongo.Client
	rules     *mongo.Collection
	shortlist *mongo.Collection
}

// ActiveRules returns active rules sorted by _id, which follows insertion order.
func (s *MongoStore) ActiveRules(ctx context.Context) ([]score.Rule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.rules.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, score.NewStoreUnavailableError("rules.active", err)
	}
	defer cursor.Close(ctx)

	var docs []ruleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, score.NewStoreUnavailableError("rules.active", err)
	}

	rules := make([]score.Rule, 0, len(docs))
	for _, d := range docs {
		if r, ok := d.rule(); ok {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

func (s *MongoStore) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.rules.CountDocuments(ctx, bson.M{}, options.Count().SetLimit(1))
	if err != nil {
		return false, score.NewStoreUnavailableError("rules.empty", err)
	}
	return n == 0, nil
}

func (s *MongoStore) InsertRules(ctx context.Context, rules []score.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	docs := make([]any, 0, len(rules))
	for _, r := range rules {
		docs = append(docs, newRuleDocument(r))
	}
	if _, err := s.rules.InsertMany(ctx, docs); err != nil {
		return score.NewStoreUnavailableError("rules.insert", err)
	}
	return nil
}

// SetActive updates the first document carrying the kind's score field.
func (s *MongoStore) SetActive(ctx context.Context, kind score.ItemKind, active bool) (bool, error) {
	return s.update(ctx, "rules.set_active", kind, bson.M{"active": active})
}

func (s *MongoStore) SetValue(ctx context.Context, kind score.ItemKind, value float64) (bool, error) {
	return s.update(ctx, "rules.set_value", kind, bson.M{kind.ScoreField(): value})
}

func (s *MongoStore) update(ctx context.Context, op string, kind score.ItemKind, set bson.M) (bool, error) {
	filter := bson.M{kind.ScoreField(): bson.M{"$exists": true}}
	res, err := s.rules.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, score.NewStoreUnavailableError(op, err)
	}
	return res.MatchedCount > 0, nil
}

// Membership fetches the matching entries of both kinds with one $or query.
func (s *MongoStore) Membership(ctx context.Context, hotelID, countryID int64) (score.Membership, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"type": score.Hotel.String(), "id": hotelID},
		bson.M{"type": score.Country.String(), "id": countryID},
	}}
	cursor, err := s.shortlist.Find(ctx, filter)
	if err != nil {
		return score.Membership{}, score.NewStoreUnavailableError("shortlist.membership", err)
	}
	defer cursor.Close(ctx)

	var docs []shortlistDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return score.Membership{}, score.NewStoreUnavailableError("shortlist.membership", err)
	}

	var m score.Membership
	for _, d := range docs {
		switch d.Type {
		case score.Hotel.String():
			m.ByID = m.ByID || d.ID == hotelID
		case score.Country.String():
			m.ByCountry = m.ByCountry || d.ID == countryID
		}
	}
	return m, nil
}

func (s *MongoStore) InsertEntries(ctx context.Context, entries []score.ShortlistEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, shortlistDocument{Type: e.Kind.String(), ID: e.ID})
	}
	if _, err := s.shortlist.InsertMany(ctx, docs); err != nil {
		return score.NewStoreUnavailableError("shortlist.insert", err)
	}
	return nil
}

// Shortlisted returns the distinct IDs of kind in ascending order.
func (s *MongoStore) Shortlisted(ctx context.Context, kind score.ItemKind) ([]int64, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := s.shortlist.Find(ctx, bson.M{"type": kind.String()}, opts)
	if err != nil {
		return nil, score.NewStoreUnavailableError("shortlist.list", err)
	}
	defer cursor.Close(ctx)

	var docs []shortlistDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, score.NewStoreUnavailableError("shortlist.list", err)
	}

	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		if n := len(ids); n > 0 && ids[n-1] == d.ID {
			continue
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// NewMongoStore uses the rules and shortlist collections of db.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client:    client,
		rules:     db.Collection(rulesCollection),
		shortlist: db.Collection(shortlistCollection),
	}
}

// ConnectMongo creates a client for uri and pings it. Only a malformed uri is
// an error: the driver reconnects on its own, so an unreachable server is
// logged and the store is returned anyway.
// timeout bounds every subsequent operation of the client.
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		slog.Warn("MongoDB is unreachable, will retry on demand", "error", err)
	}
	return NewMongoStore(client, database), nil
}
