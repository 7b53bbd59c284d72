package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultDatabase = "pmxbot"

type logEntry struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	Datetime time.Time     `bson:"datetime"`
	Channel  string        `bson:"channel"`
	Nick     string        `bson:"nick"`
	Message  string        `bson:"message"`
}

// Mongo keeps the message log in the "logs" collection of a MongoDB database.
type Mongo struct {
	client *mongo.Client
	logs   *mongo.Collection
	now    func() time.Time
}

// OpenMongo connects to uri. The database is taken from the uri path and defaults to "pmxbot".
func OpenMongo(ctx context.Context, uri string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logs := client.Database(databaseName(uri)).Collection("logs")

	_, err = logs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "channel", Value: 1}, {Key: "nick", Value: 1}, {Key: "datetime", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create log index: %w", err)
	}

	return &Mongo{client: client, logs: logs, now: time.Now}, nil
}

func databaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabase
	}

	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}

	return defaultDatabase
}

func (m *Mongo) Message(ctx context.Context, channel, nick, text string) error {
	_, err := m.logs.InsertOne(ctx, logEntry{
		Datetime: m.now().UTC(),
		Channel:  channel,
		Nick:     nick,
		Message:  text,
	})
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}

	return nil
}

func (m *Mongo) LastSeen(ctx context.Context, nick string) (domain.Seen, bool, error) {
	var entry logEntry

	err := m.logs.FindOne(ctx, nickFilter(nick), options.FindOne().SetSort(newestFirst)).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Seen{}, false, nil
	}
	if err != nil {
		return domain.Seen{}, false, fmt.Errorf("failed to query last seen: %w", err)
	}

	return domain.Seen{Nick: entry.Nick, Channel: entry.Channel, Time: entry.Datetime}, true, nil
}

func (m *Mongo) Strike(ctx context.Context, channel, nick string, count int) (int, error) {
	cursor, err := m.logs.Find(ctx, strikeFilter(channel, nick), strikeOptions(count))
	if err != nil {
		return 0, fmt.Errorf("failed to find messages to strike: %w", err)
	}

	var entries []logEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return 0, fmt.Errorf("failed to read messages to strike: %w", err)
	}

	ids := entryIDs(entries)
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := m.logs.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to strike messages: %w", err)
	}

	return struck(res.DeletedCount), nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return m.client.Disconnect(ctx)
}

var newestFirst = bson.D{{Key: "datetime", Value: -1}}

// strikeFilter selects what nick said in channel.
func strikeFilter(channel, nick string) bson.M {
	filter := nickFilter(nick)
	filter["channel"] = channel

	return filter
}

// strikeOptions picks the ids of the newest count lines plus the request itself.
func strikeOptions(count int) *options.FindOptionsBuilder {
	return options.Find().
		SetSort(newestFirst).
		SetLimit(int64(max(count, 0) + 1)).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
}

func entryIDs(entries []logEntry) []bson.ObjectID {
	ids := make([]bson.ObjectID, 0, len(entries))
	for _, e := range entries {
		if !e.ID.IsZero() {
			ids = append(ids, e.ID)
		}
	}

	return ids
}

// nickFilter matches nick case-insensitively.
func nickFilter(nick string) bson.M {
	return bson.M{"nick": bson.Regex{Pattern: "^" + regexp.QuoteMeta(nick) + "$", Options: "i"}}
}
