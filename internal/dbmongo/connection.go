// Package dbmongo holds the MongoDB side of chat-svc: the connection and the
// message archive used for search.
package dbmongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"gosocialchat/internal/config"
)

const connectTimeout = 10 * time.Second

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoConnection(c *config.Config) (*MongoClient, error) {
	uri := c.GetMongoURI()
	clientOptions := options.Client().
		ApplyURI(uri).
		SetAppName("chat-svc").
		SetServerSelectionTimeout(connectTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	slog.Info("connected to MongoDB", "host", c.MongoDB.Host, "database", c.MongoDB.Database)

	return &MongoClient{
		Client:   client,
		Database: client.Database(c.MongoDB.Database),
	}, nil
}

// Collection returns the archive collection named in the config, falling back
// to "message_archive".
func (mc *MongoClient) Collection(c *config.Config) *mongo.Collection {
	name := c.MongoDB.Collection
	if name == "" {
		name = "message_archive"
	}
	return mc.Database.Collection(name)
}

func (mc *MongoClient) Close(ctx context.Context) error {
	return mc.Client.Disconnect(ctx)
}
