package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-reports/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// One-shot retention sweep: purges terminal executions older than the
// retention window along with their artifacts. The API server runs the same
// sweep via its service; this binary exists for cron jobs and manual runs.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	executions := client.Database(cfg.DBName).Collection("report_executions")

	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
	filter := bson.M{
		"status":     bson.M{"$in": []string{"completed", "failed", "cancelled"}},
		"created_at": bson.M{"$lt": cutoff},
	}

	cursor, err := executions.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"file_path": 1}))
	if err != nil {
		log.Fatalf("Failed to query expired executions: %v", err)
	}

	var docs []struct {
		FilePath string `bson:"file_path"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		log.Fatalf("Failed to read expired executions: %v", err)
	}

	removed := 0
	for _, doc := range docs {
		if doc.FilePath == "" {
			continue
		}
		rel := strings.TrimPrefix(doc.FilePath, cfg.FSURL)
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" || strings.Contains(rel, "..") {
			continue
		}
		full := filepath.Join(cfg.FSPath, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Failed to remove %s: %v\n", full, err)
			}
			continue
		}
		removed++
	}

	res, err := executions.DeleteMany(ctx, filter)
	if err != nil {
		log.Fatalf("Failed to delete expired executions: %v", err)
	}

	fmt.Printf("Purged %d executions older than %s, removed %d files\n",
		res.DeletedCount, cutoff.Format("2006-01-02"), removed)
}
