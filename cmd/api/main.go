package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"civicvoice/api/internal/app"
	"civicvoice/api/internal/classifier"
	"civicvoice/api/internal/config"
	"civicvoice/api/internal/objstore"
	"civicvoice/api/internal/search"
	"civicvoice/api/internal/session"
	"civicvoice/api/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close(ctx)

	var uploads app.Uploader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		objects, err := objstore.New(objstore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("object storage setup failed: %v", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			log.Fatalf("object storage bucket check failed: %v", err)
		}
		uploads = objects
	} else {
		log.Printf("WARNING: MinIO not configured, image uploads disabled")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, app.StoreFallback{Store: db})

	var revoked app.RevocationStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		revoked = redisStore
	} else {
		log.Printf("WARNING: Redis not configured, logout will not revoke tokens")
	}

	service := app.NewService(app.ServiceOptions{
		Store:       db,
		TokenSecret: cfg.JWTSecret,
		SessionTTL:  cfg.SessionTTL,
		Classifier:  classifier.New(),
		Uploads:     uploads,
		Search:      searchService,
		Revoked:     revoked,
	})

	reindexComplaints(ctx, db, searchService)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("CivicVoice API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// reindexComplaints backfills the search index from the database at
// startup, so complaints filed while Meilisearch was down become
// searchable again.
func reindexComplaints(ctx context.Context, db *store.Mongo, searchService *search.Service) {
	complaints, err := db.ListAllComplaints(ctx)
	if err != nil {
		log.Printf("WARNING: search backfill skipped: %v", err)
		return
	}
	recs := make([]search.ComplaintRecord, 0, len(complaints))
	for _, c := range complaints {
		recs = append(recs, search.ComplaintRecord{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Category:    string(c.Category),
			Status:      string(c.Status),
			ZoneID:      c.ZoneID,
		})
	}
	searchService.ReindexAll(recs)
}
