package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/0dayMonkey/linktree-backend/internal/auditlog"
	"github.com/0dayMonkey/linktree-backend/internal/config"
	"github.com/0dayMonkey/linktree-backend/internal/httpapi"
	"github.com/0dayMonkey/linktree-backend/internal/linktree"
	"github.com/0dayMonkey/linktree-backend/internal/notion"
	"github.com/0dayMonkey/linktree-backend/internal/spotify"
)

func main() {
	addr := os.Getenv("LINKTREE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	store := notion.NewClient(notion.ClientOptions{
		Token:     os.Getenv("NOTION_TOKEN"),
		UserAgent: "linktree-backend",
	})

	socialsDB := requireEnv("NOTION_SOCIALS_DB_ID")
	linksDB := requireEnv("NOTION_LINKS_DB_ID")
	tracksDB := requireEnv("NOTION_TRACKS_DB_ID")
	profileDB := requireEnv("NOTION_PROFILE_DB_ID")

	logger := log.New(os.Stderr, "linktreed ", log.LstdFlags)

	syncer := linktree.NewSyncer(linktree.SyncerOptions{
		Store:          store,
		SocialsDB:      socialsDB,
		LinksDB:        linksDB,
		TracksDB:       tracksDB,
		MaxConcurrency: intEnv("LINKTREE_SYNC_CONCURRENCY", 4),
		Logger:         logger,
	})
	reader := linktree.NewReader(linktree.ReaderOptions{
		Store:     store,
		ProfileDB: profileDB,
		SocialsDB: socialsDB,
		LinksDB:   linksDB,
		TracksDB:  tracksDB,
	})

	var tracks httpapi.TrackSearcher
	if clientID := os.Getenv("SPOTIFY_CLIENT_ID"); clientID != "" {
		tracks = spotify.NewClient(spotify.ClientOptions{
			ClientID:     clientID,
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		})
	}

	var audit httpapi.AuditSink
	if dsn := strings.TrimSpace(os.Getenv("LINKTREE_AUDIT_POSTGRES_DSN")); dsn != "" {
		auditLog, err := auditlog.NewPostgresAuditLog(dsn)
		if err != nil {
			log.Fatalf("failed to initialize audit log: %v", err)
		}
		defer auditLog.Close()
		audit = auditLog
	}

	var runtime httpapi.RuntimeSource
	serverCfg := httpapi.ServerConfig{
		UpdateSecret:    os.Getenv("UPDATE_SECRET_KEY"),
		AllowedOrigins:  splitEnv("LINKTREE_ALLOWED_ORIGINS"),
		MaxBodyBytes:    int64Env("LINKTREE_MAX_BODY_BYTES", 0),
		SyncTimeout:     durationEnv("LINKTREE_SYNC_TIMEOUT", 0),
		RateLimitMax:    intEnv("LINKTREE_RATE_LIMIT_MAX", 0),
		RateLimitWindow: durationEnv("LINKTREE_RATE_LIMIT_WINDOW", time.Minute),
	}
	if path := strings.TrimSpace(os.Getenv("LINKTREE_CONFIG_FILE")); path != "" {
		watcher, err := config.NewWatcher(path, logger)
		if err != nil {
			log.Fatalf("failed to load config file: %v", err)
		}
		defer watcher.Close()
		runtime = watcher
	} else if serverCfg.UpdateSecret == "" {
		log.Fatalf("UPDATE_SECRET_KEY or LINKTREE_CONFIG_FILE is required")
	}

	server, err := httpapi.NewServer(httpapi.ServerOptions{
		Syncer:  syncer,
		Reader:  reader,
		Tracks:  tracks,
		Audit:   audit,
		Runtime: runtime,
		Logger:  logger,
		Config:  serverCfg,
	})
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}

	log.Printf("linktreed listening on %s", addr)
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func requireEnv(name string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		log.Fatalf("%s is required", name)
	}
	return value
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %d", name, raw, fallback)
		return fallback
	}
	return value
}

func int64Env(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %d", name, raw, fallback)
		return fallback
	}
	return value
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %s", name, raw, fallback.String())
		return fallback
	}
	return value
}

func splitEnv(name string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
