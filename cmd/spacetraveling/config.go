package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/eringen/spacetraveling"
)

// configFromEnv builds the site configuration from environment variables.
// Unset values fall back to the SiteConfig defaults.
func configFromEnv(requireSecret bool) spacetraveling.SiteConfig {
	cfg := spacetraveling.SiteConfig{
		Name:        spacetraveling.EnvOr("SITE_NAME", "spacetraveling"),
		URL:         strings.TrimSuffix(spacetraveling.EnvOr("SITE_URL", "http://localhost:3000"), "/"),
		Description: spacetraveling.EnvOr("SITE_DESCRIPTION", ""),
		Author:      spacetraveling.EnvOr("SITE_AUTHOR", ""),
		Locale:      spacetraveling.EnvOr("SITE_LOCALE", "pt-BR"),
		TimeZone:    spacetraveling.EnvOr("SITE_TIMEZONE", "America/Sao_Paulo"),

		Addr: spacetraveling.EnvOr("ADDR", ":3000"),

		APIEndpoint:  spacetraveling.EnvOr("PRISMIC_API_ENDPOINT", ""),
		AccessToken:  spacetraveling.EnvOr("PRISMIC_ACCESS_TOKEN", ""),
		DocumentType: spacetraveling.EnvOr("PRISMIC_DOCUMENT_TYPE", "post"),
		PageSize:     envInt("PAGE_SIZE", 4),

		RedisURL:    spacetraveling.EnvOr("REDIS_URL", ""),
		CMSCacheTTL: envDuration("CMS_CACHE_TTL", 5*time.Minute),

		SnapshotPath:       spacetraveling.EnvOr("SNAPSHOT_PATH", "data/snapshot.db"),
		ServeSnapshot:      envBool("SERVE_SNAPSHOT"),
		RevalidateSchedule: spacetraveling.EnvOr("REVALIDATE_SCHEDULE", "@every 24h"),

		CookieSecure: envBool("COOKIE_SECURE"),

		CommentsRepo: spacetraveling.EnvOr("COMMENTS_REPO", ""),

		PostCacheTTL:    envDuration("POST_CACHE_TTL", 5*time.Minute),
		PreviewAttempts: envInt("PREVIEW_ATTEMPTS", 10),
	}
	if requireSecret {
		cfg.SessionSecret = spacetraveling.MustEnv("SESSION_SECRET")
	} else {
		// generate never serves pages, so any secret will do
		cfg.SessionSecret = spacetraveling.EnvOr("SESSION_SECRET", "generate")
	}
	return cfg
}

func envBool(key string) bool {
	return strings.EqualFold(spacetraveling.EnvOr(key, ""), "true")
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(spacetraveling.EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(spacetraveling.EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
