package spacetraveling

import (
	"log"
	"net/url"
	"os"
	"path"
	"strings"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostPath returns the site path of the post with the given uid.
func PostPath(uid string) string {
	return "/post/" + url.PathEscape(uid) + "/"
}

// LinkResolver returns the function mapping CMS documents to site paths:
// documents of postType get their own page, everything else links home.
func LinkResolver(postType string) func(docType, uid string) string {
	return func(docType, uid string) string {
		if docType == postType && uid != "" {
			return PostPath(uid)
		}
		return "/"
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("spacetraveling: required environment variable %s is not set", key)
	}
	return v
}
