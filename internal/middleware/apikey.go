package middleware

import (
	"bufio"
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

var ipv4Pattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// APIKeyAuth gates the synchronous query surface behind a shared API key.
// Requests from allowlisted addresses skip the key check entirely; the
// allowlist can be extended at runtime through a plain-text file of one
// IPv4 address per line.
type APIKeyAuth struct {
	key       []byte
	allowlist []string
	allowFile string
	log       zerolog.Logger
}

func NewAPIKeyAuth(key string, allowlist []string, allowFile string, log zerolog.Logger) *APIKeyAuth {
	return &APIKeyAuth{
		key:       []byte(key),
		allowlist: allowlist,
		allowFile: allowFile,
		log:       log,
	}
}

func (a *APIKeyAuth) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.maySkipValidation(r) || a.matchKey(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	})
}

func (a *APIKeyAuth) matchKey(r *http.Request) bool {
	if len(a.key) == 0 {
		return false
	}
	supplied := r.Header.Get("apikey")
	return subtle.ConstantTimeCompare([]byte(supplied), a.key) == 1
}

func (a *APIKeyAuth) maySkipValidation(r *http.Request) bool {
	ip := r.Header.Get("x-real-ip")
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return false
		}
		ip = host
	}
	for _, allowed := range a.allowlist {
		if ip == allowed {
			return true
		}
	}
	for _, allowed := range a.fileAllowlist() {
		if ip == allowed {
			return true
		}
	}
	return false
}

// fileAllowlist reads extra allowlisted addresses from disk, so operators
// can extend the list without a restart. Missing or unreadable files mean
// no extras.
func (a *APIKeyAuth) fileAllowlist() []string {
	if a.allowFile == "" {
		return nil
	}
	f, err := os.Open(a.allowFile)
	if err != nil {
		return nil
	}
	defer f.Close()

	var ips []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if ipv4Pattern.MatchString(line) {
			ips = append(ips, line)
		}
	}
	return ips
}
