package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rapidsites/storefront/api/responses"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
)

const (
	MsgRateLimited = "Too many requests. Please try again later."

	maxPeekBody = 64 << 10
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// dimension keys a request on one axis. An empty key skips the check.
type dimension struct {
	kind  string
	limit int
	key   func(r *http.Request, body []byte) string
}

// RateLimitPolicy is a named fixed window shared by one or more dimensions.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	dimensions []dimension
	needsBody  bool
}

// NewRateLimitPolicy limits by client IP and, when emailLimit is set, by the
// email field of a JSON body. Zero disables a dimension.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	p := RateLimitPolicy{name: strings.ToLower(strings.TrimSpace(name)), window: window}
	if p.name == "" {
		p.name = "default"
	}
	if ipLimit > 0 {
		p.dimensions = append(p.dimensions, dimension{kind: "ip", limit: ipLimit, key: func(r *http.Request, _ []byte) string {
			return clientIP(r)
		}})
	}
	if emailLimit > 0 {
		p.needsBody = true
		p.dimensions = append(p.dimensions, dimension{kind: "email", limit: emailLimit, key: func(_ *http.Request, body []byte) string {
			if email := emailIn(body); email != "" {
				return digest(email)
			}
			return ""
		}})
	}
	return p
}

// RateLimit rejects requests over the policy with 429 and a Retry-After
// header. Limiter failures surface as 503.
func RateLimit(policy RateLimitPolicy, limiter rateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || policy.window <= 0 || len(policy.dimensions) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.needsBody && r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid request body"))
					return
				}
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
			}

			for _, d := range policy.dimensions {
				key := d.key(r, body)
				if key == "" {
					continue
				}
				ok, hits, err := limiter.FixedWindowAllow(ctx, policy.name+":"+d.kind+":"+key, int64(d.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !ok {
					reject(ctx, logg, w, policy, d, hits)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, d dimension, hits int64) {
	secs := max(int(policy.window.Seconds()), 1)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"policy": policy.name,
			"scope":  d.kind,
			"hits":   hits,
			"limit":  d.limit,
		})
	}
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, MsgRateLimited))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func emailIn(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func digest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:16])
}
