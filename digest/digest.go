// Package digest implements HTTP Digest Authentication (RFC 2617, qop=auth).
package digest

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"go.uber.org/zap"
)

// UserStore provides user credential lookup for digest authentication.
type UserStore interface {
	// GetHA1AndAuthContext returns the HA1 hash for the given username.
	// If found, returns the hash and a context with the authenticated user set.
	// If not found, returns found=false.
	GetHA1AndAuthContext(ctx context.Context, username string) (ha1 string, found bool, authCtx context.Context, err error)
}

const (
	nonceMaxAge   = 5 * time.Minute
	nonceMaxCount = 10000
)

// ComputeHA1 computes the HA1 hash for HTTP Digest Authentication.
// MD5 is mandated by the protocol; the handler must be served over HTTPS.
func ComputeHA1(username, realm, password string) string {
	return md5Hash(fmt.Sprintf("%s:%s:%s", username, realm, password))
}

type DigestAuth struct {
	Realm     string
	UserStore UserStore
	Opaque    string

	log    *zap.SugaredLogger
	nonces cache.Cache[string, struct{}]
}

func NewDigestAuth(realm string, userStore UserStore, log *zap.SugaredLogger) *DigestAuth {
	return &DigestAuth{
		Realm:     realm,
		UserStore: userStore,
		Opaque:    generateSecureRandom(),
		log:       log,
		nonces:    cache.NewCache[string, struct{}]().WithTTL(nonceMaxAge).WithMaxKeys(nonceMaxCount),
	}
}

func (da *DigestAuth) issueNonce() string {
	nonce := generateSecureRandom()
	da.nonces.Set(nonce, struct{}{}, 0)
	return nonce
}

func (da *DigestAuth) validateNonce(nonce string) bool {
	_, found := da.nonces.Get(nonce)
	return found
}

func (da *DigestAuth) Wrap(handler http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Digest ") {
			da.challenge(w)
			return
		}

		authParams := parseDigestHeader(authHeader)

		if !da.validateNonce(authParams["nonce"]) {
			da.log.Debugw("invalid or expired nonce", "remote", r.RemoteAddr)
			da.challenge(w)
			return
		}

		ha1, found, authCtx, err := da.UserStore.GetHA1AndAuthContext(r.Context(), authParams["username"])
		if err != nil {
			da.log.Errorw("looking up HA1", "username", authParams["username"], "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !found {
			da.log.Infow("digest auth for unknown user", "username", authParams["username"], "remote", r.RemoteAddr)
			da.challenge(w)
			return
		}

		expectedResponse := Response(ha1, r.Method, authParams)
		if subtle.ConstantTimeCompare([]byte(authParams["response"]), []byte(expectedResponse)) != 1 {
			da.log.Infow("wrong digest response", "username", authParams["username"], "remote", r.RemoteAddr)
			da.challenge(w)
			return
		}

		handler.ServeHTTP(w, r.WithContext(authCtx))
	}
}

func (da *DigestAuth) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(
		"Digest realm=\"%s\", nonce=\"%s\", opaque=\"%s\", qop=auth",
		da.Realm, da.issueNonce(), da.Opaque,
	))
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// Response computes the digest response a client sends for the given
// parameters: MD5(HA1:nonce:nc:cnonce:qop:MD5(method:uri)).
func Response(ha1, method string, params map[string]string) string {
	ha2 := md5Hash(fmt.Sprintf("%s:%s", method, params["uri"]))
	return md5Hash(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, params["nonce"], params["nc"], params["cnonce"], params["qop"], ha2))
}

func md5Hash(data string) string {
	hash := md5.Sum([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ParseChallenge extracts the parameters of a WWW-Authenticate or
// Authorization header value.
func ParseChallenge(header string) map[string]string {
	return parseDigestHeader(header)
}

func parseDigestHeader(header string) map[string]string {
	params := make(map[string]string)
	header = strings.TrimPrefix(header, "Digest ")
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 {
			params[strings.ToLower(kv[0])] = strings.Trim(kv[1], "\"")
		}
	}
	return params
}

func generateSecureRandom() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		panic("Failed to generate secure random string")
	}
	return hex.EncodeToString(bytes)
}
