package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"BoltX/internal/domain/service"
	"BoltX/pkg/cache"
	apphttp "BoltX/pkg/http"
)

// HeaderResolver trusts a customer id set by an upstream gateway.
type HeaderResolver struct{}

func NewHeaderResolver() *HeaderResolver { return &HeaderResolver{} }

func (HeaderResolver) Resolve(_ context.Context, credential string) (service.Identity, error) {
	id := strings.TrimSpace(credential)
	if id == "" {
		return service.Identity{}, service.ErrMissingCredential
	}
	return service.Identity{CustomerID: id, Entitled: true}, nil
}

type identityResponse struct {
	CustomerID string `json:"customerId"`
	Entitled   bool   `json:"entitled"`
}

// HTTPResolver asks an identity service who owns a bearer credential.
// Results are cached per credential hash for cacheTTL; a nil cache or a
// non-positive TTL disables caching.
type HTTPResolver struct {
	client   *apphttp.Client
	url      string
	cache    cache.Service
	cacheTTL time.Duration
}

func NewHTTPResolver(client *apphttp.Client, url string, c cache.Service, cacheTTL time.Duration) *HTTPResolver {
	return &HTTPResolver{
		client:   client,
		url:      url,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Close releases the credential cache.
func (r *HTTPResolver) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

func (r *HTTPResolver) caching() bool { return r.cache != nil && r.cacheTTL > 0 }

func (r *HTTPResolver) Resolve(ctx context.Context, credential string) (service.Identity, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return service.Identity{}, service.ErrMissingCredential
	}
	key := credentialKey(credential)
	if r.caching() {
		var id service.Identity
		if err := r.cache.Get(ctx, key, &id); err == nil {
			return id, nil
		}
	}

	var resp identityResponse
	err := r.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:  apphttp.MethodGet,
		URL:     r.url,
		Headers: map[string]string{"Authorization": "Bearer " + credential},
	}, &resp)
	if err != nil {
		var se *apphttp.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusNotFound) {
			return service.Identity{}, service.ErrInvalidCredential
		}
		return service.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	if resp.CustomerID == "" {
		return service.Identity{}, service.ErrInvalidCredential
	}

	id := service.Identity{CustomerID: resp.CustomerID, Entitled: resp.Entitled}
	if r.caching() {
		_ = r.cache.Set(ctx, key, id, r.cacheTTL)
	}
	return id, nil
}

func credentialKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return cache.Key("identity", hex.EncodeToString(sum[:]))
}
