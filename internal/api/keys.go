package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"sunolegal/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	PermReadCatalog   = "read:catalog"
	PermWriteBookings = "write:bookings"
	PermChat          = "chat"
	// PermAdminBookings lifts the per-user scoping of booking routes. It is
	// never implied by an empty permission list.
	PermAdminBookings = "admin:bookings"
)

var (
	errMissingAPIKey    = errors.New("missing api key headers")
	errInvalidAPIKey    = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
)

// keyring validates API keys shared by the HTTP and gRPC transports.
type keyring struct {
	headerKey   string
	headerExtra string
	clients     map[string]config.APIClientKey
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	k := &keyring{
		headerKey:   strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey)),
		headerExtra: strings.ToLower(strings.TrimSpace(cfg.HeaderExtra)),
		clients:     make(map[string]config.APIClientKey, len(cfg.APIKeys)),
	}
	if k.headerKey == "" {
		k.headerKey = apiKeyHeaderDefault
	}
	if k.headerExtra == "" {
		k.headerExtra = apiExtraHeaderDefault
	}
	for _, c := range cfg.APIKeys {
		k.clients[c.Key] = c
	}
	return k
}

// check validates the key pair and the permission the call needs.
// Clients configured without an extra secret skip the extra header.
func (k *keyring) check(apiKey, extra, required string) (config.APIClientKey, error) {
	if apiKey == "" {
		return config.APIClientKey{}, errMissingAPIKey
	}
	client, ok := k.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if client.Extra != "" {
		if extra == "" {
			return client, errMissingAPIKey
		}
		if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
			return client, errInvalidExtra
		}
	}
	if !hasPermission(client, required) {
		return client, errPermissionDenied
	}
	return client, nil
}

// hasPermission treats an empty permission list as allow-all.
func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

func isBookingAdmin(client config.APIClientKey) bool {
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == PermAdminBookings {
			return true
		}
	}
	return false
}

type bookingAdminKey struct{}

func withBookingAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, bookingAdminKey{}, true)
}

func bookingAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(bookingAdminKey{}).(bool)
	return admin
}
