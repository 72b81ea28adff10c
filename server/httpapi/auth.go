package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kasuganosora/statsgate/pkg/config"
)

const (
	headerAPIKey    = "X-API-Key"
	headerTimestamp = "X-Timestamp"
	headerNonce     = "X-Nonce"
	headerSignature = "X-Signature"

	// timestampTolerance is the maximum allowed time difference for request timestamps
	timestampTolerance = 5 * time.Minute
)

// APIClient is an authenticated dashboard caller.
type APIClient struct {
	Name   string
	Key    string
	Secret string // empty means key-only authentication
}

// ClientStore holds the configured API clients keyed by API key.
// It is read-only after construction.
type ClientStore struct {
	clients map[string]APIClient
}

// NewClientStore builds a store from config. Clients whose key env var is unset are skipped.
func NewClientStore(cfgs []config.APIClientConfig) *ClientStore {
	s := &ClientStore{clients: make(map[string]APIClient, len(cfgs))}
	for _, c := range cfgs {
		if c.Key == "" {
			continue
		}
		s.clients[c.Key] = APIClient{Name: c.Name, Key: c.Key, Secret: c.Secret}
	}
	return s
}

// Enabled reports whether any client is configured.
func (s *ClientStore) Enabled() bool {
	return s != nil && len(s.clients) > 0
}

// GetClient returns an API client by API key
func (s *ClientStore) GetClient(apiKey string) (APIClient, error) {
	client, ok := s.clients[apiKey]
	if !ok {
		return APIClient{}, fmt.Errorf("invalid api key")
	}
	return client, nil
}

// ValidateSignature validates the HMAC-SHA256 signature
func ValidateSignature(secret, method, path, timestamp, nonce, body, signature string, now time.Time) error {
	// Validate timestamp
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp")
	}

	diff := now.Sub(time.Unix(ts, 0))
	if math.Abs(diff.Seconds()) > timestampTolerance.Seconds() {
		return fmt.Errorf("timestamp expired")
	}

	// Compute expected signature
	message := method + path + timestamp + nonce + body
	expected := ComputeSignature(secret, message)

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("invalid signature")
	}

	return nil
}

// ComputeSignature computes the hex HMAC-SHA256 of message.
func ComputeSignature(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
