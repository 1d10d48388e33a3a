package secrets

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/eugenenazirov/strata/internal/handler"
)

const (
	defaultVaultTimeout  = 10 * time.Second
	defaultVaultRetryMax = 3
	maxVaultResponseSize = 4 << 20
)

// VaultStore reads secrets through Vault's logical API (GET /v1/<path> and
// LIST /v1/<path>). KV version 2 responses are unwrapped, so both engine
// versions yield the secret's key/value data.
type VaultStore struct {
	address   string
	token     string
	namespace string
	client    *retryablehttp.Client
}

// VaultOption configures a VaultStore.
type VaultOption func(*VaultStore)

// WithToken sets the X-Vault-Token header.
func WithToken(token string) VaultOption {
	return func(v *VaultStore) {
		v.token = token
	}
}

// WithNamespace sets the X-Vault-Namespace header (Vault Enterprise).
func WithNamespace(namespace string) VaultOption {
	return func(v *VaultStore) {
		v.namespace = namespace
	}
}

// WithRetryMax overrides the number of retries for transient failures.
func WithRetryMax(retries int) VaultOption {
	return func(v *VaultStore) {
		v.client.RetryMax = retries
	}
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) VaultOption {
	return func(v *VaultStore) {
		v.client.RetryWaitMin = minWait
		v.client.RetryWaitMax = maxWait
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) VaultOption {
	return func(v *VaultStore) {
		v.client.HTTPClient.Timeout = timeout
	}
}

// WithLogger routes retry diagnostics to logger.
func WithLogger(logger *zap.Logger) VaultOption {
	return func(v *VaultStore) {
		if logger != nil {
			v.client.Logger = leveledLogger{logger.Sugar()}
		}
	}
}

// NewVaultStore returns a client for the Vault server at address.
func NewVaultStore(address string, opts ...VaultOption) (*VaultStore, error) {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if address == "" {
		return nil, fmt.Errorf("vault address must not be empty")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = defaultVaultRetryMax
	client.HTTPClient.Timeout = defaultVaultTimeout
	client.Logger = nil

	v := &VaultStore{address: address, client: client}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Read implements Store. A 404 means the secret does not exist.
func (v *VaultStore) Read(path string) (any, bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, false, err
	}

	body, status, err := v.do(http.MethodGet, p)
	if err != nil {
		return nil, false, err
	}
	if status == http.StatusNotFound {
		return nil, false, nil
	}

	data, err := responseData(body)
	if err != nil {
		return nil, false, fmt.Errorf("vault read %s: %w", p, err)
	}
	if isKVv2(data) {
		data, _ = data["data"].(map[string]any)
	}
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}

// List implements Store. A 404 means the prefix is empty.
func (v *VaultStore) List(prefix string) ([]string, error) {
	p, err := normalizePath(prefix)
	if err != nil {
		return nil, err
	}

	body, status, err := v.do("LIST", p)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return []string{}, nil
	}

	data, err := responseData(body)
	if err != nil {
		return nil, fmt.Errorf("vault list %s: %w", p, err)
	}
	rawKeys, _ := data["keys"].([]any)
	keys := make([]string, 0, len(rawKeys))
	for _, k := range rawKeys {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}

func (v *VaultStore) do(method, path string) ([]byte, int, error) {
	req, err := retryablehttp.NewRequest(method, v.address+"/v1/"+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build vault request: %w", err)
	}
	if v.token != "" {
		req.Header.Set("X-Vault-Token", v.token)
	}
	if v.namespace != "" {
		req.Header.Set("X-Vault-Namespace", v.namespace)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("vault %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVaultResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("vault %s %s: read body: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, nil
	case resp.StatusCode >= 300:
		return nil, resp.StatusCode, fmt.Errorf("vault %s %s: status %d: %s", method, path, resp.StatusCode, vaultErrors(body))
	}
	return body, resp.StatusCode, nil
}

func responseData(body []byte) (map[string]any, error) {
	parsed, err := handler.ParseJSON(body)
	if err != nil {
		return nil, err
	}
	envelope, ok := parsed.(map[string]any)
	if !ok {
		return nil, ErrInvalidSecret
	}
	if envelope["data"] == nil {
		return nil, nil
	}
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return nil, ErrInvalidSecret
	}
	return data, nil
}

func isKVv2(data map[string]any) bool {
	_, hasData := data["data"].(map[string]any)
	_, hasMeta := data["metadata"].(map[string]any)
	return hasData && hasMeta && len(data) == 2
}

func vaultErrors(body []byte) string {
	parsed, err := handler.ParseJSON(body)
	if err == nil {
		if envelope, ok := parsed.(map[string]any); ok {
			if errs, ok := envelope["errors"].([]any); ok && len(errs) > 0 {
				msgs := make([]string, 0, len(errs))
				for _, e := range errs {
					msgs = append(msgs, fmt.Sprint(e))
				}
				return strings.Join(msgs, "; ")
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *zap.SugaredLogger
}

func (z leveledLogger) Error(msg string, kv ...any) { z.l.Errorw(msg, kv...) }
func (z leveledLogger) Info(msg string, kv ...any)  { z.l.Infow(msg, kv...) }
func (z leveledLogger) Debug(msg string, kv ...any) { z.l.Debugw(msg, kv...) }
func (z leveledLogger) Warn(msg string, kv ...any)  { z.l.Warnw(msg, kv...) }
