// Package secrets resolves WorldAnvil credentials through a
// Vault-then-cache-then-config fallback chain; the remote deploy key and the
// GitHub bootstrap token come from Vault only. The "local
// file" tier is the credentials block already present in the parsed
// configuration YAML, since there is no separate local secrets store.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lcgerke/wasync/internal/config"
	syncerr "github.com/lcgerke/wasync/internal/errors"
	"github.com/lcgerke/wasync/internal/vault"
)

const (
	defaultCacheTTL      = 24 * time.Hour
	credentialsCacheFile = "credentials.json"
)

// Manager resolves WorldAnvil credentials from Vault, a local cache, or the
// static config file, in that priority order, and the remote SSH deploy key
// and GitHub token from Vault alone.
type Manager struct {
	vaultClient  *vault.Client
	cacheDir     string
	cacheTTL     time.Duration
	fileFallback *vault.Credentials
}

// cachedCredentials pairs vault.Credentials with the time they were fetched.
type cachedCredentials struct {
	Credentials *vault.Credentials `json:"credentials"`
	FetchedAt   time.Time          `json:"fetched_at"`
}

// NewManager creates a secrets manager. fileFallback, typically the
// credentials block decoded from the configuration YAML by internal/config,
// is used only once Vault is unreachable and no fresh cache exists.
func NewManager(ctx context.Context, cacheDir string, fileFallback *config.CredentialsConfig) (*Manager, error) {
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, syncerr.Wrap(syncerr.KindConfigError, "resolving home directory", err)
		}
		cacheDir = filepath.Join(home, ".wasync", "cache")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, syncerr.Wrap(syncerr.KindConfigError, "creating secrets cache directory", err)
	}

	vaultClient, err := vault.NewClient(ctx)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindConfigError, "creating vault client", err)
	}

	m := &Manager{
		vaultClient: vaultClient,
		cacheDir:    cacheDir,
		cacheTTL:    defaultCacheTTL,
	}
	if fileFallback != nil {
		m.fileFallback = &vault.Credentials{
			ApplicationKey:      fileFallback.ApplicationKey,
			AuthenticationToken: fileFallback.AuthenticationToken,
		}
	}
	return m, nil
}

// GetCredentials resolves WorldAnvil credentials: Vault first, then a fresh
// cache entry, then the statically configured credentials.
func (m *Manager) GetCredentials() (*vault.Credentials, error) {
	if m.vaultClient.IsReachable() {
		creds, err := m.vaultClient.GetCredentials()
		if err == nil {
			_ = m.cacheCredentials(creds)
			return creds, nil
		}
	}

	if cached, err := m.loadCache(); err == nil {
		if time.Since(cached.FetchedAt) <= m.cacheTTL {
			return cached.Credentials, nil
		}
	}

	if m.fileFallback != nil {
		return m.fileFallback, nil
	}

	return nil, syncerr.New(syncerr.KindConfigError, "no reachable vault, no fresh cache, and no configured credentials fallback")
}

// GetRemoteSSHKey retrieves the remote deploy key from Vault. It is never
// cached or file-backed: a daemon that cannot reach Vault for this secret
// cannot push.
func (m *Manager) GetRemoteSSHKey() (*vault.SSHKey, error) {
	if !m.vaultClient.IsReachable() {
		return nil, syncerr.New(syncerr.KindConfigError, "vault unreachable (remote SSH key is never cached or file-backed)")
	}
	return m.vaultClient.GetRemoteSSHKey()
}

// GetGitHubToken retrieves the token used to bootstrap the remote GitHub
// repository (internal/store/ghrepo). Like the SSH deploy key, it is never
// cached or file-backed.
func (m *Manager) GetGitHubToken() (string, error) {
	if !m.vaultClient.IsReachable() {
		return "", syncerr.New(syncerr.KindConfigError, "vault unreachable (GitHub token is never cached or file-backed)")
	}
	return m.vaultClient.GetGitHubToken()
}

// IsVaultReachable reports whether Vault answered a health check.
func (m *Manager) IsVaultReachable() bool {
	return m.vaultClient.IsReachable()
}

// CacheAge returns how old the cached credentials are, or 0 if there is no
// cache.
func (m *Manager) CacheAge() time.Duration {
	cached, err := m.loadCache()
	if err != nil {
		return 0
	}
	return time.Since(cached.FetchedAt)
}

func (m *Manager) cacheCredentials(creds *vault.Credentials) error {
	cached := cachedCredentials{Credentials: creds, FetchedAt: time.Now()}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cached credentials: %w", err)
	}
	path := filepath.Join(m.cacheDir, credentialsCacheFile)
	return os.WriteFile(path, data, 0600)
}

func (m *Manager) loadCache() (*cachedCredentials, error) {
	path := filepath.Join(m.cacheDir, credentialsCacheFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials cache: %w", err)
	}
	var cached cachedCredentials
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("unmarshal credentials cache: %w", err)
	}
	return &cached, nil
}
