// Package vault wraps the HashiCorp Vault API client used to fetch
// WorldAnvil credentials, the remote repository's SSH deploy key, and the
// GitHub bootstrap token from the daemon's secret tree.
package vault

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// Client wraps the Vault API client.
type Client struct {
	client *vault.Client
	ctx    context.Context
}

// NewClient creates a new Vault client using the standard VAULT_ADDR /
// VAULT_TOKEN environment variables.
func NewClient(ctx context.Context) (*Client, error) {
	config := vault.DefaultConfig()
	if config == nil {
		return nil, fmt.Errorf("failed to create default vault config")
	}

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	return &Client{client: client, ctx: ctx}, nil
}

// GetSecret retrieves a secret from Vault's KV v2 "secret" mount.
func (c *Client) GetSecret(path string) (map[string]interface{}, error) {
	secret, err := c.client.KVv2("secret").Get(c.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no data found at %s", path)
	}
	return secret.Data, nil
}

// IsReachable checks if the Vault server is reachable.
func (c *Client) IsReachable() bool {
	ctx, cancel := context.WithTimeout(c.ctx, 2*time.Second)
	defer cancel()
	_, err := c.client.Sys().HealthWithContext(ctx)
	return err == nil
}

// GetCredentials retrieves the WorldAnvil API credentials.
func (c *Client) GetCredentials() (*Credentials, error) {
	data, err := c.GetSecret("wasync/worldanvil/credentials")
	if err != nil {
		return nil, err
	}

	creds := &Credentials{}
	if v, ok := data["application_key"].(string); ok {
		creds.ApplicationKey = v
	}
	if v, ok := data["authentication_token"].(string); ok {
		creds.AuthenticationToken = v
	}
	return creds, nil
}

// GetRemoteSSHKey retrieves the SSH deploy key used to push to the
// configured remote repository.
func (c *Client) GetRemoteSSHKey() (*SSHKey, error) {
	data, err := c.GetSecret("wasync/remote/ssh")
	if err != nil {
		return nil, fmt.Errorf("no SSH key found for remote repository: %w", err)
	}
	return parseSSHKey(data)
}

// GetGitHubToken retrieves the PAT used to bootstrap the remote GitHub
// repository (create it if missing).
func (c *Client) GetGitHubToken() (string, error) {
	data, err := c.GetSecret("wasync/github/bootstrap_pat")
	if err != nil {
		return "", fmt.Errorf("no GitHub bootstrap token found: %w", err)
	}
	if token, ok := data["token"].(string); ok {
		return token, nil
	}
	return "", fmt.Errorf("bootstrap token data missing 'token' field")
}

func parseSSHKey(data map[string]interface{}) (*SSHKey, error) {
	key := &SSHKey{}

	privateKey, ok := data["private_key"].(string)
	if !ok {
		return nil, fmt.Errorf("SSH key data missing 'private_key' field")
	}
	key.PrivateKey = privateKey

	if publicKey, ok := data["public_key"].(string); ok {
		key.PublicKey = publicKey
	}
	return key, nil
}
