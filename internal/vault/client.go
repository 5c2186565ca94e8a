package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"

	"kucoin-signal-bot/config"
)

// Client reads notification and API credentials from HashiCorp Vault so
// they never have to live in config files or environment variables.
type Client struct {
	client *api.Client
	config config.VaultConfig
}

// NewClient creates a new Vault client.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

// ReadSecrets fetches the secret at the configured KV v2 path and returns
// its string fields.
func (c *Client) ReadSecrets(ctx context.Context) (map[string]string, error) {
	mount := c.config.MountPath
	if mount == "" {
		mount = "secret"
	}
	path := fmt.Sprintf("%s/data/%s", mount, c.config.SecretPath)

	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading vault secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault secret %s not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault secret %s has no KV v2 data", path)
	}

	out := make(map[string]string, len(data))
	for key, value := range data {
		if str, ok := value.(string); ok {
			out[key] = str
		}
	}
	return out, nil
}

// ApplyToConfig overrides credential fields in cfg with values found in
// the vault secret. Missing keys leave the existing values untouched.
func (c *Client) ApplyToConfig(ctx context.Context, cfg *config.Config) error {
	secrets, err := c.ReadSecrets(ctx)
	if err != nil {
		return err
	}

	if v, ok := secrets["telegram_bot_token"]; ok && v != "" {
		cfg.NotificationConfig.Telegram.BotToken = v
	}
	if v, ok := secrets["telegram_chat_id"]; ok && v != "" {
		cfg.NotificationConfig.Telegram.ChatID = v
	}
	if v, ok := secrets["discord_webhook_url"]; ok && v != "" {
		cfg.NotificationConfig.Discord.WebhookURL = v
	}
	if v, ok := secrets["jwt_secret"]; ok && v != "" {
		cfg.ServerConfig.JWTSecret = v
	}
	if v, ok := secrets["admin_password_hash"]; ok && v != "" {
		cfg.ServerConfig.AdminPasswordHash = v
	}
	if v, ok := secrets["postgres_dsn"]; ok && v != "" {
		cfg.PostgresConfig.DSN = v
	}
	return nil
}
