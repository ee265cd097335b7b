package config

import (
	"errors"
	"fmt"
	"strings"
)

// MissingEnvError reports a provider setting that a request needed but the
// deployment did not supply.
type MissingEnvError struct {
	Key string // viper key, e.g. stripe.webhook_secret
}

// EnvVar returns the environment variable that would supply Key
func (e *MissingEnvError) EnvVar() string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(e.Key, ".", "_"))
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing env var %s", e.EnvVar())
}

// IsMissingEnv reports whether err is, or wraps, a MissingEnvError
func IsMissingEnv(err error) bool {
	var me *MissingEnvError
	return errors.As(err, &me)
}

func require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &MissingEnvError{Key: pairs[i]}
		}
	}
	return nil
}

// RequireWebhook checks the settings needed to verify webhooks
func (s StripeConfig) RequireWebhook() error {
	return require("stripe.webhook_secret", s.WebhookSecret)
}

// Require checks the settings needed to send email
func (e EmailConfig) Require() error {
	return require(
		"email.sendgrid_api_key", e.SendGridAPIKey,
		"email.from_address", e.FromAddress,
	)
}

// Require checks the settings needed to reach object storage
func (s StorageConfig) Require() error {
	return require(
		"storage.bucket", s.Bucket,
		"storage.access_key", s.AccessKey,
		"storage.secret_key", s.SecretKey,
	)
}

// Require checks the settings needed to call the vehicle enquiry API
func (v VehicleConfig) Require() error {
	return require(
		"vehicle.base_url", v.BaseURL,
		"vehicle.api_key", v.APIKey,
	)
}

// Require checks the settings needed to call or serve the render endpoints
func (i InternalConfig) Require() error {
	return require(
		"internal.base_url", i.BaseURL,
		"internal.api_key", i.APIKey,
	)
}
