package config

import (
	"time"

	"github.com/genovault/genovault/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode     bool // enable dev mode for development
	DB          DB
	Log         logger.Log
	Title       string
	Webserver   Webserver
	OIDC        OIDC
	ObjectStore ObjectStore
	Admin       Admin
	Scheduler   Scheduler

	// LoginDisabled turns off the password login endpoint; bearer tokens keep
	// working when OIDC is enabled.
	LoginDisabled bool

	// ErrorWebhookURL receives a notification when a request fails with a
	// server-side error. Empty disables the webhook.
	ErrorWebhookURL string
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath           bool   // use clean path middleware to allow multi slash requests
	DisableRecover      bool   // disable recover middleware
	Domain              string // domain name for the webserver
	Port                int    // listening port for the webserver
	ShutDownTime        int    // wait time for shutdown
	URL                 string // base url for the webserver
	CookieEncryptionKey string // encryption key for cookies
	Session             Session
}

// OIDC holds the OpenID Connect provider settings for bearer-token identity
// and browser login.
type OIDC struct {
	Enabled      bool
	ProviderURL  string
	WellKnownURL string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// ObjectStore holds the administrative connection to the S3-compatible store.
// AccessKey/SecretKey are the root credentials; per-user keys are issued by
// the provisioning service.
type ObjectStore struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool

	// MCBinary is the path of the mc client used for admin calls.
	MCBinary string
	// Alias is the mc alias name configured for the endpoint.
	Alias string
}

// Admin is the default administrator seeded on first start when the user
// table is empty.
type Admin struct {
	Username string
	Email    string
	Password string
}

// Scheduler gates the background coordinator (digests, scheduler
// submissions). It runs in a single master process, never in workers.
type Scheduler struct {
	Enabled bool
}
