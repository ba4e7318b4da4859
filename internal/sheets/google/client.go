// Package google implements the ledger store on Google Sheets, with edit
// access checked through Google Drive.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgeter/internal/cache"
	"budgeter/internal/log"
	ports "budgeter/internal/sheets"
)

// Ensure interface conformance
var _ ports.LedgerStore = (*Client)(nil)

// Defaults for Config.
const (
	DefaultRetryAttempts  = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultAccessCacheTTL = 10 * time.Minute
	accessCacheSize       = 1024
)

// Config configures the Sheets client.
type Config struct {
	// CredentialsJSON is a service account key.
	CredentialsJSON []byte
	// SheetName is the tab holding the ledger. Empty means the first tab.
	SheetName      string
	RetryAttempts  uint
	RetryDelay     time.Duration
	AccessCacheTTL time.Duration
	Logger         *log.Logger
}

type Client struct {
	sheets      *gsheet.Service
	drive       *gdrive.Service
	sheetName   string
	attempts    uint
	delay       time.Duration
	accessCache *cache.LRUCache[bool]
	account     string
	logger      *log.Logger
}

// New creates a client authenticated as the service account in
// cfg.CredentialsJSON. Tokens are fetched over a pooled transport shared
// with the API calls.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if len(cfg.CredentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}
	jwt, err := goauth.JWTConfigFromJSON(cfg.CredentialsJSON,
		gsheet.SpreadsheetsScope, gdrive.DriveMetadataReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := jwt.Client(ctx)

	sheetsSvc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := gdrive.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	c := newClient(sheetsSvc, driveSvc, cfg)
	c.account = jwt.Email
	c.logger.InfoContext(ctx, "Google Sheets client ready",
		"service_account", jwt.Email, "sheet", c.sheetName)
	return c, nil
}

func newClient(sheetsSvc *gsheet.Service, driveSvc *gdrive.Service, cfg Config) *Client {
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.AccessCacheTTL <= 0 {
		cfg.AccessCacheTTL = DefaultAccessCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		sheets:      sheetsSvc,
		drive:       driveSvc,
		sheetName:   strings.TrimSpace(cfg.SheetName),
		attempts:    cfg.RetryAttempts,
		delay:       cfg.RetryDelay,
		accessCache: cache.NewLRUCache[bool](accessCacheSize, cfg.AccessCacheTTL),
		logger:      logger.WithComponent(log.ComponentSheets),
	}
}

// ServiceAccount is the e-mail users must share their spreadsheet with.
func (c *Client) ServiceAccount() string {
	return c.account
}

// AccessCache exposes the edit-access cache so a janitor can sweep it.
func (c *Client) AccessCache() cache.Cleaner {
	return c.accessCache
}

// LoadCredentials returns the service account key from inline JSON, a key
// file, or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Google
// APIs: pooled keep-alive connections and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}
