package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodyBytes    = 1 << 20

	// Telegram defaults
	DefaultParseMode            = "MarkdownV2"
	DefaultPollingTimeout       = 30
	DefaultDisableLinkPreview   = true
	DefaultWebhookPathPrefix    = "/webhook"
	DefaultConfigFile           = "config.yml"
	DefaultTelegramHTTPTimeout  = 30 * time.Second
	DefaultTelegramSendInterval = 1 * time.Second

	// Catalog defaults
	DefaultCatalogBaseURL  = "https://api.wishlink.com"
	DefaultCatalogOrigin   = "https://www.wishlink.com"
	DefaultCatalogClientID = "1752163729058-1dccdb9e-a0f9-f088-a678-e14f8997f719"
	DefaultCatalogTimeout  = 15 * time.Second
	DefaultCatalogPageSize = 50

	// Redirect defaults
	DefaultRedirectTimeout   = 15 * time.Second
	DefaultRedirectUserAgent = "Mozilla/5.0"

	// Rendering defaults
	DefaultChunkSize   = 8
	DefaultDiscountMin = 50
	DefaultDiscountMax = 90

	// Dispatcher defaults
	DefaultWorkers            = 1
	DefaultMaxWorkers         = 8
	DefaultQueueSize          = 100
	DefaultJobTimeout         = 2 * time.Minute
	DefaultResolveConcurrency = 4

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultCatalogVariants — порядок перебора типов поста в каталоге.
var DefaultCatalogVariants = []string{"POST", "REELS"}

// DefaultTitles — пул рекламных заголовков.
var DefaultTitles = []string{
	"🔥 Loot Deal Alert!",
	"💥 Hot Deal Incoming!",
	"⚡ Limited Time Offer!",
	"🎯 Grab Fast!",
	"🚨 Flash Sale!",
	"💎 Special Deal Just For You!",
	"🛒 Shop Now!",
	"📢 Price Drop!",
	"🎉 Mega Offer!",
	"🤑 Crazy Discount!",
}
