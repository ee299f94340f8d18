package market

import "strings"

// Market identifies one of the Amazon storefronts supported by the engine.
// Each storefront carries a size multiplier used to scale baseline
// sales-requirement tables relative to the US marketplace.
type Market int

const (
	AmazonCom Market = iota
	AmazonCoUk
	AmazonDe
	AmazonFr
	AmazonEs
	AmazonIt
	AmazonCa
	AmazonComAu
)

// marketConfig describes a single Amazon marketplace. The host and
// marketplace identifiers are sourced from public documentation and
// open-source projects that interact with the Amazon websites.
type marketConfig struct {
	Code          string
	DisplayName   string
	Host          string
	MarketplaceID string
	Multiplier    float64
}

var marketConfigs = map[Market]marketConfig{
	AmazonCom:   {Code: "com", DisplayName: "Amazon.com", Host: "www.amazon.com", MarketplaceID: "ATVPDKIKX0DER", Multiplier: 1.0},
	AmazonCoUk:  {Code: "co.uk", DisplayName: "Amazon.co.uk", Host: "www.amazon.co.uk", MarketplaceID: "A1F83G8C2ARO7P", Multiplier: 0.6},
	AmazonDe:    {Code: "de", DisplayName: "Amazon.de", Host: "www.amazon.de", MarketplaceID: "A1PA6795UKMFR9", Multiplier: 0.7},
	AmazonFr:    {Code: "fr", DisplayName: "Amazon.fr", Host: "www.amazon.fr", MarketplaceID: "A13V1IB3VIYZZH", Multiplier: 0.5},
	AmazonEs:    {Code: "es", DisplayName: "Amazon.es", Host: "www.amazon.es", MarketplaceID: "A1RKKUPIHCS9HS", Multiplier: 0.4},
	AmazonIt:    {Code: "it", DisplayName: "Amazon.it", Host: "www.amazon.it", MarketplaceID: "APJ6JRA9NG5V4", Multiplier: 0.4},
	AmazonCa:    {Code: "ca", DisplayName: "Amazon.ca", Host: "www.amazon.ca", MarketplaceID: "A2EUQ1WTGCTBG2", Multiplier: 0.3},
	AmazonComAu: {Code: "com.au", DisplayName: "Amazon.com.au", Host: "www.amazon.com.au", MarketplaceID: "A39IBJ37TRP1C6", Multiplier: 0.2},
}

// All returns the supported markets in declaration order.
func All() []Market {
	return []Market{AmazonCom, AmazonCoUk, AmazonDe, AmazonFr, AmazonEs, AmazonIt, AmazonCa, AmazonComAu}
}

// FromCode resolves a storefront suffix such as "com" or "co.uk" to a Market.
// Unknown codes fall back to the US marketplace.
func FromCode(code string) (Market, bool) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	for m, cfg := range marketConfigs {
		if cfg.Code == normalized {
			return m, true
		}
	}
	return AmazonCom, false
}

func (m Market) config() marketConfig {
	if cfg, ok := marketConfigs[m]; ok {
		return cfg
	}
	return marketConfigs[AmazonCom]
}

// Code returns the storefront suffix, e.g. "co.uk".
func (m Market) Code() string { return m.config().Code }

// DisplayName returns the human-readable storefront name.
func (m Market) DisplayName() string { return m.config().DisplayName }

// Host returns the storefront hostname used by the scraper.
func (m Market) Host() string { return m.config().Host }

// MarketplaceID returns the Amazon marketplace identifier used by the
// completion endpoint.
func (m Market) MarketplaceID() string { return m.config().MarketplaceID }

// SizeMultiplier returns the scalar applied to baseline sales requirements to
// reflect the relative size of the marketplace (US = 1.0).
func (m Market) SizeMultiplier() float64 { return m.config().Multiplier }

func (m Market) String() string { return m.config().DisplayName }

// BookFormat enumerates the product formats the estimation models
// distinguish. Digital formats share one coefficient profile, physical
// formats another.
type BookFormat int

const (
	Kindle BookFormat = iota
	Paperback
	Hardcover
	AudioBook
)

// Formats returns all book formats in declaration order.
func Formats() []BookFormat {
	return []BookFormat{Kindle, Paperback, Hardcover, AudioBook}
}

// Digital reports whether the format is delivered electronically.
func (f BookFormat) Digital() bool {
	return f == Kindle || f == AudioBook
}

func (f BookFormat) String() string {
	switch f {
	case Kindle:
		return "Kindle"
	case Paperback:
		return "Paperback"
	case Hardcover:
		return "Hardcover"
	case AudioBook:
		return "Audiobook"
	default:
		return "Unknown"
	}
}

// FormatFromString resolves a case-insensitive format name, defaulting to
// Kindle for unknown values.
func FormatFromString(name string) (BookFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "kindle", "ebook":
		return Kindle, true
	case "paperback":
		return Paperback, true
	case "hardcover":
		return Hardcover, true
	case "audiobook", "audio":
		return AudioBook, true
	default:
		return Kindle, false
	}
}
