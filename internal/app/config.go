package app

import (
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookshop-pricing/internal/domain/catalog"
	"github.com/xenking/bookshop-pricing/internal/domain/pricing"
	"github.com/xenking/bookshop-pricing/internal/geo"
)

// Config holds the complete application configuration, loadable from
// environment variables (BOOKSHOP_ prefix), flags, or YAML config files.
type Config struct {
	MasterDataDir string `default:"master-data" usage:"directory containing books.csv, customers.csv, discounts.csv" flag:"master-data"`
	CouponFilter  string `default:"" usage:"path to the coupon code filter built by coupon-ingest" flag:"coupon-filter"`
	OrderFile     string `default:"-" usage:"order request JSON file, - for stdin" flag:"order"`

	Rules     RulesConfig
	Shipping  ShippingConfig
	Locations []LocationConfig
}

// RulesConfig is the discount rule table. Percentages are decimal strings
// so money math never passes through binary floats.
type RulesConfig struct {
	Groups       []string `usage:"customer groups eligible for the group discount"`
	GroupPercent string   `default:"0" usage:"group discount percentage" flag:"group-percent"`

	LoyaltyDays    int    `default:"365" usage:"minimum account age in days for the loyalty discount" flag:"loyalty-days"`
	LoyaltyPercent string `default:"0" usage:"loyalty discount percentage" flag:"loyalty-percent"`

	BlackFridayDate    string `default:"" usage:"Black Friday date (YYYY-MM-DD), empty disables the rule" flag:"black-friday"`
	BlackFridayPercent string `default:"0" usage:"Black Friday discount percentage" flag:"black-friday-percent"`

	Regions         []string `usage:"customer locations eligible for the regional discount"`
	RegionalPercent string   `default:"0" usage:"regional discount percentage" flag:"regional-percent"`

	Authors       []string `usage:"authors eligible for the author discount"`
	AuthorPercent string   `default:"0" usage:"author discount percentage" flag:"author-percent"`
	AuthorScope   string   `default:"matched_items" usage:"author discount scope: matched_items or whole_order" flag:"author-scope"`

	Priority []string `usage:"tie-break priority of discount rules, best-amount ties resolve to the earliest"`
	Stacking bool     `default:"false" usage:"sum all qualifying discounts instead of selecting the best one"`
}

// ShippingConfig controls the free-shipping threshold and the
// distance-based fee.
type ShippingConfig struct {
	FreeThreshold string `default:"50" usage:"subtotal at or above which shipping is free" flag:"free-threshold"`
	BaseFee       string `default:"5" usage:"base shipping fee below the free threshold" flag:"base-fee"`
	RatePerKm     string `default:"0.02" usage:"shipping fee per kilometre of distance" flag:"rate-per-km"`
	StoreLocation string `default:"paris" usage:"location the store ships from" flag:"store-location"`
}

// LocationConfig adds or overrides a named location in the distance table.
type LocationConfig struct {
	Name string
	Lat  float64
	Lon  float64
}

// defaultCoordinates seeds the distance table with the locations master
// data ships with. Config Locations entries extend or override it.
var defaultCoordinates = map[string]geo.Point{
	"paris":  {Lat: 48.8566, Lon: 2.3522},
	"berlin": {Lat: 52.5200, Lon: 13.4050},
	"london": {Lat: 51.5074, Lon: -0.1278},
	"madrid": {Lat: 40.4168, Lon: -3.7038},
	"rome":   {Lat: 41.9028, Lon: 12.4964},
}

// LoadConfig loads configuration from environment variables, flags, and
// YAML config files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOOKSHOP",
		Files:     []string{"config.yaml", "/etc/bookshop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

// PricingConfig converts the loaded rule table into the engine's strongly
// typed configuration. Malformed values surface as configuration errors,
// not per-call failures.
func (c *Config) PricingConfig() (pricing.Config, error) {
	var (
		cfg pricing.Config
		err error
	)

	if cfg.Group.Percent, err = parsePercent("rules.group_percent", c.Rules.GroupPercent); err != nil {
		return pricing.Config{}, err
	}
	cfg.Group.Groups = make([]catalog.Group, len(c.Rules.Groups))
	for i, g := range c.Rules.Groups {
		cfg.Group.Groups[i] = catalog.Group(g)
	}

	cfg.Loyalty.ThresholdDays = c.Rules.LoyaltyDays
	if cfg.Loyalty.Percent, err = parsePercent("rules.loyalty_percent", c.Rules.LoyaltyPercent); err != nil {
		return pricing.Config{}, err
	}

	if c.Rules.BlackFridayDate != "" {
		date, err := time.Parse("2006-01-02", c.Rules.BlackFridayDate)
		if err != nil {
			return pricing.Config{}, &pricing.ConfigurationError{
				Field:  "rules.black_friday_date",
				Reason: "must be YYYY-MM-DD: " + err.Error(),
			}
		}
		cfg.Seasonal.Date = date
	}
	if cfg.Seasonal.Percent, err = parsePercent("rules.black_friday_percent", c.Rules.BlackFridayPercent); err != nil {
		return pricing.Config{}, err
	}

	cfg.Regional.Locations = c.Rules.Regions
	if cfg.Regional.Percent, err = parsePercent("rules.regional_percent", c.Rules.RegionalPercent); err != nil {
		return pricing.Config{}, err
	}

	cfg.Author.Authors = c.Rules.Authors
	cfg.Author.Scope = pricing.AuthorScope(c.Rules.AuthorScope)
	if cfg.Author.Percent, err = parsePercent("rules.author_percent", c.Rules.AuthorPercent); err != nil {
		return pricing.Config{}, err
	}

	cfg.RulePriority = make([]pricing.RuleKind, len(c.Rules.Priority))
	for i, r := range c.Rules.Priority {
		cfg.RulePriority[i] = pricing.RuleKind(r)
	}
	cfg.Stacking = c.Rules.Stacking

	if cfg.Shipping.FreeThreshold, err = parseMoney("shipping.free_threshold", c.Shipping.FreeThreshold); err != nil {
		return pricing.Config{}, err
	}
	if cfg.Shipping.BaseFee, err = parseMoney("shipping.base_fee", c.Shipping.BaseFee); err != nil {
		return pricing.Config{}, err
	}
	if cfg.Shipping.RatePerKm, err = parseMoney("shipping.rate_per_km", c.Shipping.RatePerKm); err != nil {
		return pricing.Config{}, err
	}
	cfg.Shipping.StoreLocation = c.Shipping.StoreLocation

	if err := cfg.Validate(); err != nil {
		return pricing.Config{}, err
	}
	return cfg, nil
}

// Coordinates merges the built-in location table with the configured
// overrides.
func (c *Config) Coordinates() map[string]geo.Point {
	coords := make(map[string]geo.Point, len(defaultCoordinates)+len(c.Locations))
	for name, p := range defaultCoordinates {
		coords[name] = p
	}
	for _, loc := range c.Locations {
		coords[loc.Name] = geo.Point{Lat: loc.Lat, Lon: loc.Lon}
	}
	return coords
}

func parsePercent(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &pricing.ConfigurationError{Field: field, Reason: "not a decimal percentage: " + s}
	}
	return d, nil
}

func parseMoney(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &pricing.ConfigurationError{Field: field, Reason: "not a decimal amount: " + s}
	}
	return d, nil
}
