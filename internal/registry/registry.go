// Package registry supplies the currency metadata and tax rate the ledger
// core consumes. It is loaded once from a YAML file and read-only afterwards.
package registry

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/m0nxef/gbank/internal/core/domain"
	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
)

type currencyEntry struct {
	DisplayName string `yaml:"display_name"`
	Symbol      string `yaml:"symbol"`
}

type fileSchema struct {
	DefaultCurrency string                   `yaml:"default_currency"`
	TaxRate         string                   `yaml:"tax_rate"`
	Currencies      map[string]currencyEntry `yaml:"currencies"`
}

// Registry is a YAML-backed CurrencyRegistry.
type Registry struct {
	currencies      map[string]domain.Currency
	defaultCurrency string
	taxRate         decimal.Decimal
}

var _ portssvc.CurrencyRegistry = (*Registry)(nil)

// LoadFile reads and validates a currency registry from path.
//
// The tax rate is a decimal fraction (e.g. "0.05" for five percent) and must
// lie in [0, 1). It is applied multiplicatively and never rescaled; a config
// that means "5" as a percentage must say "0.05".
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read currency registry %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a registry from raw YAML.
func Parse(data []byte) (*Registry, error) {
	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse currency registry: %w", err)
	}
	if len(schema.Currencies) == 0 {
		return nil, fmt.Errorf("currency registry defines no currencies")
	}

	taxRate := decimal.Zero
	if schema.TaxRate != "" {
		rate, err := decimal.NewFromString(schema.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("invalid tax_rate %q: %w", schema.TaxRate, err)
		}
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("tax_rate %s outside [0, 1)", rate)
		}
		taxRate = rate
	}

	currencies := make(map[string]domain.Currency, len(schema.Currencies))
	for code, entry := range schema.Currencies {
		currencies[code] = domain.Currency{
			Code:        code,
			DisplayName: entry.DisplayName,
			Symbol:      entry.Symbol,
		}
	}

	defaultCurrency := schema.DefaultCurrency
	if defaultCurrency == "" {
		return nil, fmt.Errorf("currency registry missing default_currency")
	}
	if _, ok := currencies[defaultCurrency]; !ok {
		return nil, fmt.Errorf("default_currency %q is not a registered currency", defaultCurrency)
	}

	return &Registry{
		currencies:      currencies,
		defaultCurrency: defaultCurrency,
		taxRate:         taxRate,
	}, nil
}

// Exists reports whether code is registered.
func (r *Registry) Exists(code string) bool {
	_, ok := r.currencies[code]
	return ok
}

// Get returns the display metadata for code.
func (r *Registry) Get(code string) (*domain.Currency, bool) {
	c, ok := r.currencies[code]
	if !ok {
		return nil, false
	}
	return &c, true
}

// TaxRate returns the transfer tax fraction.
func (r *Registry) TaxRate() decimal.Decimal { return r.taxRate }

// DefaultCurrency returns the configured default currency code.
func (r *Registry) DefaultCurrency() string { return r.defaultCurrency }

// Codes lists all registered currency codes, sorted.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.currencies))
	for code := range r.currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
