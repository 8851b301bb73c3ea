package subscription

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk plan catalog.
//
//	plans:
//	  - id: basic
//	    name: Basic
//	    price: {amount: 49900, currency: INR}
//	    duration_months: 1
//	    features: [CERTIFICATE_MGMT, SCHEME_MGMT]
//	    external_price_id: price_123
//	    active: true
type Catalog struct {
	Plans []Plan `yaml:"plans"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// Validate checks every plan and the uniqueness of ids, names and price ids.
func (c *Catalog) Validate() error {
	ids := make(map[string]struct{}, len(c.Plans))
	names := make(map[string]struct{}, len(c.Plans))
	prices := make(map[string]struct{}, len(c.Plans))

	for i, p := range c.Plans {
		if err := p.Validate(); err != nil {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("plan #%d: %w", i, err))
		}
		if _, dup := ids[p.ID]; dup {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate plan id %q", p.ID))
		}
		if _, dup := names[p.Name]; dup {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate plan name %q", p.Name))
		}
		if p.ExternalPriceID != "" {
			if _, dup := prices[p.ExternalPriceID]; dup {
				return errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate external price %q", p.ExternalPriceID))
			}
			prices[p.ExternalPriceID] = struct{}{}
		}
		ids[p.ID] = struct{}{}
		names[p.Name] = struct{}{}
	}
	return nil
}
