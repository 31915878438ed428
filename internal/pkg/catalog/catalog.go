package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Service groups the products a subscriber can opt in and out of.
type Service struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"` // subscription, ondemand, game
	Religion string    `json:"religion,omitempty"`
	Products []Product `json:"products"`
}

// Product is a single billable offering with its SMS keyword surface.
type Product struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Price          string   `json:"price"`
	Currency       string   `json:"currency"`
	OptInKeywords  []string `json:"opt_in_keywords"`
	OptOutKeywords []string `json:"opt_out_keywords"`
	ValidityDays   int      `json:"validity_days"`
	MaxAccess      int      `json:"max_access"`
}

// PrimaryOptInKeyword returns the keyword quoted back to subscribers as the
// resubscribe hint.
func (p *Product) PrimaryOptInKeyword() string {
	if len(p.OptInKeywords) == 0 {
		return ""
	}
	return p.OptInKeywords[0]
}

// Catalog is the immutable product catalog, constructed once at process start
// and passed explicitly to anything that resolves keywords.
type Catalog struct {
	services []Service
	entries  []keywordEntry
}

// Load reads and parses the catalog JSON file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw JSON, compiling keyword patterns up front.
func Parse(data []byte) (*Catalog, error) {
	var services []Service
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(services)
}

// New builds a catalog from service definitions.
func New(services []Service) (*Catalog, error) {
	c := &Catalog{services: services}

	seen := map[string]string{} // keyword+direction -> product id
	for si := range services {
		svc := &services[si]
		if strings.TrimSpace(svc.ID) == "" {
			return nil, fmt.Errorf("service %q has empty id", svc.Name)
		}
		for pi := range svc.Products {
			prod := &svc.Products[pi]
			if strings.TrimSpace(prod.ID) == "" {
				return nil, fmt.Errorf("product %q in service %s has empty id", prod.Name, svc.ID)
			}
			for _, pair := range keywordPairs(prod) {
				norm := normalizeKeyword(pair.keyword)
				if norm == "" {
					continue
				}
				key := string(pair.action) + ":" + norm
				if owner, dup := seen[key]; dup && owner != prod.ID {
					return nil, fmt.Errorf("keyword %q (%s) mapped to both %s and %s", norm, pair.action, owner, prod.ID)
				}
				seen[key] = prod.ID

				entry, err := newKeywordEntry(norm, pair.action, svc.ID, prod.ID)
				if err != nil {
					return nil, err
				}
				c.entries = append(c.entries, entry)
			}
		}
	}

	// Longest keyword first so a more specific keyword beats a shorter one it
	// contains.
	sort.SliceStable(c.entries, func(i, j int) bool {
		return len(c.entries[i].keyword) > len(c.entries[j].keyword)
	})

	return c, nil
}

// Services returns the service definitions. Callers must not mutate them.
func (c *Catalog) Services() []Service {
	return c.services
}

// FindByKeyword resolves a normalized keyword to its owning service/product
// pair.
func (c *Catalog) FindByKeyword(keyword string) (*Service, *Product, bool) {
	norm := normalizeKeyword(keyword)
	for si := range c.services {
		svc := &c.services[si]
		for pi := range svc.Products {
			prod := &svc.Products[pi]
			for _, kw := range prod.OptInKeywords {
				if normalizeKeyword(kw) == norm {
					return svc, prod, true
				}
			}
			for _, kw := range prod.OptOutKeywords {
				if normalizeKeyword(kw) == norm {
					return svc, prod, true
				}
			}
		}
	}
	return nil, nil, false
}

// FindProduct resolves a product by service and product id.
func (c *Catalog) FindProduct(serviceID, productID string) (*Service, *Product, bool) {
	for si := range c.services {
		svc := &c.services[si]
		if svc.ID != serviceID {
			continue
		}
		for pi := range svc.Products {
			if svc.Products[pi].ID == productID {
				return svc, &svc.Products[pi], true
			}
		}
	}
	return nil, nil, false
}

// FindProductByID resolves a product by its id alone, searching all services.
func (c *Catalog) FindProductByID(productID string) (*Service, *Product, bool) {
	for si := range c.services {
		svc := &c.services[si]
		for pi := range svc.Products {
			if svc.Products[pi].ID == productID {
				return svc, &svc.Products[pi], true
			}
		}
	}
	return nil, nil, false
}

func normalizeKeyword(kw string) string {
	return strings.Join(strings.Fields(strings.ToLower(kw)), " ")
}

func keywordPairs(p *Product) []keywordPair {
	pairs := make([]keywordPair, 0, len(p.OptInKeywords)+len(p.OptOutKeywords))
	for _, kw := range p.OptInKeywords {
		pairs = append(pairs, keywordPair{kw, ActionSubscribe})
	}
	for _, kw := range p.OptOutKeywords {
		pairs = append(pairs, keywordPair{kw, ActionUnsubscribe})
	}
	return pairs
}

type keywordPair struct {
	keyword string
	action  Action
}
