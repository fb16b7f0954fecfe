package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Property is one catalog entry.
type Property struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price,omitempty"`
	Area        string   `json:"area,omitempty"`
	Location    Location `json:"location,omitempty"`
	Images      []string `json:"images,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
	Units       []string `json:"units,omitempty"`
	Description string   `json:"description,omitempty"`
	BrochureURL string   `json:"brochure_url,omitempty"`
	WebsiteURL  string   `json:"website_url,omitempty"`
}

type Location struct {
	City    string  `json:"city,omitempty"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// Catalog lists the properties of a tenant.
type Catalog interface {
	ListProperties(ctx context.Context, tenantID string) ([]Property, error)
}

type catalogClient struct {
	*apiClient
}

// NewCatalog creates an HTTP property catalog client.
func NewCatalog(baseURL string, opts ...ClientOption) (Catalog, error) {
	client, err := newAPIClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &catalogClient{apiClient: client}, nil
}

func (c *catalogClient) ListProperties(ctx context.Context, tenantID string) ([]Property, error) {
	var properties []Property
	if err := c.doRequest(ctx, "GET", "/api/properties/"+tenantID, nil, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

// CachedCatalog fronts a catalog with a TTL cache. The listing barely changes
// within a session, and every property tool starts from it.
type CachedCatalog struct {
	upstream Catalog
	cache    *gocache.Cache
}

func NewCachedCatalog(upstream Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		upstream: upstream,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedCatalog) ListProperties(ctx context.Context, tenantID string) ([]Property, error) {
	if cached, ok := c.cache.Get(tenantID); ok {
		return cached.([]Property), nil
	}

	properties, err := c.upstream.ListProperties(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing properties for tenant %s: %w", tenantID, err)
	}

	c.cache.SetDefault(tenantID, properties)
	slog.Debug("Property catalog cached", "tenant_id", tenantID, "count", len(properties))
	return properties, nil
}

// FindProperty resolves a property by id or, failing that, by exact name.
func FindProperty(properties []Property, idOrName string) (*Property, bool) {
	for i := range properties {
		if properties[i].ID == idOrName {
			return &properties[i], true
		}
	}
	for i := range properties {
		if properties[i].Name == idOrName {
			return &properties[i], true
		}
	}
	return nil, false
}
