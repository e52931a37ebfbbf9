package session

import (
	"fmt"

	oscerrors "github.com/joona/osckit/errors"
)

// Endpoint is one URL of a service, scoped by interface and region.
type Endpoint struct {
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

// CatalogEntry is one service in the catalog.
type CatalogEntry struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"endpoints"`
}

// ServiceCatalog is the directory of service endpoints returned with a token.
type ServiceCatalog []CatalogEntry

// Has reports whether the catalog lists serviceType.
func (c ServiceCatalog) Has(serviceType string) bool {
	for _, entry := range c {
		if entry.Type == serviceType {
			return true
		}
	}
	return false
}

// URLFor returns the endpoint for serviceType matching iface and, when
// given, region. An empty iface means "public".
func (c ServiceCatalog) URLFor(serviceType, region, iface string) (string, error) {
	if iface == "" {
		iface = "public"
	}
	for _, entry := range c {
		if entry.Type != serviceType {
			continue
		}
		for _, ep := range entry.Endpoints {
			if ep.Interface != iface {
				continue
			}
			if region != "" && ep.Region != region && ep.RegionID != region {
				continue
			}
			return ep.URL, nil
		}
	}
	return "", &oscerrors.AuthenticationError{
		Message: fmt.Sprintf("no %s endpoint for %s found in service catalog", iface, describeRegion(serviceType, region)),
	}
}

func describeRegion(serviceType, region string) string {
	if region == "" {
		return serviceType
	}
	return serviceType + " in region " + region
}
