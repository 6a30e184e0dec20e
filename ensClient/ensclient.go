package ensclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/grtinfo/grtinfo/graphql"
	"github.com/grtinfo/grtinfo/logger"
	"github.com/grtinfo/grtinfo/utils"
)

var (
	ResolveAddressesRequest = `query ResolveAddresses($addresses: [String!]!) {
  domains(where: { resolvedAddress_in: $addresses }, first: 1000) {
    name
    resolvedAddress { id }
  }
}`

	SearchByNameRequest = `query SearchByName($fragment: String!) {
  domains(where: { name_contains: $fragment, resolvedAddress_not: null }, first: 10) {
    name
    resolvedAddress { id }
  }
}`

	ResolveNameRequest = `query ResolveName($name: String!) {
  domains(where: { name: $name }, first: 1) {
    name
    resolvedAddress { id }
  }
}`
)

const batchSize = 100

type Domain struct {
	Name            string `json:"name"`
	ResolvedAddress *struct {
		ID string `json:"id"`
	} `json:"resolvedAddress"`
}

func (d Domain) Address() string {
	if d.ResolvedAddress == nil {
		return ""
	}
	return strings.ToLower(d.ResolvedAddress.ID)
}

// Client looks names up in an ENS subgraph. Reverse lookups are remembered
// for the lifetime of the client, misses included.
type Client struct {
	Client *graphql.Client
	Log    *logrus.Entry

	mu    sync.Mutex
	names map[string]string
}

func NewClient(url string) *Client {
	return &Client{
		Client: graphql.NewClient(url, graphql.DefaultTimeout),
		Log:    logger.New("ensClient"),
		names:  make(map[string]string),
	}
}

// preferred picks the display name among several: .eth names first, then
// the shortest, ties broken alphabetically.
func preferred(names []string) string {
	if len(names) == 0 {
		return ""
	}
	sort.Slice(names, func(i, j int) bool {
		ei, ej := strings.HasSuffix(names[i], ".eth"), strings.HasSuffix(names[j], ".eth")
		if ei != ej {
			return ei
		}
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names[0]
}

// ResolveAddresses returns the preferred ENS name of each address that has
// one, keyed by lowercase address. Failed batches are logged and skipped.
func (c *Client) ResolveAddresses(ctx context.Context, addresses []string) map[string]string {
	results := make(map[string]string)
	pending := make([]string, 0)

	c.mu.Lock()
	for _, addr := range utils.UniqueLower(addresses) {
		name, ok := c.names[addr]
		switch {
		case !ok:
			pending = append(pending, addr)
		case name != "":
			results[addr] = name
		}
	}
	c.mu.Unlock()

	for _, batch := range utils.ChunkSlice(pending, batchSize) {
		var resp struct {
			Domains []Domain `json:"domains"`
		}
		if err := c.Client.Do(ctx, ResolveAddressesRequest, map[string]any{"addresses": batch}, &resp); err != nil {
			c.Log.WithError(err).Info("ENS lookup failed")
			continue
		}

		found := make(map[string][]string)
		for _, d := range resp.Domains {
			if d.Name != "" && d.Address() != "" {
				found[d.Address()] = append(found[d.Address()], d.Name)
			}
		}

		c.mu.Lock()
		for _, addr := range batch {
			name := preferred(found[addr])
			c.names[addr] = name
			if name != "" {
				results[addr] = name
			}
		}
		c.mu.Unlock()
	}
	return results
}

func (c *Client) ResolveAddress(ctx context.Context, address string) string {
	return c.ResolveAddresses(ctx, []string{address})[strings.ToLower(address)]
}

// SearchByName returns up to ten domains containing the fragment that
// resolve to an address.
func (c *Client) SearchByName(ctx context.Context, fragment string) ([]Domain, error) {
	var resp struct {
		Domains []Domain `json:"domains"`
	}
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if err := c.Client.Do(ctx, SearchByNameRequest, map[string]any{"fragment": fragment}, &resp); err != nil {
		return nil, fmt.Errorf("ENS search %q: %w", fragment, err)
	}

	domains := make([]Domain, 0, len(resp.Domains))
	for _, d := range resp.Domains {
		if d.Address() != "" {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// ResolveName returns the address an exact ENS name points to, or "".
func (c *Client) ResolveName(ctx context.Context, name string) (string, error) {
	var resp struct {
		Domains []Domain `json:"domains"`
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if err := c.Client.Do(ctx, ResolveNameRequest, map[string]any{"name": name}, &resp); err != nil {
		return "", fmt.Errorf("ENS resolve %q: %w", name, err)
	}
	for _, d := range resp.Domains {
		if addr := d.Address(); addr != "" {
			c.mu.Lock()
			if _, ok := c.names[addr]; !ok {
				c.names[addr] = d.Name
			}
			c.mu.Unlock()
			return addr, nil
		}
	}
	return "", nil
}
