package ipstats

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/netip"
	"os"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// GeoLookup resolves an address to location data. A nil result with a nil error
// means the address is unknown.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) (*model.GeoInfo, error)
}

// GeoLookupFunc adapts a function to GeoLookup.
type GeoLookupFunc func(ctx context.Context, ip string) (*model.GeoInfo, error)

func (f GeoLookupFunc) Lookup(ctx context.Context, ip string) (*model.GeoInfo, error) {
	return f(ctx, ip)
}

// cachedLookup memoizes answers (including "unknown") of an inner lookup.
// Errors are not cached.
type cachedLookup struct {
	inner GeoLookup
	cache *lru.Cache[string, *model.GeoInfo]
}

// NewCachedLookup wraps inner with an LRU cache of the given size.
func NewCachedLookup(inner GeoLookup, size int) (GeoLookup, error) {
	cache, err := lru.New[string, *model.GeoInfo](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create geo cache: %w", err)
	}
	return &cachedLookup{inner: inner, cache: cache}, nil
}

func (c *cachedLookup) Lookup(ctx context.Context, ip string) (*model.GeoInfo, error) {
	if info, ok := c.cache.Get(ip); ok {
		return info, nil
	}
	info, err := c.inner.Lookup(ctx, ip)
	if err != nil {
		return nil, err
	}
	c.cache.Add(ip, info)
	return info, nil
}

// Table is an offline CIDR → location table. The most specific prefix wins.
type Table struct {
	entries []tableEntry
}

type tableEntry struct {
	prefix netip.Prefix
	info   model.GeoInfo
}

// LoadTable reads rows of "cidr,country,city,asn,org". Blank lines, lines starting
// with '#' and a leading header row are skipped; trailing columns are optional.
func LoadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	t := &Table{}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("geo table: %w", err)
		}
		first := strings.TrimSpace(rec[0])
		if row == 1 && strings.EqualFold(first, "cidr") {
			continue
		}
		prefix, err := netip.ParsePrefix(first)
		if err != nil {
			if addr, aerr := netip.ParseAddr(first); aerr == nil {
				prefix = netip.PrefixFrom(addr, addr.BitLen())
			} else {
				return nil, fmt.Errorf("geo table row %d: %w", row, err)
			}
		}
		e := tableEntry{prefix: prefix.Masked()}
		cols := []*string{&e.info.Country, &e.info.City, &e.info.ASN, &e.info.Org}
		for i, dst := range cols {
			if i+1 < len(rec) {
				*dst = strings.TrimSpace(rec[i+1])
			}
		}
		t.entries = append(t.entries, e)
	}

	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].prefix.Bits() > t.entries[j].prefix.Bits()
	})
	return t, nil
}

// LoadTableFile reads a geo table from path.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// Len returns the number of prefixes.
func (t *Table) Len() int { return len(t.entries) }

// Lookup implements GeoLookup.
func (t *Table) Lookup(_ context.Context, ip string) (*model.GeoInfo, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", ip, err)
	}
	addr = addr.Unmap()
	for _, e := range t.entries {
		if e.prefix.Contains(addr) {
			info := e.info
			return &info, nil
		}
	}
	return nil, nil
}
