// Package tenants maps a request's tenant hint to an active tenant record.
package tenants

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// IDHintPrefix marks an explicit numeric tenant id hint, e.g. "id:42".
const IDHintPrefix = "id:"

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Lookup is the slice of the tenant repository the resolver needs.
type Lookup interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
}

type Options struct {
	CacheTTL  time.Duration
	CacheSize int
}

// Resolver answers every failure to find an active tenant with the same
// common.ErrTenantNotFound, so callers cannot tell unknown tenants from
// disabled ones. Store failures surface as common.ErrBackendUnavailable.
// Lookups are cached briefly and concurrent misses for one key share a
// single store query.
type Resolver struct {
	lookup Lookup
	cache  *expirable.LRU[string, models.Tenant]
	group  singleflight.Group
	log    logging.Logger
}

func NewResolver(lookup Lookup, opts Options, log logging.Logger) *Resolver {
	size := opts.CacheSize
	if size <= 0 {
		size = 1024
	}
	return &Resolver{
		lookup: lookup,
		cache:  expirable.NewLRU[string, models.Tenant](size, nil, opts.CacheTTL),
		log:    log.With("module", "tenants"),
	}
}

// NormalizeHint lower-cases a subdomain hint and reports whether it can
// name a tenant at all. The returned key is also the cache key.
func NormalizeHint(hint string) (key string, ok bool) {
	hint = strings.TrimSpace(hint)
	if rest, found := strings.CutPrefix(hint, IDHintPrefix); found {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return "", false
		}
		return IDHintPrefix + strconv.FormatInt(id, 10), true
	}

	sub := strings.ToLower(hint)
	if !subdomainPattern.MatchString(sub) {
		return "", false
	}
	return sub, true
}

func (r *Resolver) Resolve(ctx context.Context, hint string) (*models.Tenant, error) {
	key, ok := NormalizeHint(hint)
	if !ok {
		return nil, common.ErrTenantNotFound
	}

	if t, ok := r.cache.Get(key); ok {
		return activeCopy(t)
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		t, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		r.cache.Add(key, *t)
		return *t, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrTenantNotFound) {
			return nil, err
		}
		r.log.Error(ctx, "tenant lookup failed", "error", err)
		return nil, err
	}

	return activeCopy(v.(models.Tenant))
}

// Invalidate drops cached entries for t, after it was updated.
func (r *Resolver) Invalidate(t *models.Tenant) {
	r.cache.Remove(strings.ToLower(t.Subdomain))
	r.cache.Remove(IDHintPrefix + strconv.FormatInt(t.ID, 10))
}

func (r *Resolver) load(ctx context.Context, key string) (*models.Tenant, error) {
	var (
		t   *models.Tenant
		err error
	)
	if rest, ok := strings.CutPrefix(key, IDHintPrefix); ok {
		id, _ := strconv.ParseInt(rest, 10, 64)
		t, err = r.lookup.GetByID(ctx, id)
	} else {
		t, err = r.lookup.GetBySubdomain(ctx, key)
	}

	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrTenantNotFound
	case err != nil:
		return nil, common.Backend(fmt.Sprintf("resolve tenant %q", key), err)
	}
	return t, nil
}

func activeCopy(t models.Tenant) (*models.Tenant, error) {
	if !t.IsActive {
		return nil, common.ErrTenantNotFound
	}
	return &t, nil
}
