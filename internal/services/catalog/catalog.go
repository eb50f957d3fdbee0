package catalog

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

var (
	ErrServiceNotFound = apperr.New(apperr.KindNotFound, "service not found")
	ErrNotProvider     = apperr.New(apperr.KindForbidden, "you must be a service provider")
	ErrNotOwner        = apperr.New(apperr.KindForbidden, "you do not have permission to modify this service")
)

type Repository interface {
	FindService(ctx context.Context, id uint) (*models.Service, error)
	CreateService(ctx context.Context, s *models.Service) error
	SetServiceAvailability(ctx context.Context, id uint, available bool) error
	ListServices(ctx context.Context, f models.ServiceFilter) ([]models.Service, error)
	ListProviders(ctx context.Context, search string) ([]models.User, error)
	ProviderActivity(ctx context.Context, providerIDs []uuid.UUID) (map[uuid.UUID]models.ProviderActivity, error)
}

type Catalog struct {
	repo Repository
}

func New(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// ServiceLine is one submitted service row; Price is the raw form value.
type ServiceLine struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
}

type SkippedLine struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// parseLine validates a line. The returned field names the failing input.
func parseLine(l ServiceLine) (name string, cat models.Category, price int64, field, reason string) {
	name = strings.TrimSpace(l.Name)
	cat = models.Category(strings.TrimSpace(l.Category))
	rawPrice := strings.TrimSpace(l.Price)

	switch {
	case name == "":
		return "", "", 0, "name", "service name is required"
	case len(name) > 100:
		return "", "", 0, "name", "service name must be at most 100 characters"
	case cat == "":
		return "", "", 0, "category", "category is required"
	case !cat.Valid():
		return "", "", 0, "category", "unknown category"
	case rawPrice == "":
		return "", "", 0, "price", "price is required"
	}
	p, err := strconv.ParseInt(rawPrice, 10, 64)
	if err != nil {
		return "", "", 0, "price", "price must be a whole number"
	}
	if p <= 0 {
		return "", "", 0, "price", "price must be greater than zero"
	}
	return name, cat, p, "", ""
}

// CreateServices inserts each valid line on its own. Invalid lines and
// failed inserts are skipped; the rest still go through.
func (c *Catalog) CreateServices(ctx context.Context, provider *models.User, lines []ServiceLine) ([]models.Service, []SkippedLine) {
	created := make([]models.Service, 0, len(lines))
	var skipped []SkippedLine

	for i, l := range lines {
		name, cat, price, _, reason := parseLine(l)
		if reason != "" {
			skipped = append(skipped, SkippedLine{Index: i, Reason: reason})
			continue
		}
		svc := models.Service{Name: name, Category: cat, Price: price, ProviderID: provider.ID, IsAvailable: true}
		if err := c.repo.CreateService(ctx, &svc); err != nil {
			log.Error().Err(err).Int("line", i).Msg("create service line")
			skipped = append(skipped, SkippedLine{Index: i, Reason: "could not be saved"})
			continue
		}
		created = append(created, svc)
	}
	return created, skipped
}

// CreateService adds a single listing and reports a bad line as a validation error.
func (c *Catalog) CreateService(ctx context.Context, actor *models.User, line ServiceLine) (*models.Service, error) {
	if err := requireProvider(actor); err != nil {
		return nil, err
	}
	name, cat, price, field, reason := parseLine(line)
	if reason != "" {
		errs := apperr.FieldErrors{}
		errs.Add(field, reason)
		return nil, apperr.Validation("invalid service", errs)
	}
	svc := &models.Service{Name: name, Category: cat, Price: price, ProviderID: actor.ID, IsAvailable: true}
	if err := c.repo.CreateService(ctx, svc); err != nil {
		return nil, apperr.Internal(err)
	}
	return svc, nil
}

// ToggleAvailability flips the owner's listing between available and not.
func (c *Catalog) ToggleAvailability(ctx context.Context, actor *models.User, serviceID uint) (*models.Service, error) {
	if err := requireProvider(actor); err != nil {
		return nil, err
	}
	svc, err := c.find(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.OwnedBy(actor) {
		return nil, ErrNotOwner
	}
	svc.IsAvailable = !svc.IsAvailable
	if err := c.repo.SetServiceAvailability(ctx, svc.ID, svc.IsAvailable); err != nil {
		return nil, apperr.Internal(err)
	}
	return svc, nil
}

type ProviderGroup struct {
	Provider *models.User     `json:"provider"`
	Services []models.Service `json:"services"`
}

type CategoryGroup struct {
	Category     models.Category `json:"category"`
	Slug         string          `json:"slug"`
	Providers    []ProviderGroup `json:"providers"`
	ServiceCount int             `json:"service_count"`
}

// ListGrouped returns every category, sorted by name, with matching services
// grouped by provider in listing order.
func (c *Catalog) ListGrouped(ctx context.Context, search string, category models.Category) ([]CategoryGroup, error) {
	services, err := c.repo.ListServices(ctx, models.ServiceFilter{Search: strings.TrimSpace(search), Category: category})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	byCategory := map[models.Category][]ProviderGroup{}
	index := map[models.Category]map[uuid.UUID]int{}
	for _, s := range services {
		if index[s.Category] == nil {
			index[s.Category] = map[uuid.UUID]int{}
		}
		i, ok := index[s.Category][s.ProviderID]
		if !ok {
			i = len(byCategory[s.Category])
			index[s.Category][s.ProviderID] = i
			byCategory[s.Category] = append(byCategory[s.Category], ProviderGroup{Provider: s.Provider})
		}
		svc := s
		svc.Provider = nil
		byCategory[s.Category][i].Services = append(byCategory[s.Category][i].Services, svc)
	}

	groups := make([]CategoryGroup, 0, len(models.Categories))
	for _, cat := range models.Categories {
		providers := byCategory[cat]
		if providers == nil {
			providers = []ProviderGroup{}
		}
		n := 0
		for _, p := range providers {
			n += len(p.Services)
		}
		groups = append(groups, CategoryGroup{Category: cat, Slug: cat.Slug(), Providers: providers, ServiceCount: n})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups, nil
}

// ListByCategorySlug lists one category, e.g. "appliance-repair".
func (c *Catalog) ListByCategorySlug(ctx context.Context, slug, search string) (*CategoryGroup, error) {
	cat, ok := models.CategoryFromSlug(slug)
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "category not found")
	}
	groups, err := c.ListGrouped(ctx, search, cat)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].Category == cat {
			return &groups[i], nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "category not found")
}

type ProviderSummary struct {
	Provider models.User      `json:"provider"`
	Services []models.Service `json:"services"`
	models.ProviderActivity
}

// ListProviders returns every provider with their services and activity.
func (c *Catalog) ListProviders(ctx context.Context, search string) ([]ProviderSummary, error) {
	providers, err := c.repo.ListProviders(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]uuid.UUID, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	activity, err := c.repo.ProviderActivity(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	out := make([]ProviderSummary, 0, len(providers))
	for _, p := range providers {
		services, err := c.repo.ListServices(ctx, models.ServiceFilter{ProviderID: p.ID})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for i := range services {
			services[i].Provider = nil
		}
		out = append(out, ProviderSummary{Provider: p, Services: services, ProviderActivity: activity[p.ID]})
	}
	return out, nil
}

type ServiceDetail struct {
	Service          *models.Service  `json:"service"`
	Provider         *models.User     `json:"provider"`
	ProviderServices []models.Service `json:"provider_services"`
	models.ProviderActivity
}

func (c *Catalog) Detail(ctx context.Context, serviceID uint) (*ServiceDetail, error) {
	svc, err := c.find(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	others, err := c.repo.ListServices(ctx, models.ServiceFilter{ProviderID: svc.ProviderID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range others {
		others[i].Provider = nil
	}
	activity, err := c.repo.ProviderActivity(ctx, []uuid.UUID{svc.ProviderID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ServiceDetail{
		Service:          svc,
		Provider:         svc.Provider,
		ProviderServices: others,
		ProviderActivity: activity[svc.ProviderID],
	}, nil
}

func (c *Catalog) find(ctx context.Context, id uint) (*models.Service, error) {
	svc, err := c.repo.FindService(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return svc, nil
}

func requireProvider(u *models.User) error {
	if u == nil {
		return apperr.New(apperr.KindUnauthorized, "login required")
	}
	if !u.IsProvider {
		return ErrNotProvider
	}
	return nil
}
