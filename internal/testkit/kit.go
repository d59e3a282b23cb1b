// Package testkit provides in-memory implementations of the persistence
// ports plus seed fixtures, so the application services can be tested
// without a database.
package testkit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vennqca/domain/core"
	"vennqca/models"
)

// Store bundles in-memory repositories sharing one id sequence per entity.
type Store struct {
	Variables     *VariableRepo
	Proxies       *ProxyRepo
	Organizations *OrganizationRepo
	Matches       *MatchRepo
	Intersections *IntersectionRepo
}

func NewStore() *Store {
	return &Store{
		Variables:     &VariableRepo{items: map[int64]*models.Variable{}},
		Proxies:       &ProxyRepo{items: map[int64]*models.Proxy{}},
		Organizations: &OrganizationRepo{items: map[int64]*models.Organization{}},
		Matches:       &MatchRepo{items: map[int64]*models.ProxyMatch{}},
		Intersections: &IntersectionRepo{items: map[int64]*models.Intersection{}, results: map[int64]*models.IntersectionResult{}},
	}
}

// VariableRepo is the in-memory VariableRepository.
type VariableRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Variable
}

func (r *VariableRepo) Create(_ context.Context, v *models.Variable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	v.ID = r.nextID
	v.CreatedAt = time.Now()
	cp := *v
	r.items[v.ID] = &cp
	return nil
}

func (r *VariableRepo) GetByID(_ context.Context, id int64) (*models.Variable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return nil, core.ErrVariableNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *VariableRepo) List(_ context.Context) ([]*models.Variable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Variable, 0, len(r.items))
	for _, v := range r.items {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *VariableRepo) Update(_ context.Context, v *models.Variable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[v.ID]; !ok {
		return core.ErrVariableNotFound
	}
	now := time.Now()
	v.UpdatedAt = &now
	cp := *v
	r.items[v.ID] = &cp
	return nil
}

func (r *VariableRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return core.ErrVariableNotFound
	}
	delete(r.items, id)
	return nil
}

// ProxyRepo is the in-memory ProxyRepository.
type ProxyRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Proxy
}

func (r *ProxyRepo) Create(_ context.Context, p *models.Proxy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *ProxyRepo) GetByID(_ context.Context, id int64) (*models.Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, core.ErrProxyNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProxyRepo) ListByVariable(_ context.Context, variableID int64) ([]*models.Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Proxy
	for _, p := range r.items {
		if p.VariableID == variableID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProxyRepo) List(_ context.Context) ([]*models.Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Proxy, 0, len(r.items))
	for _, p := range r.items {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProxyRepo) FindByText(_ context.Context, fragment string) ([]*models.Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(fragment)
	var out []*models.Proxy
	for _, p := range r.items {
		term := strings.ToLower(p.Term)
		if strings.Contains(term, needle) || strings.Contains(needle, term) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProxyRepo) Update(_ context.Context, p *models.Proxy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return core.ErrProxyNotFound
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *ProxyRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return core.ErrProxyNotFound
	}
	delete(r.items, id)
	return nil
}

// OrganizationRepo is the in-memory OrganizationRepository.
type OrganizationRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Organization
}

func (r *OrganizationRepo) Create(_ context.Context, o *models.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now()
	cp := *o
	r.items[o.ID] = &cp
	return nil
}

func (r *OrganizationRepo) GetByID(_ context.Context, id int64) (*models.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return nil, core.ErrOrganizationNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *OrganizationRepo) List(_ context.Context) ([]*models.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Organization, 0, len(r.items))
	for _, o := range r.items {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *OrganizationRepo) Update(_ context.Context, o *models.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[o.ID]; !ok {
		return core.ErrOrganizationNotFound
	}
	now := time.Now()
	o.UpdatedAt = &now
	cp := *o
	r.items[o.ID] = &cp
	return nil
}

func (r *OrganizationRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return core.ErrOrganizationNotFound
	}
	delete(r.items, id)
	return nil
}

// MatchRepo is the in-memory MatchRepository.
type MatchRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.ProxyMatch
}

func (r *MatchRepo) Upsert(_ context.Context, m *models.ProxyMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.Status == "" {
		m.Status = models.VerificationPending
	}
	m.MatchedAt = time.Now()
	for id, existing := range r.items {
		if existing.OrganizationID == m.OrganizationID && existing.ProxyID == m.ProxyID {
			m.ID = id
			m.CorrectedValue = nil
			m.VerifiedBy = ""
			m.VerifiedAt = nil
			m.Notes = ""
			cp := *m
			r.items[id] = &cp
			return nil
		}
	}
	r.nextID++
	m.ID = r.nextID
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *MatchRepo) Get(_ context.Context, orgID, proxyID int64) (*models.ProxyMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.items {
		if m.OrganizationID == orgID && m.ProxyID == proxyID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, core.ErrMatchNotFound
}

func (r *MatchRepo) ListByOrganization(_ context.Context, orgID int64) ([]*models.ProxyMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ProxyMatch
	for _, m := range r.items {
		if m.OrganizationID == orgID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProxyID < out[j].ProxyID })
	return out, nil
}

func (r *MatchRepo) ListPending(_ context.Context, limit int) ([]*models.ProxyMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ProxyMatch
	for _, m := range r.items {
		if m.Status == models.VerificationPending {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchedAt.Before(out[j].MatchedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MatchRepo) SetVerification(_ context.Context, matchID int64, status models.VerificationStatus, corrected *bool, verifiedBy, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[matchID]
	if !ok {
		return core.ErrMatchNotFound
	}
	now := time.Now()
	m.Status = status
	m.CorrectedValue = corrected
	m.VerifiedBy = verifiedBy
	m.VerifiedAt = &now
	m.Notes = notes
	return nil
}

func (r *MatchRepo) ListAll(_ context.Context) ([]*models.ProxyMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ProxyMatch, 0, len(r.items))
	for _, m := range r.items {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IntersectionRepo is the in-memory IntersectionRepository.
type IntersectionRepo struct {
	mu           sync.Mutex
	nextID       int64
	nextResultID int64
	items        map[int64]*models.Intersection
	results      map[int64]*models.IntersectionResult
}

func (r *IntersectionRepo) Create(_ context.Context, in *models.Intersection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	in.ID = r.nextID
	in.CreatedAt = time.Now()
	cp := *in
	r.items[in.ID] = &cp
	return nil
}

func (r *IntersectionRepo) GetByID(_ context.Context, id int64) (*models.Intersection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.items[id]
	if !ok {
		return nil, core.ErrIntersectionNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *IntersectionRepo) List(_ context.Context) ([]*models.Intersection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Intersection
	for _, in := range r.items {
		if in.IsActive {
			cp := *in
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *IntersectionRepo) Update(_ context.Context, in *models.Intersection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[in.ID]; !ok {
		return core.ErrIntersectionNotFound
	}
	now := time.Now()
	in.UpdatedAt = &now
	cp := *in
	r.items[in.ID] = &cp
	return nil
}

func (r *IntersectionRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return core.ErrIntersectionNotFound
	}
	delete(r.items, id)
	for rid, res := range r.results {
		if res.IntersectionID == id {
			delete(r.results, rid)
		}
	}
	return nil
}

func (r *IntersectionRepo) SaveResult(_ context.Context, result *models.IntersectionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.CalculatedAt = time.Now()
	result.Stale = false
	for id, existing := range r.results {
		if existing.IntersectionID == result.IntersectionID && existing.OrganizationID == result.OrganizationID {
			result.ID = id
			cp := *result
			r.results[id] = &cp
			return nil
		}
	}
	r.nextResultID++
	result.ID = r.nextResultID
	cp := *result
	r.results[result.ID] = &cp
	return nil
}

func (r *IntersectionRepo) ListResults(_ context.Context, intersectionID int64) ([]*models.IntersectionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.IntersectionResult
	for _, res := range r.results {
		if res.IntersectionID == intersectionID {
			cp := *res
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrganizationID < out[j].OrganizationID })
	return out, nil
}

func (r *IntersectionRepo) MarkResultsStale(_ context.Context, intersectionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.IntersectionID == intersectionID {
			res.Stale = true
		}
	}
	return nil
}

// Fixture seeds a store with two variables, four proxies and three
// organizations, roughly the shape of the production dataset in miniature.
type Fixture struct {
	Store *Store

	VarMercados  *models.Variable
	VarFormacion *models.Variable

	// Proxies 1-2 belong to VarMercados, 3-4 to VarFormacion.
	Proxies []*models.Proxy

	Orgs []*models.Organization
}

// Seed builds and persists the fixture.
func Seed(ctx context.Context) (*Fixture, error) {
	s := NewStore()
	f := &Fixture{Store: s}

	f.VarMercados = &models.Variable{Name: "Mercados Campesinos", Code: "MC", Weight: 1}
	f.VarFormacion = &models.Variable{Name: "Formación", Code: "FO", Weight: 1}
	for _, v := range []*models.Variable{f.VarMercados, f.VarFormacion} {
		if err := s.Variables.Create(ctx, v); err != nil {
			return nil, err
		}
	}

	terms := []struct {
		varID int64
		term  string
	}{
		{f.VarMercados.ID, "mercados campesinos"},
		{f.VarMercados.ID, "mercados"},
		{f.VarFormacion.ID, "formación"},
		{f.VarFormacion.ID, "talleres"},
	}
	for _, t := range terms {
		p := &models.Proxy{VariableID: t.varID, Term: t.term, MatchType: models.MatchContains, Weight: 1}
		if err := s.Proxies.Create(ctx, p); err != nil {
			return nil, err
		}
		f.Proxies = append(f.Proxies, p)
	}

	for _, name := range []string{"Asociación Andina", "Colectivo del Río", "Fundación Páramo"} {
		o := &models.Organization{Name: name}
		if err := s.Organizations.Create(ctx, o); err != nil {
			return nil, err
		}
		f.Orgs = append(f.Orgs, o)
	}
	return f, nil
}

// SetMatch records a match fact for (org, proxy) with the given value.
func (f *Fixture) SetMatch(ctx context.Context, orgID, proxyID int64, found bool) error {
	return f.Store.Matches.Upsert(ctx, &models.ProxyMatch{
		OrganizationID: orgID,
		ProxyID:        proxyID,
		Found:          found,
		Confidence:     0.9,
	})
}
