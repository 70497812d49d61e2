package importapp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/erp/importer/internal/domain/catalog"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/prescription"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/domain/workspace"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoCreator is returned when the tenant has no user to own imported documents
var ErrNoCreator = errors.New("no creator user found for tenant")

// Resolver finds or creates the entities rows refer to. Lookups go exact
// key, then scored fuzzy match, then create. Everything resolved is cached
// for the rest of the run.
//
// Entities created inside a row that is later rolled back must not stay
// cached, so callers bracket each row with Checkpoint and Commit or Rollback.
type Resolver struct {
	tenantID       uuid.UUID
	defaultTaxRate decimal.Decimal

	contacts   map[int64]*contactIndex
	products   *productIndex
	taxes      map[string]*catalog.Tax
	masterData map[prescription.Tag]*itemIndex
	workspaces []*workspace.Workspace

	undo    []func()
	created map[string]int
}

// NewResolver creates a resolver for one tenant and one run
func NewResolver(tenantID uuid.UUID, defaultTaxRate decimal.Decimal) *Resolver {
	if !defaultTaxRate.IsPositive() {
		defaultTaxRate = catalog.DefaultTaxRate
	}
	return &Resolver{
		tenantID:       tenantID,
		defaultTaxRate: defaultTaxRate,
		contacts:       make(map[int64]*contactIndex),
		taxes:          make(map[string]*catalog.Tax),
		masterData:     make(map[prescription.Tag]*itemIndex),
		created:        make(map[string]int),
	}
}

// Checkpoint starts tracking cache changes for one row
func (r *Resolver) Checkpoint() {
	r.undo = r.undo[:0]
}

// Commit keeps the cache changes made since Checkpoint
func (r *Resolver) Commit() {
	r.undo = r.undo[:0]
}

// Rollback forgets every entity cached since Checkpoint
func (r *Resolver) Rollback() {
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.undo = r.undo[:0]
}

// Created returns how many entities of each kind the run created
func (r *Resolver) Created() map[string]int {
	out := make(map[string]int, len(r.created))
	for k, v := range r.created {
		out[k] = v
	}
	return out
}

func (r *Resolver) track(kind string, undo func()) {
	r.created[kind]++
	r.undo = append(r.undo, func() {
		r.created[kind]--
		undo()
	})
}

// ResolveCreator returns the user given by email, or the oldest user of
// the tenant when email is empty.
func (r *Resolver) ResolveCreator(ctx context.Context, repos Repositories, email string) (*workspace.User, error) {
	var (
		user *workspace.User
		err  error
	)
	if email = strings.TrimSpace(email); email != "" {
		user, err = repos.Users().FindByEmail(ctx, r.tenantID, email)
	} else {
		user, err = repos.Users().FindFirst(ctx, r.tenantID)
	}
	if errors.Is(err, shared.ErrNotFound) {
		if email != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoCreator, email)
		}
		return nil, ErrNoCreator
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load creator user: %w", err)
	}
	return user, nil
}

// ResolveWorkspace finds the workspace by name or creates it
func (r *Resolver) ResolveWorkspace(ctx context.Context, repos Repositories, name string) (*workspace.Workspace, bool, error) {
	if r.workspaces == nil {
		all, err := repos.Workspaces().FindAll(ctx, r.tenantID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load workspaces: %w", err)
		}
		r.workspaces = all
	}

	key := contact.NormalizeName(name)
	candidates := make([]Candidate, 0, len(r.workspaces))
	byID := make(map[int64]*workspace.Workspace, len(r.workspaces))
	for _, w := range r.workspaces {
		if contact.NormalizeName(w.Name) == key {
			return w, false, nil
		}
		candidates = append(candidates, Candidate{ID: w.ID, Name: w.Name})
		byID[w.ID] = w
	}
	if m, ok := BestMatch(name, candidates); ok {
		return byID[m.ID], false, nil
	}

	w, err := workspace.NewWorkspace(r.tenantID, name)
	if err != nil {
		return nil, false, err
	}
	if err := repos.Workspaces().Save(ctx, w); err != nil {
		return nil, false, fmt.Errorf("failed to create workspace: %w", err)
	}
	r.workspaces = append(r.workspaces, w)
	r.track("workspace", func() { r.workspaces = r.workspaces[:len(r.workspaces)-1] })
	logger.L(ctx).Info("Created workspace", zap.Int64("workspace_id", w.ID), zap.String("name", w.Name))
	return w, true, nil
}

// ContactQuery identifies the contact a row refers to
type ContactQuery struct {
	WorkspaceID          int64
	Name                 string
	IdentificationNumber string
	// Type is used for new contacts and, unless AnyType is set, restricts matching
	Type    contact.ContactType
	AnyType bool
}

type contactIndex struct {
	byKey      map[string][]*contact.Contact
	byIDNumber map[string]*contact.Contact
	all        []*contact.Contact
}

func (idx *contactIndex) add(c *contact.Contact) {
	key := contact.NormalizeName(c.Name)
	idx.byKey[key] = append(idx.byKey[key], c)
	if c.IdentificationNumber != "" {
		if _, taken := idx.byIDNumber[c.IdentificationNumber]; !taken {
			idx.byIDNumber[c.IdentificationNumber] = c
		}
	}
	idx.all = append(idx.all, c)
}

func (idx *contactIndex) remove(c *contact.Contact) {
	key := contact.NormalizeName(c.Name)
	idx.byKey[key] = without(idx.byKey[key], c)
	if len(idx.byKey[key]) == 0 {
		delete(idx.byKey, key)
	}
	if idx.byIDNumber[c.IdentificationNumber] == c {
		delete(idx.byIDNumber, c.IdentificationNumber)
	}
	idx.all = without(idx.all, c)
}

func without[T comparable](list []T, v T) []T {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func (r *Resolver) contactIndex(ctx context.Context, repos Repositories, workspaceID int64) (*contactIndex, error) {
	if idx, ok := r.contacts[workspaceID]; ok {
		return idx, nil
	}
	all, err := repos.Contacts().FindAll(ctx, r.tenantID, contact.ContactFilter{WorkspaceID: &workspaceID})
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	idx := &contactIndex{
		byKey:      make(map[string][]*contact.Contact),
		byIDNumber: make(map[string]*contact.Contact),
	}
	for _, c := range all {
		idx.add(c)
	}
	r.contacts[workspaceID] = idx
	return idx, nil
}

// FindContactByName returns the oldest contact of the workspace whose
// normalized name equals name, including contacts created earlier in the run.
func (r *Resolver) FindContactByName(ctx context.Context, repos Repositories, workspaceID int64, name string) (*contact.Contact, error) {
	idx, err := r.contactIndex(ctx, repos, workspaceID)
	if err != nil {
		return nil, err
	}
	if list := idx.byKey[contact.NormalizeName(name)]; len(list) > 0 {
		return lowestID(list), nil
	}
	return nil, nil
}

// RememberContact adds a contact created outside the resolver to the cache
func (r *Resolver) RememberContact(ctx context.Context, repos Repositories, c *contact.Contact) error {
	idx, err := r.contactIndex(ctx, repos, c.WorkspaceID)
	if err != nil {
		return err
	}
	idx.add(c)
	r.track("contact", func() { idx.remove(c) })
	return nil
}

// ResolveContact finds the contact by identification number, then exact
// name, then fuzzy name, and creates it when nothing matches.
func (r *Resolver) ResolveContact(ctx context.Context, repos Repositories, q ContactQuery) (*contact.Contact, bool, error) {
	idx, err := r.contactIndex(ctx, repos, q.WorkspaceID)
	if err != nil {
		return nil, false, err
	}
	accept := func(c *contact.Contact) bool { return q.AnyType || c.Type == q.Type }

	if q.IdentificationNumber != "" {
		if c, ok := idx.byIDNumber[q.IdentificationNumber]; ok {
			return c, false, nil
		}
	}

	if list := idx.byKey[contact.NormalizeName(q.Name)]; len(list) > 0 {
		var matching []*contact.Contact
		for _, c := range list {
			if accept(c) {
				matching = append(matching, c)
			}
		}
		if len(matching) > 0 {
			return lowestID(matching), false, nil
		}
	}

	candidates := make([]Candidate, 0, len(idx.all))
	byID := make(map[int64]*contact.Contact, len(idx.all))
	for _, c := range idx.all {
		if accept(c) {
			candidates = append(candidates, Candidate{ID: c.ID, Name: c.Name})
			byID[c.ID] = c
		}
	}
	if m, ok := BestMatch(q.Name, candidates); ok {
		logger.L(ctx).Debug("Fuzzy contact match",
			zap.String("query", q.Name), zap.String("matched", m.Name), zap.Int64("contact_id", m.ID))
		return byID[m.ID], false, nil
	}

	c, err := contact.NewContact(r.tenantID, q.WorkspaceID, q.Name, q.Type)
	if err != nil {
		return nil, false, err
	}
	if q.IdentificationNumber != "" {
		c.SetIdentification(IdentificationType(q.IdentificationNumber), q.IdentificationNumber)
	}
	if err := repos.Contacts().Save(ctx, c); err != nil {
		return nil, false, fmt.Errorf("failed to create contact: %w", err)
	}
	idx.add(c)
	r.track("contact", func() { idx.remove(c) })
	return c, true, nil
}

// IdentificationType guesses the document kind from its digit count:
// 9 digits is an RNC, 11 digits a cedula.
func IdentificationType(number string) string {
	switch len(number) {
	case 9:
		return "RNC"
	case 11:
		return "CEDULA"
	}
	return "OTRO"
}

func lowestID(list []*contact.Contact) *contact.Contact {
	best := list[0]
	for _, c := range list[1:] {
		if c.ID < best.ID {
			best = c
		}
	}
	return best
}

// ProductQuery identifies the product a row refers to
type ProductQuery struct {
	Ref   string
	Name  string
	Price decimal.Decimal
	TaxID *int64
}

type productIndex struct {
	bySKU map[string]*catalog.Product
	byKey map[string]*catalog.Product
	all   []*catalog.Product
}

func (idx *productIndex) add(p *catalog.Product) {
	idx.bySKU[p.SKU] = p
	key := contact.NormalizeName(p.Name)
	if cur, ok := idx.byKey[key]; !ok || p.ID < cur.ID {
		idx.byKey[key] = p
	}
	idx.all = append(idx.all, p)
}

func (idx *productIndex) remove(p *catalog.Product) {
	delete(idx.bySKU, p.SKU)
	key := contact.NormalizeName(p.Name)
	if idx.byKey[key] == p {
		delete(idx.byKey, key)
	}
	idx.all = without(idx.all, p)
}

func (r *Resolver) productIndex(ctx context.Context, repos Repositories) (*productIndex, error) {
	if r.products != nil {
		return r.products, nil
	}
	all, err := repos.Products().FindAll(ctx, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	idx := &productIndex{
		bySKU: make(map[string]*catalog.Product, len(all)),
		byKey: make(map[string]*catalog.Product, len(all)),
	}
	for _, p := range all {
		idx.add(p)
	}
	r.products = idx
	return idx, nil
}

// FindProductBySKU returns the cached product holding sku, if any
func (r *Resolver) FindProductBySKU(ctx context.Context, repos Repositories, sku string) (*catalog.Product, error) {
	idx, err := r.productIndex(ctx, repos)
	if err != nil {
		return nil, err
	}
	return idx.bySKU[strings.ToUpper(sku)], nil
}

// ResolveProduct finds the product by SKU, then exact name, then fuzzy
// name, and creates it with a generated SKU when nothing matches.
func (r *Resolver) ResolveProduct(ctx context.Context, repos Repositories, q ProductQuery) (*catalog.Product, bool, error) {
	idx, err := r.productIndex(ctx, repos)
	if err != nil {
		return nil, false, err
	}

	if sku := NormalizeSKU(q.Ref); sku != "" {
		if p, ok := idx.bySKU[sku]; ok {
			return p, false, nil
		}
	}

	name := strings.TrimSpace(q.Name)
	if name == "" {
		name = strings.TrimSpace(q.Ref)
	}
	if name == "" {
		return nil, false, shared.NewDomainError("INVALID_PRODUCT", "Product needs a reference or a name")
	}

	if p, ok := idx.byKey[contact.NormalizeName(name)]; ok {
		return p, false, nil
	}

	candidates := make([]Candidate, len(idx.all))
	byID := make(map[int64]*catalog.Product, len(idx.all))
	for i, p := range idx.all {
		candidates[i] = Candidate{ID: p.ID, Name: p.Name}
		byID[p.ID] = p
	}
	if m, ok := BestMatch(name, candidates); ok {
		return byID[m.ID], false, nil
	}

	p, err := r.createProduct(ctx, repos, idx, q.Ref, name, q.Price, q.TaxID)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// CreateProduct creates a product with a generated SKU without matching
func (r *Resolver) CreateProduct(ctx context.Context, repos Repositories, ref, name string, price decimal.Decimal, taxID *int64) (*catalog.Product, error) {
	idx, err := r.productIndex(ctx, repos)
	if err != nil {
		return nil, err
	}
	return r.createProduct(ctx, repos, idx, ref, name, price, taxID)
}

func (r *Resolver) createProduct(ctx context.Context, repos Repositories, idx *productIndex, ref, name string, price decimal.Decimal, taxID *int64) (*catalog.Product, error) {
	exists := func(ctx context.Context, sku string) (bool, error) {
		if _, ok := idx.bySKU[sku]; ok {
			return true, nil
		}
		return repos.Products().ExistsBySKU(ctx, r.tenantID, sku)
	}
	sku, err := GenerateSKU(ctx, ref, name, exists)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		price = decimal.Zero
	}

	p, err := catalog.NewProduct(r.tenantID, sku, name, price)
	if err != nil {
		return nil, err
	}
	if taxID != nil {
		p.AssignTax(*taxID)
	}
	if err := repos.Products().Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	idx.add(p)
	r.track("product", func() { idx.remove(p) })
	return p, nil
}

// ResolveTax returns the tax with the name, creating it with rate (or the
// default rate) when missing. An existing tax keeps its stored rate.
func (r *Resolver) ResolveTax(ctx context.Context, repos Repositories, name string, rate decimal.Decimal) (*catalog.Tax, bool, error) {
	name = strings.TrimSpace(name)
	key := strings.ToLower(name)
	if t, ok := r.taxes[key]; ok {
		return t, false, nil
	}

	t, err := repos.Taxes().FindByName(ctx, r.tenantID, name)
	if err == nil {
		r.taxes[key] = t
		return t, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to find tax: %w", err)
	}

	t, err = catalog.NewTax(r.tenantID, name, rate, r.defaultTaxRate)
	if err != nil {
		return nil, false, err
	}
	if err := repos.Taxes().Save(ctx, t); err != nil {
		return nil, false, fmt.Errorf("failed to create tax: %w", err)
	}
	r.taxes[key] = t
	r.track("tax", func() { delete(r.taxes, key) })
	return t, true, nil
}

type itemIndex struct {
	table *prescription.MasterTable
	items []*prescription.MasterTableItem
}

// ResolveMasterItem finds the item of the tag's master table by exact or
// fuzzy name and creates it when missing.
func (r *Resolver) ResolveMasterItem(ctx context.Context, repos Repositories, tag prescription.Tag, name string) (*prescription.MasterTableItem, bool, error) {
	idx, ok := r.masterData[tag]
	if !ok {
		table, err := repos.MasterTables().FindOrCreateTable(ctx, r.tenantID, string(tag))
		if err != nil {
			return nil, false, fmt.Errorf("failed to load master table %s: %w", tag, err)
		}
		items, err := repos.MasterTables().FindItems(ctx, r.tenantID, table.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load master table items: %w", err)
		}
		idx = &itemIndex{table: table, items: items}
		r.masterData[tag] = idx
		// the table may have been created inside a row that rolls back
		r.undo = append(r.undo, func() { delete(r.masterData, tag) })
	}

	key := contact.NormalizeName(name)
	candidates := make([]Candidate, 0, len(idx.items))
	byID := make(map[int64]*prescription.MasterTableItem, len(idx.items))
	var exact *prescription.MasterTableItem
	for _, item := range idx.items {
		if contact.NormalizeName(item.Name) == key && (exact == nil || item.ID < exact.ID) {
			exact = item
		}
		candidates = append(candidates, Candidate{ID: item.ID, Name: item.Name})
		byID[item.ID] = item
	}
	if exact != nil {
		return exact, false, nil
	}
	if m, ok := BestMatch(name, candidates); ok {
		return byID[m.ID], false, nil
	}

	item := &prescription.MasterTableItem{
		TenantEntity:  shared.NewTenantEntity(r.tenantID),
		MasterTableID: idx.table.ID,
		Name:          strings.TrimSpace(name),
	}
	if err := repos.MasterTables().SaveItem(ctx, item); err != nil {
		return nil, false, fmt.Errorf("failed to create master table item: %w", err)
	}
	idx.items = append(idx.items, item)
	r.track("master_item", func() { idx.items = without(idx.items, item) })
	return item, true, nil
}

// sortedKinds returns the created kinds in a stable order for logging
func sortedKinds(m map[string]int) []string {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
