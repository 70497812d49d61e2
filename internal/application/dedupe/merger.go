package dedupe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownWorkspace is returned when the requested workspace does not exist
var ErrUnknownWorkspace = errors.New("workspace not found")

// Options controls one merge run
type Options struct {
	TenantID uuid.UUID
	// Workspace limits the run to one workspace by name; empty means all
	Workspace string
	// MinKeys is the number of distinct key kinds two contacts must share
	MinKeys int
	// Execute applies the merge; otherwise the run only reports groups
	Execute bool
}

// Report describes the groups found and, when executed, what changed
type Report struct {
	RunID      uuid.UUID          `json:"run_id,omitempty"`
	DryRun     bool               `json:"dry_run"`
	Contacts   int                `json:"contacts"`
	Groups     []*Group           `json:"-"`
	Merged     int                `json:"merged"`
	Filled     map[int64][]string `json:"filled,omitempty"`
	Reassigned map[string]int64   `json:"reassigned,omitempty"`
	Duration   time.Duration      `json:"duration"`
}

// Duplicates returns how many contacts the groups would remove
func (r *Report) Duplicates() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Duplicates)
	}
	return n
}

// WriteTo prints the human readable report
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	mode := "dry run"
	if !r.DryRun {
		mode = "executed"
	}
	fmt.Fprintf(&b, "contact merge (%s): %d contacts, %d groups, %d duplicates\n",
		mode, r.Contacts, len(r.Groups), r.Duplicates())

	for _, g := range r.Groups {
		fmt.Fprintf(&b, "  #%d %s\n", g.Survivor.ID, g.Survivor.Name)
		for _, d := range g.Duplicates {
			fmt.Fprintf(&b, "    <- #%d %s\n", d.ID, d.Name)
		}
		if len(g.SharedKeys) > 0 {
			fmt.Fprintf(&b, "    keys: %s\n", strings.Join(g.SharedKeys, ", "))
		}
		if filled := r.Filled[g.Survivor.ID]; len(filled) > 0 {
			fmt.Fprintf(&b, "    filled: %s\n", strings.Join(filled, ", "))
		}
	}

	if !r.DryRun {
		fmt.Fprintf(&b, "  merged: %d\n", r.Merged)
		refs := make([]string, 0, len(r.Reassigned))
		for ref := range r.Reassigned {
			refs = append(refs, ref)
		}
		sort.Strings(refs)
		for _, ref := range refs {
			if n := r.Reassigned[ref]; n > 0 {
				fmt.Fprintf(&b, "    %s: %d\n", ref, n)
			}
		}
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Merger finds and merges duplicate contacts
type Merger struct {
	scope   importapp.TransactionScope
	history *importapp.HistoryService
	now     func() time.Time
}

// NewMerger creates a new Merger. history may be nil, in which case
// executed runs are not recorded.
func NewMerger(scope importapp.TransactionScope, history *importapp.HistoryService) *Merger {
	return &Merger{scope: scope, history: history, now: time.Now}
}

// Run groups the customer contacts of a tenant and, with opts.Execute, merges every
// group in a single transaction. A dry run writes nothing.
func (m *Merger) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{
		DryRun:     !opts.Execute,
		Filled:     make(map[int64][]string),
		Reassigned: make(map[string]int64),
	}
	if !opts.Execute {
		err := m.scope.Execute(ctx, func(repos importapp.Repositories) error {
			return m.plan(ctx, repos, opts, report)
		})
		return report, err
	}

	var history *bulk.ImportHistory
	if m.history != nil {
		var err error
		history, err = m.history.Begin(ctx, opts.TenantID, bulk.ImportEntityContactMerge, "contacts", 0)
		if err != nil {
			return nil, err
		}
		report.RunID = history.RunID
		ctx = logger.WithRun(ctx, logger.RunFields{
			RunID:    history.RunID.String(),
			TenantID: opts.TenantID.String(),
			Entity:   string(bulk.ImportEntityContactMerge),
		})
		if err := m.history.Start(ctx, history); err != nil {
			return nil, fmt.Errorf("failed to start merge history: %w", err)
		}
	}

	started := m.now()
	err := m.scope.Execute(ctx, func(repos importapp.Repositories) error {
		if err := m.plan(ctx, repos, opts, report); err != nil {
			return err
		}
		return m.apply(ctx, repos, opts.TenantID, report)
	})
	report.Duration = m.now().Sub(started)

	log := logger.L(ctx)
	if err != nil {
		log.Error("Contact merge failed, transaction rolled back", zap.Error(err))
		if history != nil {
			if herr := m.history.Fail(ctx, history, err); herr != nil {
				log.Warn("Failed to record failed merge", zap.Error(herr))
			}
		}
		report.Merged = 0
		return report, err
	}

	if history != nil {
		summary := importapp.NewSummary(bulk.ImportEntityContactMerge, history.FileName, 0)
		summary.Total = report.Contacts
		summary.Imported = report.Merged
		if err := m.history.Complete(ctx, history, summary); err != nil {
			return report, fmt.Errorf("failed to record merge history: %w", err)
		}
	}
	log.Info("Contact merge finished",
		zap.Int("groups", len(report.Groups)),
		zap.Int("merged", report.Merged),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (m *Merger) plan(ctx context.Context, repos importapp.Repositories, opts Options, report *Report) error {
	customers := contact.ContactTypeCustomer
	filter := contact.ContactFilter{Type: &customers}
	if opts.Workspace != "" {
		id, err := findWorkspace(ctx, repos, opts.TenantID, opts.Workspace)
		if err != nil {
			return err
		}
		filter.WorkspaceID = &id
	}

	contacts, err := repos.Contacts().FindAll(ctx, opts.TenantID, filter)
	if err != nil {
		return fmt.Errorf("failed to load contacts: %w", err)
	}
	report.Contacts = len(contacts)
	report.Groups = FindGroups(contacts, opts.MinKeys)

	logger.L(ctx).Info("Duplicate contacts grouped",
		zap.Int("contacts", report.Contacts),
		zap.Int("groups", len(report.Groups)),
		zap.Int("min_keys", max(opts.MinKeys, 1)))
	return nil
}

// apply merges every group: references are repointed to the survivor,
// the duplicates are deleted and the reconciled survivor is saved.
func (m *Merger) apply(ctx context.Context, repos importapp.Repositories, tenantID uuid.UUID, report *Report) error {
	log := logger.L(ctx)
	for _, g := range report.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		if filled := Reconcile(g); len(filled) > 0 {
			report.Filled[g.Survivor.ID] = filled
		}

		ids := g.IDs()
		changed, err := repos.Contacts().ReassignReferences(ctx, tenantID, ids, g.Survivor.ID)
		if err != nil {
			return fmt.Errorf("failed to reassign references to contact %d: %w", g.Survivor.ID, err)
		}
		for ref, n := range changed {
			report.Reassigned[ref] += n
		}

		if err := repos.Contacts().DeleteByIDs(ctx, tenantID, ids); err != nil {
			return fmt.Errorf("failed to delete duplicates of contact %d: %w", g.Survivor.ID, err)
		}
		if err := repos.Contacts().Save(ctx, g.Survivor); err != nil {
			return fmt.Errorf("failed to save contact %d: %w", g.Survivor.ID, err)
		}

		report.Merged += len(ids)
		log.Debug("Contacts merged",
			zap.Int64("survivor_id", g.Survivor.ID),
			zap.Int64s("duplicate_ids", ids),
			zap.Strings("keys", g.SharedKeys))
	}
	return nil
}

func findWorkspace(ctx context.Context, repos importapp.Repositories, tenantID uuid.UUID, name string) (int64, error) {
	all, err := repos.Workspaces().FindAll(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to load workspaces: %w", err)
	}
	for _, ws := range all {
		if strings.EqualFold(strings.TrimSpace(ws.Name), strings.TrimSpace(name)) {
			return ws.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownWorkspace, name)
}
