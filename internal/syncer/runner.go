package syncer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/queue"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// Runner orchestrates one full sync pass: every account in turn, and for
// each account the three entity syncers in sequence against a shared
// action queue that is drained at the end.
type Runner struct {
	Accounts *store.Store
	Client   *hubspot.Client
	Sink     queue.Sink

	// Sleep is handed to the retry executor; nil means time.Sleep.
	Sleep func(time.Duration)
}

// sources returns the entity syncers in run order. People go first so
// freshly associated companies are resolvable within the same pass.
func (r *Runner) sources() []Source {
	return []Source{
		&PersonSource{Client: r.Client},
		&OrganizationSource{},
		&MeetingSource{Client: r.Client},
	}
}

// Run processes every stored account strictly sequentially. Per-account
// and per-entity failures are logged and isolated; they never stop the
// rest of the pass.
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("start pulling data from CRM")

	accounts, err := r.Accounts.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	for _, account := range accounts {
		r.RunAccount(ctx, account)
	}

	return nil
}

// RunAccount refreshes the shared session for one account, runs each
// entity syncer, and drains the queue. A failed refresh is logged but does
// not stop the entity runs: the executor retries with its own refresh path.
func (r *Runner) RunAccount(ctx context.Context, account *store.Account) {
	log.Printf("start processing account %s", account.HubID)

	sess := r.Client.Session()
	if err := sess.Refresh(ctx, account); err != nil {
		log.Printf("refresh access token for account %s: %v", account.HubID, err)
	}

	q := queue.New(r.Sink, queue.DefaultFlushThreshold)
	exec := &Executor{Session: sess, Sleep: r.Sleep}

	for _, src := range r.sources() {
		if err := r.syncEntity(ctx, exec, account, src, q); err != nil {
			log.Printf("sync %s for account %s: %v", src.Entity(), account.HubID, err)
			if serr := r.Accounts.UpdateSyncStatus(ctx, account.HubID, src.Entity(), store.StatusError, err.Error()); serr != nil {
				log.Printf("update sync status: %v", serr)
			}
			continue
		}
		if serr := r.Accounts.UpdateSyncStatus(ctx, account.HubID, src.Entity(), store.StatusSynced, ""); serr != nil {
			log.Printf("update sync status: %v", serr)
		}
	}

	if err := q.Drain(ctx); err != nil {
		log.Printf("drain queue for account %s: %v", account.HubID, err)
	}

	log.Printf("finish processing account %s", account.HubID)
}

// syncEntity pages through one entity's window, queueing actions as pages
// arrive. The checkpoint is set to the run-start instant, not completion
// time, and only persisted after a full successful traversal: a failure
// leaves the prior checkpoint untouched so the next run re-scans the same
// window. Actions already queued from earlier pages stay queued.
func (r *Runner) syncEntity(ctx context.Context, exec *Executor, account *store.Account, src Source, q *queue.Queue) error {
	checkpoint := account.Checkpoint(src.Entity())
	runStart := time.Now()

	if err := r.Accounts.UpdateSyncStatus(ctx, account.HubID, src.Entity(), store.StatusSyncing, ""); err != nil {
		log.Printf("update sync status: %v", err)
	}

	cur := NewCursor(checkpoint, runStart)
	for {
		req := cur.NextRequest(src.Properties(), src.DateProperty())

		page, err := exec.Execute(ctx, account, src.Entity(), func(ctx context.Context) (*hubspot.SearchResponse, error) {
			return r.Client.SearchObjects(ctx, src.ObjectType(), req)
		})
		if err != nil {
			return err
		}

		actions, err := src.BuildActions(ctx, page.Results, checkpoint)
		if err != nil {
			return fmt.Errorf("build %s actions: %w", src.Entity(), err)
		}
		for _, a := range actions {
			q.Push(ctx, a)
		}

		log.Printf("fetched %s batch for account %s (%d records)", src.Entity(), account.HubID, len(page.Results))

		if len(page.Results) == 0 {
			break
		}
		last := page.Results[len(page.Results)-1]
		if !cur.Advance(page.Paging, &last) {
			break
		}
	}

	account.SetCheckpoint(src.Entity(), runStart)
	if err := r.Accounts.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	return nil
}
