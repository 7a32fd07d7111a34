// Package ingest implements the resumable ingestion driver: the main loop
// that walks each entity class's paginated listing, fetches items under the
// pacing contract, persists them, and checkpoints progress.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mesh-intelligence/snpmirror/internal/errlog"
	"github.com/mesh-intelligence/snpmirror/internal/fetch"
	"github.com/mesh-intelligence/snpmirror/internal/pace"
	"github.com/mesh-intelligence/snpmirror/internal/sqlite"
	"github.com/mesh-intelligence/snpmirror/internal/status"
	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// Page-listing retry cadence. Item fetches are never retried inline (that
// would break pacing); listing fetches are, because without the listing the
// run cannot proceed at all.
const (
	listRetryInitial = 5 * time.Second
	listRetryMax     = time.Minute
)

// Driver walks the classes in fixed order and mirrors every listed item.
// It is the single writer to entity tables and the progress ledger.
type Driver struct {
	store   *sqlite.Store
	fetcher fetch.Fetcher
	pacer   *pace.Pacer
	ledger  *errlog.Ledger
	tracker *status.Tracker
	every   int // checkpoint interval K
	log     *slog.Logger

	now func() time.Time // test hook
}

// New wires a Driver. The tracker may be nil when no status surface is
// configured.
func New(store *sqlite.Store, fetcher fetch.Fetcher, pacer *pace.Pacer, ledger *errlog.Ledger, tracker *status.Tracker, checkpointInterval int, log *slog.Logger) *Driver {
	return &Driver{
		store:   store,
		fetcher: fetcher,
		pacer:   pacer,
		ledger:  ledger,
		tracker: tracker,
		every:   checkpointInterval,
		log:     log.With("component", "ingest_driver"),
		now:     time.Now,
	}
}

// Run processes every class in order, resuming each from its stored
// continuation token. On context cancellation it finishes the current item,
// checkpoints, and returns ctx.Err(), so a graceful stop never replays work.
// Any other returned error is fatal for the run; the progress ledger is left
// at the last successful checkpoint.
func (d *Driver) Run(ctx context.Context) error {
	for _, class := range types.ClassOrder {
		done, err := d.store.IsComplete(class)
		if err != nil {
			return err
		}
		if done {
			d.log.Info("class already complete", "class", class)
			continue
		}
		if err := d.runClass(ctx, class); err != nil {
			return err
		}
	}
	return nil
}

// runClass drives one class from its resume point to the end of its listing.
func (d *Driver) runClass(ctx context.Context, class types.Class) error {
	log := d.log.With("class", class)

	token, _, err := d.store.GetProgress(types.ContinueKey(class))
	if err != nil {
		return err
	}
	count, err := d.store.Count(class)
	if err != nil {
		return err
	}
	if token == "" {
		log.Info("starting from initial listing")
	} else {
		log.Info("resuming", "count", count)
	}

	pending := 0 // items persisted since the last checkpoint
	for {
		page, err := d.listPage(ctx, class, token)
		if err != nil {
			return err
		}

		for _, id := range page.Members {
			// Finish the in-flight item, then stop at a clean checkpoint.
			if ctx.Err() != nil {
				if cerr := d.store.Checkpoint(class, token, count); cerr != nil {
					return cerr
				}
				log.Info("stopped at checkpoint", "count", count)
				return ctx.Err()
			}

			persisted, err := d.mirrorItem(ctx, class, id)
			if err != nil {
				// Storage failure or cancellation mid-item: the last
				// checkpoint stands, restart resumes cleanly.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					if cerr := d.store.Checkpoint(class, token, count); cerr != nil {
						return cerr
					}
					log.Info("stopped at checkpoint", "count", count)
				}
				return err
			}
			if !persisted {
				continue
			}

			count++
			pending++
			if d.tracker != nil {
				d.tracker.RecordPersist(class)
			}
			if pending >= d.every {
				if err := d.store.Checkpoint(class, token, count); err != nil {
					return err
				}
				pending = 0
				log.Info("checkpoint", "count", count, "latest", id)
			}
		}

		if page.Next == "" {
			if err := d.store.Checkpoint(class, token, count); err != nil {
				return err
			}
			if err := d.store.MarkComplete(class); err != nil {
				return err
			}
			log.Info("listing complete", "count", count)
			return nil
		}

		// Advancing the page commits the new token; the items of the page
		// just finished are all persisted, so resume never replays them.
		token = page.Next
		if err := d.store.Checkpoint(class, token, count); err != nil {
			return err
		}
		pending = 0
	}
}

// mirrorItem fetches and persists one identifier under the pacing contract.
// Returns (false, nil) when the item was skipped: already mirrored, remote
// page missing, or a transient failure recorded in the error ledger.
func (d *Driver) mirrorItem(ctx context.Context, class types.Class, id string) (bool, error) {
	exists, err := d.store.HasRecord(class, id)
	if err != nil {
		return false, err
	}
	if exists {
		// Skipping costs no remote request, so it owes no pacing delay.
		return false, nil
	}

	if err := d.pacer.Wait(ctx); err != nil {
		return false, err
	}

	content, err := d.fetcher.FetchContent(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errors.Is(err, fetch.ErrPageMissing) {
			d.log.Warn("page missing, skipping", "class", class, "id", id)
			if d.tracker != nil {
				d.tracker.RecordFailure(class, false)
			}
			return false, nil
		}
		// Transient failure: record and move on, the recovery pass owns
		// the retry. Retrying here would stall the pacing cadence.
		d.log.Warn("fetch failed, recorded for recovery", "class", class, "id", id, "error", err)
		if d.tracker != nil {
			d.tracker.RecordFailure(class, true)
		}
		if lerr := d.ledger.Append(errlog.Entry{
			Time:   d.now(),
			ID:     id,
			Class:  class,
			Reason: err.Error(),
		}); lerr != nil {
			// The ledger is the recovery source of truth; losing it is fatal.
			return false, fmt.Errorf("appending to error ledger: %w", lerr)
		}
		return false, nil
	}

	if err := d.store.UpsertRecord(class, id, content, d.now()); err != nil {
		return false, err
	}
	return true, nil
}

// listPage fetches one listing page, retrying transient failures with
// exponential backoff until ctx is canceled.
func (d *Driver) listPage(ctx context.Context, class types.Class, token string) (fetch.Page, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = listRetryInitial
	bo.MaxInterval = listRetryMax
	bo.MaxElapsedTime = 0 // retry until canceled

	return backoff.RetryWithData(func() (fetch.Page, error) {
		page, err := d.fetcher.ListPage(ctx, class, token)
		if err != nil {
			if ctx.Err() != nil || !fetch.IsTransient(err) {
				return fetch.Page{}, backoff.Permanent(err)
			}
			d.log.Warn("listing fetch failed, backing off", "class", class, "error", err)
			return fetch.Page{}, err
		}
		return page, nil
	}, backoff.WithContext(bo, ctx))
}
