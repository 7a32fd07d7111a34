// Package recovery replays the error ledger against the store: entries whose
// identifiers were mirrored in the meantime are dropped, the rest are
// re-fetched under the same pacing discipline as ingestion. It never runs
// concurrently with the ingestion driver; the single-instance guard enforces
// mutual exclusion at startup.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/snpmirror/internal/errlog"
	"github.com/mesh-intelligence/snpmirror/internal/fetch"
	"github.com/mesh-intelligence/snpmirror/internal/pace"
	"github.com/mesh-intelligence/snpmirror/internal/sqlite"
)

// DefaultMaxRetries caps automatic re-fetch attempts per entry. Entries at
// the cap are retained for operator attention, never silently dropped.
const DefaultMaxRetries = 5

// Engine is the one-shot recovery pass.
type Engine struct {
	store      *sqlite.Store
	fetcher    fetch.Fetcher
	pacer      *pace.Pacer
	ledger     *errlog.Ledger
	maxRetries int
	log        *slog.Logger

	now func() time.Time // test hook
}

// New wires a recovery Engine. maxRetries <= 0 selects DefaultMaxRetries.
func New(store *sqlite.Store, fetcher fetch.Fetcher, pacer *pace.Pacer, ledger *errlog.Ledger, maxRetries int, log *slog.Logger) *Engine {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Engine{
		store:      store,
		fetcher:    fetcher,
		pacer:      pacer,
		ledger:     ledger,
		maxRetries: maxRetries,
		log:        log.With("component", "recovery_engine"),
		now:        time.Now,
	}
}

// Result summarizes one recovery pass.
type Result struct {
	Examined   int // distinct identifiers after deduplication
	Recovered  int // re-fetched and persisted
	Vanished   int // already present in the store, entry dropped
	Unresolved int // still failing, retained with incremented retry count
	Exhausted  int // at the retry cap, retained untouched
}

// Run executes one pass: read, deduplicate, resolve, rewrite. Every entry
// either leaves the ledger with a resolution or stays with its retry count
// increased; none is silently lost. The rewrite is atomic, so a crash
// mid-pass keeps the full original set or the reduced one, never a torn
// ledger.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	entries, err := e.ledger.Read()
	if err != nil {
		return Result{}, err
	}
	deduped := dedupe(entries)

	res := Result{Examined: len(deduped)}
	var unresolved []errlog.Entry

	for i, entry := range deduped {
		if err := ctx.Err(); err != nil {
			// Keep the unexamined remainder alongside whatever already
			// failed this pass.
			unresolved = append(unresolved, deduped[i:]...)
			if werr := e.ledger.Rewrite(unresolved); werr != nil {
				return res, werr
			}
			return res, err
		}

		exists, err := e.store.HasRecord(entry.Class, entry.ID)
		if err != nil {
			return res, err
		}
		if exists {
			// Fixed by a later normal run.
			res.Vanished++
			e.log.Info("entry already mirrored, dropping", "id", entry.ID)
			continue
		}

		if entry.Retries >= e.maxRetries {
			res.Exhausted++
			unresolved = append(unresolved, entry)
			e.log.Warn("retry cap reached, operator attention required", "id", entry.ID, "retries", entry.Retries)
			continue
		}

		if err := e.pacer.Wait(ctx); err != nil {
			unresolved = append(unresolved, entry)
			continue
		}

		content, err := e.fetcher.FetchContent(ctx, entry.ID)
		switch {
		case err == nil:
			if perr := e.store.UpsertRecord(entry.Class, entry.ID, content, e.now()); perr != nil {
				return res, perr
			}
			if _, perr := e.store.IncrementCount(entry.Class, 1); perr != nil {
				return res, perr
			}
			res.Recovered++
			e.log.Info("recovered", "id", entry.ID)
		case errors.Is(err, fetch.ErrPageMissing):
			// The page is gone; keep the entry so the operator sees it.
			entry.Reason = err.Error()
			entry.Retries++
			res.Unresolved++
			unresolved = append(unresolved, entry)
		default:
			entry.Reason = err.Error()
			entry.Retries++
			res.Unresolved++
			unresolved = append(unresolved, entry)
			e.log.Warn("still failing", "id", entry.ID, "retries", entry.Retries, "error", err)
		}
	}

	if err := e.ledger.Rewrite(unresolved); err != nil {
		return res, err
	}
	return res, nil
}

// dedupe collapses entries by identifier: the earliest first-seen time and
// the highest retry count survive, the last-seen reason wins.
func dedupe(entries []errlog.Entry) []errlog.Entry {
	byID := make(map[string]int)
	var out []errlog.Entry
	for _, e := range entries {
		if i, ok := byID[e.ID]; ok {
			if e.Time.Before(out[i].Time) {
				out[i].Time = e.Time
			}
			if e.Retries > out[i].Retries {
				out[i].Retries = e.Retries
			}
			out[i].Reason = e.Reason
			out[i].Class = e.Class
			continue
		}
		byID[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}
