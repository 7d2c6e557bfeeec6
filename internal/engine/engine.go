// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine runs the snowballing cycle of a query: expand the accepted
// set through the citation graph, filter the expansion by keyword rules and
// accept the survivors, until no new papers qualify.
//
// Status moves Uninitialized -> Filtered2 -> Expanded -> Filtered1 ->
// Filtered2. The automatic loop may also hit Exploded when one expansion
// yields more than ExplodedLimit new identifiers.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/graph"
	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/metrics"
	"github.com/pdiddy/snowball/internal/querydir"
	"github.com/pdiddy/snowball/pkg/types"
)

// ExplodedLimit is the largest expansion the automatic loop accepts.
const ExplodedLimit = 20000

// DefaultPrefix is prepended to query names to form directory names.
const DefaultPrefix = "Query-"

var (
	ErrNotFound    = errors.New("query not found")
	ErrExists      = errors.New("query already exists")
	ErrNoKeywords  = errors.New("at least one mandatory keyword is required")
	ErrNoSeeds     = errors.New("query has no accepted papers to start from")
	ErrBusy        = errors.New("query is busy with another operation")
	ErrWrongStatus = errors.New("operation not allowed in the current status")
	ErrWrongType   = errors.New("operation not allowed for the query type")
)

// Result summarizes one engine operation.
type Result struct {
	// New is the number of identifiers an expansion discovered.
	New int
	// Missing is the number of accepted ids looked up remotely.
	Missing int
	// Retained is the number of papers that passed filtering or search.
	Retained int
	// Rejected is the number of ids added to the rejected set.
	Rejected int
	// Accepted is the number of ids added to the accepted set.
	Accepted int

	// Completed is false when the fetch was cancelled; no state changed.
	Completed bool
	// Exhausted means the expansion found nothing left to grow into.
	Exhausted bool
	// Skipped means another expansion of the query was already running.
	Skipped bool
	// Exploded means the automatic loop stopped at ExplodedLimit.
	Exploded bool
}

func (r *Result) add(o Result) {
	r.New += o.New
	r.Missing += o.Missing
	r.Retained += o.Retained
	r.Rejected += o.Rejected
	r.Accepted += o.Accepted
}

// Query is one snowballing query backed by a directory. Fields are mutated
// only by Engine operations, which hold the query's lock.
type Query struct {
	ID                int64
	Name              string
	Type              types.QueryType
	Status            types.QueryStatus
	Setting           types.QuerySetting
	Accepted          ident.Set
	Rejected          ident.Set
	LastExpansionDate time.Time
	NoNewAccepted     bool

	dir  querydir.Dir
	lock sync.Mutex
}

// Dir returns the backing directory.
func (q *Query) Dir() querydir.Dir { return q.dir }

// Engine owns the configuration, the graph client and the query list.
type Engine struct {
	cfg    types.Config
	client graph.Client
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	queries map[string]*Query
	nextID  atomic.Int64
}

// New returns an engine. Call Discover to load existing queries.
func New(cfg types.Config, client graph.Client, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Queries.Prefix == "" {
		cfg.Queries.Prefix = DefaultPrefix
	}
	return &Engine{
		cfg:     cfg,
		client:  client,
		log:     log,
		now:     time.Now,
		queries: map[string]*Query{},
	}
}

// Client returns the graph client.
func (e *Engine) Client() graph.Client { return e.client }

func (e *Engine) setStatus(q *Query, s types.QueryStatus) {
	if q.Status == s {
		return
	}
	metrics.StatusTransitions.WithLabelValues(string(q.Status), string(s)).Inc()
	e.log.Debug("status change", zap.String("query", q.Name),
		zap.String("from", string(q.Status)), zap.String("to", string(s)))
	q.Status = s
}

func requireStatus(q *Query, allowed ...types.QueryStatus) error {
	for _, s := range allowed {
		if q.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: query %q is %s", ErrWrongStatus, q.Name, q.Status)
}

// writeSets persists both sets after removing accepted ids from the
// rejected set.
func (e *Engine) writeSets(q *Query) error {
	for id := range q.Accepted {
		delete(q.Rejected, id)
	}
	if err := q.dir.WriteIDs(querydir.Accepted, q.Accepted); err != nil {
		return err
	}
	return q.dir.WriteIDs(querydir.Rejected, q.Rejected)
}

func (e *Engine) writeNoNewAccepted(q *Query, v bool) error {
	q.NoNewAccepted = v
	if err := q.dir.WriteNoNewAccepted(v); err != nil {
		e.log.Error("writing no-new-accepted flag", zap.String("query", q.Name), zap.Error(err))
		return err
	}
	return nil
}
