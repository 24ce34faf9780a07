package database

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// sampleCap bounds the per-fingerprint duration samples kept for percentile
// estimation. Older samples are overwritten ring-buffer style.
const sampleCap = 256

// Monitor wraps query execution with timing and plan-inspection
// instrumentation, aggregating statistics per query fingerprint. Statistics
// live in process memory only and reset on restart.
type Monitor struct {
	mgr     *Manager
	explain bool

	mu    sync.Mutex
	stats map[string]*queryStat
}

type queryStat struct {
	digest   string
	count    int64
	total    time.Duration
	max      time.Duration
	lastPlan string
	samples  []time.Duration
	next     int
}

// NewMonitor creates a query monitor backed by mgr. The plan-inspection pass
// follows the manager's ExplainQueries setting.
func NewMonitor(mgr *Manager) *Monitor {
	return &Monitor{
		mgr:     mgr,
		explain: mgr.cfg.ExplainQueries,
		stats:   make(map[string]*queryStat),
	}
}

// QueryStats is the aggregate for one query fingerprint.
type QueryStats struct {
	Fingerprint string        `json:"fingerprint"`
	Digest      string        `json:"digest"`
	Count       int64         `json:"count"`
	AvgDuration time.Duration `json:"avg_duration"`
	MaxDuration time.Duration `json:"max_duration"`
	P50         time.Duration `json:"p50"`
	P95         time.Duration `json:"p95"`
	LastPlan    string        `json:"last_plan,omitempty"`
}

// Report summarizes all accumulated statistics, slowest fingerprints first.
type Report struct {
	TotalQueries int64        `json:"total_queries"`
	Fingerprints int          `json:"fingerprints"`
	Slowest      []QueryStats `json:"slowest"`
}

// Execute runs a query with bound parameters under instrumentation and
// returns the result rows in order. Parameters are always bound, never
// concatenated into the query text. On failure the query text, the parameter
// shapes (types only) and the error kind are logged and a *QueryError is
// returned.
func (mon *Monitor) Execute(ctx context.Context, query string, args ...any) ([]Row, error) {
	fingerprint := normalizeQuery(query)

	var (
		result []Row
		plan   string
	)

	start := time.Now()
	err := mon.mgr.WithConnection(ctx, "monitored_query", func(conn *Conn) error {
		if mon.explain {
			p, err := queryPlan(ctx, conn, query, args...)
			if err != nil {
				log.Debug().Err(err).Str("fingerprint", fingerprint).Msg("Query plan inspection failed")
			} else {
				plan = p
				log.Trace().Str("fingerprint", fingerprint).Str("plan", plan).Msg("Query plan")
			}
		}

		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		result, err = scanRows(rows)
		return err
	})
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("query", fingerprint).
			Strs("param_shapes", paramShapes(args)).
			Msg("Monitored query failed")
		return nil, &QueryError{Fingerprint: fingerprintDigest(fingerprint), Err: err}
	}

	mon.record(fingerprint, elapsed, plan)

	log.Trace().
		Str("fingerprint", fingerprint).
		Dur("duration", elapsed).
		Int("rows", len(result)).
		Msg("Monitored query complete")

	return result, nil
}

func (mon *Monitor) record(fingerprint string, d time.Duration, plan string) {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	st, ok := mon.stats[fingerprint]
	if !ok {
		st = &queryStat{digest: fingerprintDigest(fingerprint)}
		mon.stats[fingerprint] = st
	}

	st.count++
	st.total += d
	if d > st.max {
		st.max = d
	}
	if plan != "" {
		st.lastPlan = plan
	}
	if len(st.samples) < sampleCap {
		st.samples = append(st.samples, d)
	} else {
		st.samples[st.next] = d
		st.next = (st.next + 1) % sampleCap
	}
}

// GetReport summarizes the accumulated in-memory statistics. It does not
// touch the database.
func (mon *Monitor) GetReport() Report {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	report := Report{Fingerprints: len(mon.stats)}
	for fp, st := range mon.stats {
		report.TotalQueries += st.count

		sorted := make([]time.Duration, len(st.samples))
		copy(sorted, st.samples)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		report.Slowest = append(report.Slowest, QueryStats{
			Fingerprint: fp,
			Digest:      st.digest,
			Count:       st.count,
			AvgDuration: st.total / time.Duration(st.count),
			MaxDuration: st.max,
			P50:         percentile(sorted, 0.50),
			P95:         percentile(sorted, 0.95),
			LastPlan:    st.lastPlan,
		})
	}

	sort.Slice(report.Slowest, func(i, j int) bool {
		return report.Slowest[i].AvgDuration > report.Slowest[j].AvgDuration
	})

	return report
}

// Reset discards all accumulated statistics.
func (mon *Monitor) Reset() {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	mon.stats = make(map[string]*queryStat)
}

func queryPlan(ctx context.Context, conn *Conn, query string, args ...any) (string, error) {
	rows, err := conn.QueryContext(ctx, "EXPLAIN QUERY PLAN "+query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var steps []string
	for rows.Next() {
		var id, parent, notUsed int
		var detail string
		if err := rows.Scan(&id, &parent, &notUsed, &detail); err != nil {
			return "", err
		}
		steps = append(steps, detail)
	}
	return strings.Join(steps, " | "), rows.Err()
}

// normalizeQuery produces the fingerprint key: whitespace collapsed, trailing
// semicolon stripped. Parameter values never appear in the query text because
// binding is mandatory, so no literal stripping is needed.
func normalizeQuery(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	q = strings.TrimSuffix(q, ";")
	return strings.TrimSpace(q)
}

func fingerprintDigest(fingerprint string) string {
	sum := blake2b.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:6])
}

// paramShapes describes parameter types without their values, so failed
// queries can be logged without leaking row contents.
func paramShapes(args []any) []string {
	shapes := make([]string, len(args))
	for i, a := range args {
		shapes[i] = fmt.Sprintf("%T", a)
	}
	return shapes
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
