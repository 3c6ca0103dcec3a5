// Package recorder persists the per-day statistics of simulation runs into
// a SQLite database.
package recorder

import (
	"database/sql"
	"fmt"
	"os"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/inference-sim/harvest-sim/sim"
)

// RunMeta identifies one persisted episode.
type RunMeta struct {
	RunID       string // generated when empty
	Policy      string
	ArrivalRate float64
	Tradeoff    float64
	StartHour   int
	EndHour     int
	Seed        int64
}

type dailyRow struct {
	runID string
	day   int
	rec   sim.DayRecord
}

// SQLiteRecorder buffers runs and daily rows and writes them in batches.
type SQLiteRecorder struct {
	*sql.DB

	path      string
	runs      []RunMeta
	rows      []dailyRow
	batchSize int
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	policy       TEXT,
	arrival_rate REAL,
	tradeoff     REAL,
	start_hour   INTEGER,
	end_hour     INTEGER,
	seed         INTEGER
)`, `
CREATE TABLE IF NOT EXISTS daily_stats (
	run_id              TEXT,
	day                 INTEGER,
	total_requests      INTEGER,
	reject_low_power    INTEGER,
	reject_high_latency INTEGER,
	reject_conservation INTEGER,
	total_latency       REAL,
	reward              REAL,
	PRIMARY KEY (run_id, day)
)`}

// New opens (or creates) the database at path. An empty path creates
// harvest_sim_<xid>.sqlite3 in the working directory. Buffered rows are
// flushed when the process exits through atexit.
func New(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = "harvest_sim_" + xid.New().String() + ".sqlite3"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema in %s: %w", path, err)
		}
	}
	fmt.Fprintf(os.Stderr, "Database opened for recording: %s\n", path)

	r := &SQLiteRecorder{DB: db, path: path, batchSize: 10000}
	atexit.Register(func() {
		if err := r.Flush(); err != nil {
			logrus.Errorf("flush %s: %v", r.path, err)
		}
	})
	return r, nil
}

// Path returns the database file path.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// RecordRun buffers meta and one row per day of stats. It returns the run id.
func (r *SQLiteRecorder) RecordRun(meta RunMeta, stats sim.DailyStats) (string, error) {
	if meta.RunID == "" {
		meta.RunID = xid.New().String()
	}
	r.runs = append(r.runs, meta)
	for day := 0; day < stats.Days(); day++ {
		r.rows = append(r.rows, dailyRow{
			runID: meta.RunID,
			day:   day,
			rec: sim.DayRecord{
				TotalRequests:      stats.TotalRequests[day],
				RejectLowPower:     stats.RejectLowPower[day],
				RejectHighLatency:  stats.RejectHighLatency[day],
				RejectConservation: stats.RejectConservation[day],
				TotalLatency:       stats.TotalLatency[day],
				Reward:             stats.Reward[day],
			},
		})
	}
	if len(r.rows) >= r.batchSize {
		return meta.RunID, r.Flush()
	}
	return meta.RunID, nil
}

// Flush writes all buffered runs and rows in one transaction.
func (r *SQLiteRecorder) Flush() error {
	if len(r.runs) == 0 && len(r.rows) == 0 {
		return nil
	}
	tx, err := r.Begin()
	if err != nil {
		return err
	}
	if err := r.writeTx(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logrus.Debugf("flushed %d runs and %d daily rows to %s", len(r.runs), len(r.rows), r.path)
	r.runs = r.runs[:0]
	r.rows = r.rows[:0]
	return nil
}

func (r *SQLiteRecorder) writeTx(tx *sql.Tx) error {
	runStmt, err := tx.Prepare(`INSERT OR REPLACE INTO runs VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer runStmt.Close()
	for _, m := range r.runs {
		if _, err := runStmt.Exec(m.RunID, m.Policy, m.ArrivalRate, m.Tradeoff, m.StartHour, m.EndHour, m.Seed); err != nil {
			return fmt.Errorf("insert run %s: %w", m.RunID, err)
		}
	}

	dayStmt, err := tx.Prepare(`INSERT OR REPLACE INTO daily_stats VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer dayStmt.Close()
	for _, row := range r.rows {
		_, err := dayStmt.Exec(row.runID, row.day,
			row.rec.TotalRequests, row.rec.RejectLowPower, row.rec.RejectHighLatency, row.rec.RejectConservation,
			row.rec.TotalLatency, row.rec.Reward)
		if err != nil {
			return fmt.Errorf("insert day %d of run %s: %w", row.day, row.runID, err)
		}
	}
	return nil
}

// LoadDailyStats reads back the per-day arrays of a persisted run.
func (r *SQLiteRecorder) LoadDailyStats(runID string) (sim.DailyStats, error) {
	rows, err := r.Query(`SELECT total_requests, reject_low_power, reject_high_latency, reject_conservation,
		total_latency, reward FROM daily_stats WHERE run_id = ? ORDER BY day`, runID)
	if err != nil {
		return sim.DailyStats{}, err
	}
	defer rows.Close()

	var stats sim.DailyStats
	for rows.Next() {
		var rec sim.DayRecord
		if err := rows.Scan(&rec.TotalRequests, &rec.RejectLowPower, &rec.RejectHighLatency,
			&rec.RejectConservation, &rec.TotalLatency, &rec.Reward); err != nil {
			return sim.DailyStats{}, err
		}
		stats.TotalRequests = append(stats.TotalRequests, rec.TotalRequests)
		stats.RejectLowPower = append(stats.RejectLowPower, rec.RejectLowPower)
		stats.RejectHighLatency = append(stats.RejectHighLatency, rec.RejectHighLatency)
		stats.RejectConservation = append(stats.RejectConservation, rec.RejectConservation)
		stats.TotalLatency = append(stats.TotalLatency, rec.TotalLatency)
		stats.Reward = append(stats.Reward, rec.Reward)
	}
	return stats, rows.Err()
}

// Close flushes pending data and closes the database.
func (r *SQLiteRecorder) Close() error {
	if err := r.Flush(); err != nil {
		r.DB.Close()
		return err
	}
	return r.DB.Close()
}
