package replay

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// EpisodeRow is one indexed episode.
type EpisodeRow struct {
	ID        int
	Path      string
	Seed      int64
	Width     int
	Height    int
	StartedAt time.Time
	Frames    int
	LastTick  int
}

// FrameRow is one indexed tick.
type FrameRow struct {
	Episode int
	Tick    int
	Alive   int
	Events  int
}

type indexReq struct {
	episode *EpisodeRow
	frame   *FrameRow
	synced  chan struct{}
}

// Index records rendered episodes and ticks in a sqlite database. Writes are queued to a
// single writer goroutine and dropped when the queue is full; the frame files remain the
// source of truth.
type Index struct {
	db        *sql.DB
	framesDir string
	seed      int64

	ch     chan indexReq
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool
	drops  atomic.Uint64
}

// OpenIndex opens (creating if needed) the index at path. framesDir is the directory frame
// files are written to and seed is recorded with every episode.
func OpenIndex(path, framesDir string, seed int64) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	idx := &Index{
		db:        db,
		framesDir: framesDir,
		seed:      seed,
		ch:        make(chan indexReq, 16384),
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.loop()
	}()
	return idx, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS episodes (
			id INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			episode INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			alive INTEGER NOT NULL,
			events INTEGER NOT NULL,
			PRIMARY KEY (episode, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RenderFrame queues an episode row for header frames and a frame row for every frame.
func (x *Index) RenderFrame(f *sim.Frame) error {
	if x == nil || x.closed.Load() {
		return nil
	}
	if f.Header != nil {
		x.enqueue(indexReq{episode: &EpisodeRow{
			ID:        f.Episode,
			Path:      FramePath(x.framesDir, f.Episode),
			Seed:      x.seed,
			Width:     f.Header.Width,
			Height:    f.Header.Height,
			StartedAt: time.Now().UTC(),
		}})
	}
	x.enqueue(indexReq{frame: &FrameRow{Episode: f.Episode, Tick: f.Tick, Alive: len(f.Agents), Events: len(f.Events)}})
	return nil
}

func (x *Index) enqueue(r indexReq) {
	select {
	case x.ch <- r:
	default:
		x.drops.Add(1)
	}
}

// Dropped returns the number of rows dropped because the writer fell behind.
func (x *Index) Dropped() uint64 { return x.drops.Load() }

func (x *Index) loop() {
	for r := range x.ch {
		var err error
		switch {
		case r.episode != nil:
			e := r.episode
			_, err = x.db.Exec(
				`INSERT OR REPLACE INTO episodes(id, path, seed, width, height, started_at) VALUES(?, ?, ?, ?, ?, ?)`,
				e.ID, e.Path, e.Seed, e.Width, e.Height, e.StartedAt.Format(time.RFC3339Nano))
		case r.frame != nil:
			f := r.frame
			_, err = x.db.Exec(
				`INSERT OR REPLACE INTO frames(episode, tick, alive, events) VALUES(?, ?, ?, ?)`,
				f.Episode, f.Tick, f.Alive, f.Events)
		case r.synced != nil:
			close(r.synced)
		}
		if err != nil {
			logrus.Warnf("replay index: %v", err)
		}
	}
}

// Sync blocks until every row queued before the call has been written.
func (x *Index) Sync(ctx context.Context) error {
	if x.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case x.ch <- indexReq{synced: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and closes the database.
func (x *Index) Close() error {
	var err error
	x.once.Do(func() {
		x.closed.Store(true)
		close(x.ch)
		x.wg.Wait()
		err = x.db.Close()
	})
	return err
}

// Episodes lists indexed episodes by id with their frame counts.
func (x *Index) Episodes(ctx context.Context) ([]EpisodeRow, error) {
	return queryEpisodes(ctx, x.db)
}

// Frames lists the indexed ticks of one episode in tick order.
func (x *Index) Frames(ctx context.Context, episode int) ([]FrameRow, error) {
	return queryFrames(ctx, x.db, episode)
}

func queryEpisodes(ctx context.Context, db *sql.DB) ([]EpisodeRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.path, e.seed, e.width, e.height, e.started_at,
		       COUNT(f.tick), COALESCE(MAX(f.tick), 0)
		FROM episodes e LEFT JOIN frames f ON f.episode = e.id
		GROUP BY e.id ORDER BY e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpisodeRow
	for rows.Next() {
		var e EpisodeRow
		var started string
		if err := rows.Scan(&e.ID, &e.Path, &e.Seed, &e.Width, &e.Height, &started, &e.Frames, &e.LastTick); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			e.StartedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func queryFrames(ctx context.Context, db *sql.DB, episode int) ([]FrameRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT episode, tick, alive, events FROM frames WHERE episode = ? ORDER BY tick`, episode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameRow
	for rows.Next() {
		var f FrameRow
		if err := rows.Scan(&f.Episode, &f.Tick, &f.Alive, &f.Events); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
