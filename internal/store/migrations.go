package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Tasks table - one row per processed scan
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL CHECK(status IN ('completed', 'failed')),
			card_type TEXT NOT NULL DEFAULT '',
			decision TEXT NOT NULL DEFAULT '',
			original_detections INTEGER NOT NULL DEFAULT 0,
			aligned_detections INTEGER NOT NULL DEFAULT 0,
			final_detections INTEGER NOT NULL DEFAULT 0,
			used_aligned INTEGER NOT NULL DEFAULT 0,
			inliers INTEGER NOT NULL DEFAULT 0,
			good_matches INTEGER NOT NULL DEFAULT 0,
			quality_score REAL NOT NULL DEFAULT 0,
			accept_score INTEGER NOT NULL DEFAULT 0,
			blur_score REAL NOT NULL DEFAULT 0,
			brightness REAL NOT NULL DEFAULT 0,
			contrast REAL NOT NULL DEFAULT 0,
			avg_confidence REAL NOT NULL DEFAULT 0,
			min_confidence REAL NOT NULL DEFAULT 0,
			max_confidence REAL NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			processing_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Most queries walk tasks in reverse chronological order
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
