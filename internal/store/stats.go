package store

// ImageQualityStats aggregates photographic metrics across tasks.
type ImageQualityStats struct {
	AvgBlurScore    float64 `json:"average_blur_score"`
	AvgBrightness   float64 `json:"average_brightness"`
	AvgContrast     float64 `json:"average_contrast"`
	AvgQualityScore float64 `json:"average_quality_score"`
}

// ConfidenceStats aggregates detection confidence across tasks.
type ConfidenceStats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Statistics is the aggregate view over all recorded tasks.
type Statistics struct {
	TotalTasks      int               `json:"total_tasks"`
	CompletedTasks  int               `json:"completed_tasks"`
	FailedTasks     int               `json:"failed_tasks"`
	AlignedAdopted  int               `json:"aligned_adopted"`
	CardTypes       map[string]int    `json:"card_types"`
	AvgProcessingMs float64           `json:"average_processing_ms"`
	ImageQuality    ImageQualityStats `json:"image_quality_stats"`
	Confidence      ConfidenceStats   `json:"detection_confidence"`
}

// Statistics computes aggregates over the tasks table. An empty table
// yields zero values throughout.
func (s *Store) Statistics() (*Statistics, error) {
	stats := &Statistics{CardTypes: make(map[string]int)}

	err := s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(used_aligned), 0),
			COALESCE(AVG(processing_ms), 0),
			COALESCE(AVG(blur_score), 0),
			COALESCE(AVG(brightness), 0),
			COALESCE(AVG(contrast), 0),
			COALESCE(AVG(quality_score), 0),
			COALESCE(AVG(avg_confidence), 0),
			COALESCE(MIN(min_confidence), 0),
			COALESCE(MAX(max_confidence), 0)
		FROM tasks`).Scan(
		&stats.TotalTasks,
		&stats.CompletedTasks,
		&stats.FailedTasks,
		&stats.AlignedAdopted,
		&stats.AvgProcessingMs,
		&stats.ImageQuality.AvgBlurScore,
		&stats.ImageQuality.AvgBrightness,
		&stats.ImageQuality.AvgContrast,
		&stats.ImageQuality.AvgQualityScore,
		&stats.Confidence.Average,
		&stats.Confidence.Min,
		&stats.Confidence.Max,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT card_type, COUNT(*)
		FROM tasks
		WHERE card_type != ''
		GROUP BY card_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cardType string
		var count int
		if err := rows.Scan(&cardType, &count); err != nil {
			return nil, err
		}
		stats.CardTypes[cardType] = count
	}

	return stats, rows.Err()
}
