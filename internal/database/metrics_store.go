package database

import (
	"errors"

	"gorm.io/gorm"
)

// InsertMetricSample appends a sample and prunes rows past the retention cap
// in the same transaction, keeping the table bounded.
func InsertMetricSample(db *gorm.DB, sample *MetricSample, retainLast int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sample).Error; err != nil {
			return err
		}
		if retainLast <= 0 {
			return nil
		}
		keep := tx.Model(&MetricSample{}).Select("id").Order("id desc").Limit(retainLast)
		return tx.Where("id NOT IN (?)", keep).Delete(&MetricSample{}).Error
	})
}

// LatestMetricSample returns the newest sample, or nil when none recorded yet
func LatestMetricSample(db *gorm.DB) (*MetricSample, error) {
	var sample MetricSample
	err := db.Order("taken_at desc").Order("id desc").First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// RecentMetricSamples returns the n newest samples in chronological order
// (oldest of the window first), the shape trend evaluation expects.
func RecentMetricSamples(db *gorm.DB, n int) ([]MetricSample, error) {
	if n <= 0 {
		return nil, nil
	}

	var samples []MetricSample
	err := db.Order("taken_at desc").Order("id desc").Limit(n).Find(&samples).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}
