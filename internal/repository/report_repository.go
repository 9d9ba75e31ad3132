package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/askarbek/marketpay/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ProfessionEarnings sums paid-job prices per contractor profession over the
// payment-date range, highest first. Equal sums order lexicographically by
// profession, which keeps repeated queries deterministic.
func (r *ReportRepository) ProfessionEarnings(ctx context.Context, from, to time.Time) ([]model.ProfessionEarning, error) {
	var rows []model.ProfessionEarning
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			p.profession,
			SUM(j.price) AS total
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles p ON p.id = c.contractor_id
		WHERE j.paid = ?
			AND j.payment_date >= ?
			AND j.payment_date <= ?
		GROUP BY p.profession
		ORDER BY total DESC, p.profession ASC
	`, true, from, to).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClientPayments sums paid-job prices per client over the payment-date
// range, highest first, at most limit rows. Equal sums order by client id so
// repeated queries return the same ranking.
func (r *ReportRepository) ClientPayments(ctx context.Context, from, to time.Time, limit int) ([]model.ClientPayment, error) {
	var rows []model.ClientPayment
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.client_id,
			p.first_name,
			p.last_name,
			p.profession,
			SUM(j.price) AS paid
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles p ON p.id = c.client_id
		WHERE j.paid = ?
			AND j.payment_date >= ?
			AND j.payment_date <= ?
		GROUP BY c.client_id, p.first_name, p.last_name, p.profession
		ORDER BY paid DESC, c.client_id ASC
		LIMIT ?
	`, true, from, to, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
