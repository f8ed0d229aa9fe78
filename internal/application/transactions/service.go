package transactions

import (
	"context"

	"bluetrust-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

type FormattedTx struct {
	TxID         uuid.UUID   `json:"tx_id"`
	Type         string      `json:"type"`
	Quantity     int64       `json:"quantity"`
	UnitPrice    int64       `json:"unit_price"`
	Amount       int64       `json:"amount"`
	CreatedAt    interface{} `json:"created_at"`
	ListingID    *uuid.UUID  `json:"listing_id"`
	SubmissionID *uuid.UUID  `json:"submission_id"`
	ProjectName  *string     `json:"project_name"`
	Counterparty *string     `json:"counterparty"`
}

// ViewTransactions lists the account's ledger rows, newest first, with the
// project each row refers to.
func (s *Service) ViewTransactions(ctx context.Context, accountID uuid.UUID, txType string) (interface{}, string, int) {
	if accountID == uuid.Nil {
		return nil, "account_id missing from session", 401
	}
	switch txType {
	case "", domain.TxPurchase, domain.TxSell, domain.TxRetire, domain.TxAward:
	default:
		return nil, "type must be purchase, sell, retire or award", 400
	}

	q := s.DB.WithContext(ctx).Where("account_id = ?", accountID)
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	var txs []domain.Transaction
	if err := q.Order(`"createdAt" DESC`).Find(&txs).Error; err != nil {
		return nil, "Internal Server Error", 500
	}

	if len(txs) == 0 {
		return []interface{}{}, "", 0
	}

	listingIDs := map[uuid.UUID]bool{}
	submissionIDs := map[uuid.UUID]bool{}
	for _, tx := range txs {
		if tx.ListingID != nil {
			listingIDs[*tx.ListingID] = true
		}
		if tx.SubmissionID != nil {
			submissionIDs[*tx.SubmissionID] = true
		}
	}

	type ref struct {
		Name         string
		Counterparty string
	}
	listingMap := map[uuid.UUID]ref{}
	if len(listingIDs) > 0 {
		var ls []domain.CreditListing
		if err := s.DB.WithContext(ctx).Where("listing_id IN ?", keys(listingIDs)).
			Select("listing_id, project_name, organization").Find(&ls).Error; err != nil {
			return nil, "Internal Server Error", 500
		}
		for _, l := range ls {
			listingMap[l.ListingID] = ref{Name: l.ProjectName, Counterparty: l.Organization}
		}
	}

	submissionMap := map[uuid.UUID]ref{}
	if len(submissionIDs) > 0 {
		var subs []domain.ProjectSubmission
		if err := s.DB.WithContext(ctx).Where("submission_id IN ?", keys(submissionIDs)).
			Select("submission_id, name").Find(&subs).Error; err != nil {
			return nil, "Internal Server Error", 500
		}
		for _, sub := range subs {
			submissionMap[sub.SubmissionID] = ref{Name: sub.Name}
		}
	}

	out := make([]FormattedTx, len(txs))
	for i, tx := range txs {
		ft := FormattedTx{
			TxID:         tx.TxID,
			Type:         tx.Type,
			Quantity:     tx.Quantity,
			UnitPrice:    tx.UnitPrice,
			Amount:       tx.Amount,
			CreatedAt:    tx.CreatedAt,
			ListingID:    tx.ListingID,
			SubmissionID: tx.SubmissionID,
		}
		if tx.ListingID != nil {
			if r, ok := listingMap[*tx.ListingID]; ok {
				name, cp := r.Name, r.Counterparty
				ft.ProjectName = &name
				ft.Counterparty = &cp
			}
		}
		if tx.SubmissionID != nil {
			if r, ok := submissionMap[*tx.SubmissionID]; ok {
				name := r.Name
				ft.ProjectName = &name
			}
		}
		out[i] = ft
	}

	return out, "", 0
}

func keys(m map[uuid.UUID]bool) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}
