package gormrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"crateworks/internal/adapter/repo/gorm/model"
	"crateworks/internal/app/ports"
	"crateworks/internal/domain/world"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryRepo struct {
	db *gorm.DB
}

func NewDeliveryRepo(db *gorm.DB) DeliveryRepo {
	return DeliveryRepo{db: db}
}

func (r DeliveryRepo) ListPending(ctx context.Context) ([]ports.DeliveryRecord, error) {
	var rows []model.PendingDelivery
	if err := dbFor(ctx, r.db).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.DeliveryRecord, 0, len(rows))
	for _, m := range rows {
		rec := ports.DeliveryRecord{
			ID:        m.ID,
			Observer:  world.ObserverID(m.Observer),
			Crate:     m.CrateName,
			CreatedAt: m.CreatedAt.UTC(),
		}
		if err := json.Unmarshal([]byte(m.Items), &rec.Items); err != nil {
			return nil, fmt.Errorf("delivery %s: decode items: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r DeliveryRepo) Append(ctx context.Context, rec ports.DeliveryRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return err
	}
	m := model.PendingDelivery{
		ID:        rec.ID,
		Observer:  string(rec.Observer),
		CrateName: rec.Crate,
		Items:     string(items),
		CreatedAt: rec.CreatedAt,
	}
	res := dbFor(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r DeliveryRepo) Delete(ctx context.Context, id string) error {
	res := dbFor(ctx, r.db).Where("id = ?", id).Delete(&model.PendingDelivery{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
