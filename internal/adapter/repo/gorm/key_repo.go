package gormrepo

import (
	"context"
	"time"

	"crateworks/internal/adapter/repo/gorm/model"
	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeyRepo struct {
	db *gorm.DB
}

func NewKeyRepo(db *gorm.DB) KeyRepo {
	return KeyRepo{db: db}
}

func (r KeyRepo) List(ctx context.Context) ([]crate.Key, error) {
	var rows []model.CrateKey
	if err := dbFor(ctx, r.db).Order("slot ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]crate.Key, 0, len(rows))
	for _, m := range rows {
		out = append(out, crate.Key{
			Name: m.Name,
			Item: crate.Item{Material: m.Material, Amount: int(m.Amount), Name: m.DisplayName},
			Slot: int(m.Slot),
		})
	}
	return out, nil
}

// Create reports ErrConflict for a taken name or slot.
func (r KeyRepo) Create(ctx context.Context, k crate.Key) error {
	m := model.CrateKey{
		Name:        k.Name,
		Material:    k.Item.Material,
		Amount:      int32(k.Item.Amount),
		DisplayName: k.Item.Name,
		Slot:        int32(k.Slot),
		CreatedAt:   time.Now().UTC(),
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

func (r KeyRepo) Delete(ctx context.Context, name string) error {
	res := dbFor(ctx, r.db).Where("name = ?", name).Delete(&model.CrateKey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type TagRepo struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) TagRepo {
	return TagRepo{db: db}
}

func (r TagRepo) List(ctx context.Context) ([]crate.Tag, error) {
	var rows []model.PrizeTag
	if err := dbFor(ctx, r.db).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]crate.Tag, 0, len(rows))
	for _, m := range rows {
		out = append(out, crate.Tag{Name: m.Name, Description: m.Description})
	}
	return out, nil
}

func (r TagRepo) Create(ctx context.Context, t crate.Tag) error {
	m := model.PrizeTag{Name: t.Name, Description: t.Description, CreatedAt: time.Now().UTC()}
	res := dbFor(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r TagRepo) Delete(ctx context.Context, name string) error {
	res := dbFor(ctx, r.db).Where("name = ?", name).Delete(&model.PrizeTag{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
