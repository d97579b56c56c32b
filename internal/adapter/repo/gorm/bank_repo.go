package gormrepo

import (
	"context"
	"time"

	"crateworks/internal/adapter/repo/gorm/model"
	"crateworks/internal/app/ports"
	"crateworks/internal/domain/world"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeyBankRepo struct {
	db *gorm.DB
}

func NewKeyBankRepo(db *gorm.DB) KeyBankRepo {
	return KeyBankRepo{db: db}
}

func (r KeyBankRepo) LoadAll(ctx context.Context) ([]ports.BankedKeys, error) {
	var rows []model.BankedKey
	err := dbFor(ctx, r.db).Where("count > 0").Order("observer ASC, key_name ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.BankedKeys, 0, len(rows))
	for _, m := range rows {
		out = append(out, ports.BankedKeys{Observer: world.ObserverID(m.Observer), Key: m.KeyName, Count: int(m.Count)})
	}
	return out, nil
}

// Upsert writes all rows in one transaction. A zero count removes the row.
func (r KeyBankRepo) Upsert(ctx context.Context, rows []ports.BankedKeys) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return NewTxManager(r.db).RunInTx(ctx, func(ctx context.Context) error {
		db := dbFor(ctx, r.db)
		for _, row := range rows {
			if row.Count <= 0 {
				if err := db.Where("observer = ? AND key_name = ?", string(row.Observer), row.Key).Delete(&model.BankedKey{}).Error; err != nil {
					return err
				}
				continue
			}
			m := model.BankedKey{Observer: string(row.Observer), KeyName: row.Key, Count: int32(row.Count), UpdatedAt: now}
			err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "observer"}, {Name: "key_name"}},
				DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
			}).Create(&m).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
