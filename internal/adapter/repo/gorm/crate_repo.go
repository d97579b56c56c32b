package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crateworks/internal/adapter/repo/gorm/model"
	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CrateRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCrateRepo(db *gorm.DB) CrateRepo {
	return CrateRepo{db: db, now: time.Now}
}

func (r CrateRepo) List(ctx context.Context) ([]crate.Definition, error) {
	var rows []model.Crate
	if err := dbFor(ctx, r.db).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]crate.Definition, 0, len(rows))
	for _, m := range rows {
		def, err := toDefinition(m)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func (r CrateRepo) Get(ctx context.Context, name string) (crate.Definition, error) {
	var m model.Crate
	if err := dbFor(ctx, r.db).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return crate.Definition{}, ports.ErrNotFound
		}
		return crate.Definition{}, err
	}
	return toDefinition(m)
}

func (r CrateRepo) Create(ctx context.Context, def crate.Definition) error {
	m, err := fromDefinition(def, r.now().UTC())
	if err != nil {
		return err
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

// Save writes def, creating the row when it does not exist yet.
func (r CrateRepo) Save(ctx context.Context, def crate.Definition) error {
	m, err := fromDefinition(def, r.now().UTC())
	if err != nil {
		return err
	}
	return dbFor(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"size", "world", "x", "y", "z", "yaw", "pitch",
			"orientation", "color", "key_name", "skin", "prizes", "updated_at",
		}),
	}).Create(&m).Error
}

func (r CrateRepo) Delete(ctx context.Context, name string) error {
	res := dbFor(ctx, r.db).Where("name = ?", name).Delete(&model.Crate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func fromDefinition(def crate.Definition, now time.Time) (model.Crate, error) {
	skin, err := json.Marshal(def.Skin)
	if err != nil {
		return model.Crate{}, fmt.Errorf("encode skin: %w", err)
	}
	prizes := def.Prizes
	if prizes == nil {
		prizes = []crate.Prize{}
	}
	prizeJSON, err := json.Marshal(prizes)
	if err != nil {
		return model.Crate{}, fmt.Errorf("encode prizes: %w", err)
	}
	return model.Crate{
		Name:        def.Name,
		Size:        def.Size.String(),
		World:       def.Location.World,
		X:           def.Location.X,
		Y:           def.Location.Y,
		Z:           def.Location.Z,
		Yaw:         def.Location.Yaw,
		Pitch:       def.Location.Pitch,
		Orientation: string(def.Orientation),
		Color:       def.Color,
		KeyName:     def.KeyName,
		Skin:        string(skin),
		Prizes:      string(prizeJSON),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func toDefinition(m model.Crate) (crate.Definition, error) {
	size, err := crate.ParseSize(m.Size)
	if err != nil {
		return crate.Definition{}, fmt.Errorf("crate %s: %w", m.Name, err)
	}
	def := crate.Definition{
		Name: m.Name,
		Size: size,
		Location: world.Position{
			World: m.World,
			X:     m.X,
			Y:     m.Y,
			Z:     m.Z,
			Yaw:   m.Yaw,
			Pitch: m.Pitch,
		},
		Orientation: crate.Orientation(m.Orientation),
		Color:       m.Color,
		KeyName:     m.KeyName,
	}
	if m.Skin != "" {
		if err := json.Unmarshal([]byte(m.Skin), &def.Skin); err != nil {
			return crate.Definition{}, fmt.Errorf("crate %s: decode skin: %w", m.Name, err)
		}
	}
	if m.Prizes != "" {
		if err := json.Unmarshal([]byte(m.Prizes), &def.Prizes); err != nil {
			return crate.Definition{}, fmt.Errorf("crate %s: decode prizes: %w", m.Name, err)
		}
	}
	return def, nil
}
