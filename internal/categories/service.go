package categories

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages tax and shipping categories.
type Service interface {
	Save(ctx context.Context, category *Category) (*Category, error)
	GetAll(ctx context.Context, kind enums.CategoryKind) ([]Category, error)
	GetByID(ctx context.Context, kind enums.CategoryKind, id int64) (*Category, error)
	DeleteByID(ctx context.Context, kind enums.CategoryKind, id int64) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Save(ctx context.Context, category *Category) (*Category, error) {
	if category == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if !category.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category kind")
	}
	category.Name = strings.TrimSpace(category.Name)
	category.Handle = strings.TrimSpace(category.Handle)
	if category.Name == "" || category.Handle == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and handle are required")
	}

	existing, err := s.repo.FindByHandle(ctx, category.Kind, category.Handle)
	switch {
	case err == nil && existing.ID != category.ID:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "category handle already in use").
			WithDetails(map[string]any{"handle": category.Handle})
	case err != nil && !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category handle")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if category.ID == 0 {
			if err := repo.Create(ctx, category); err != nil {
				return err
			}
		} else {
			if _, err := repo.FindByID(ctx, category.Kind, category.ID); err != nil {
				return err
			}
			if err := repo.Update(ctx, category); err != nil {
				return err
			}
		}
		if category.Default {
			return repo.ClearDefault(ctx, category.Kind, category.ID)
		}
		return nil
	})
	if err != nil {
		switch {
		case db.IsNotFound(err):
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		case db.IsUniqueViolation(err, ""):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category handle already in use")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save category")
		}
	}
	return category, nil
}

func (s *service) GetAll(ctx context.Context, kind enums.CategoryKind) ([]Category, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category kind")
	}
	list, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return list, nil
}

func (s *service) GetByID(ctx context.Context, kind enums.CategoryKind, id int64) (*Category, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category kind")
	}
	c, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return c, nil
}

// DeleteByID refuses to delete a category that a product type still offers.
func (s *service) DeleteByID(ctx context.Context, kind enums.CategoryKind, id int64) error {
	if _, err := s.GetByID(ctx, kind, id); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountAssociations(ctx, kind, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category associations")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category is still assigned to product types").
				WithDetails(map[string]any{"product_types": count})
		}
		if err := repo.Delete(ctx, kind, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{"category_id": id, "kind": kind}), "category deleted")
		}
		return nil
	})
}
