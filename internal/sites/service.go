package sites

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SiteAddedHandler is notified inside the creating transaction so dependent
// settings commit together with the site. SiteAdded runs once the
// transaction has committed and is not called on rollback.
type SiteAddedHandler interface {
	AddSite(ctx context.Context, tx *gorm.DB, siteID int64) error
	SiteAdded(ctx context.Context, siteID int64)
}

// CreateInput is the payload accepted by Create.
type CreateInput struct {
	Handle    string `json:"handle" validate:"required,max=255"`
	Name      string `json:"name" validate:"required,max=255"`
	Language  string `json:"language" validate:"required,max=12"`
	BaseURL   string `json:"base_url" validate:"omitempty,url"`
	SortOrder int    `json:"sort_order"`
}

type Service interface {
	List(ctx context.Context) ([]models.Site, error)
	Create(ctx context.Context, input CreateInput) (*models.Site, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	handlers []SiteAddedHandler
	logg     *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger, handlers ...SiteAddedHandler) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sites repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, handlers: handlers, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]models.Site, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sites")
	}
	return list, nil
}

// Create adds a site. The first site becomes primary.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Site, error) {
	site := &models.Site{
		Handle:    strings.TrimSpace(input.Handle),
		Name:      strings.TrimSpace(input.Name),
		Language:  strings.TrimSpace(input.Language),
		BaseURL:   strings.TrimSpace(input.BaseURL),
		SortOrder: input.SortOrder,
	}
	if site.Handle == "" || site.Name == "" || site.Language == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "handle, name and language are required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		site.Primary = count == 0
		if err := repo.Create(ctx, site); err != nil {
			return err
		}
		for _, h := range s.handlers {
			if err := h.AddSite(ctx, tx, site.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "site handle already in use")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create site")
	}

	for _, h := range s.handlers {
		h.SiteAdded(ctx, site.ID)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "site_id", site.ID), "site created")
	}
	return site, nil
}
