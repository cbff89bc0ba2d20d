package producttypes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/internal/categories"
	"github.com/angelmondragon/commerce-core/internal/fields"
	"github.com/angelmondragon/commerce-core/internal/products"
	"github.com/angelmondragon/commerce-core/internal/sites"
	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/locks"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/metrics"
	"github.com/angelmondragon/commerce-core/pkg/outbox"
	"github.com/angelmondragon/commerce-core/pkg/outbox/payloads"
	"github.com/angelmondragon/commerce-core/pkg/templates"
	"github.com/angelmondragon/commerce-core/pkg/tracing"
)

const (
	opSave   = "save"
	opDelete = "delete"

	lockResource     = "product-type"
	defaultBatchSize = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BeforeSaveFunc runs after validation and before the transaction opens. A
// non-nil error vetoes the save.
type BeforeSaveFunc func(ctx context.Context, pt *ProductType, isNew bool) error

// AfterSaveFunc runs after commit. It cannot fail the save.
type AfterSaveFunc func(ctx context.Context, pt *ProductType, isNew bool)

// Service manages product types and keeps their products consistent with
// them.
type Service interface {
	Save(ctx context.Context, pt *ProductType, runValidation bool) (bool, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*ProductType, error)
	GetByHandle(ctx context.Context, handle string) (*ProductType, error)
	GetAll(ctx context.Context) ([]*ProductType, error)
	Refresh()
	AddSite(ctx context.Context, tx *gorm.DB, siteID int64) error
	SiteAdded(ctx context.Context, siteID int64)
	ProductTypeSettings(ctx context.Context, typeID int64) (*products.TypeSettings, error)
}

// ServiceParams bundles the dependencies of the product type service.
type ServiceParams struct {
	Repo       Repository
	Categories categories.Repository
	Layouts    fields.Repository
	Sites      sites.Repository
	Products   *products.Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Renderer   templates.Renderer
	Locker     locks.Locker
	LockKey    func(resource, id string) string
	Metrics    *metrics.CatalogMetrics
	Logger     *logger.Logger
	BatchSize  int
	BeforeSave []BeforeSaveFunc
	AfterSave  []AfterSaveFunc
}

type service struct {
	repo       Repository
	categories categories.Repository
	layouts    fields.Repository
	sites      sites.Repository
	products   *products.Repository
	tx         txRunner
	outbox     outboxPublisher
	renderer   templates.Renderer
	locker     locks.Locker
	lockKey    func(resource, id string) string
	metrics    *metrics.CatalogMetrics
	logg       *logger.Logger
	batchSize  int
	beforeSave []BeforeSaveFunc
	afterSave  []AfterSaveFunc

	source    dbSource
	registry  *Registry
	validator *validator.Validate
}

// NewService constructs the product type service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product type repository required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	if params.Layouts == nil {
		return nil, fmt.Errorf("field layout repository required")
	}
	if params.Sites == nil {
		return nil, fmt.Errorf("sites repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}

	s := &service{
		repo:       params.Repo,
		categories: params.Categories,
		layouts:    params.Layouts,
		sites:      params.Sites,
		products:   params.Products,
		tx:         params.Tx,
		outbox:     params.Outbox,
		renderer:   params.Renderer,
		locker:     params.Locker,
		lockKey:    params.LockKey,
		metrics:    params.Metrics,
		logg:       params.Logger,
		batchSize:  params.BatchSize,
		beforeSave: params.BeforeSave,
		afterSave:  params.AfterSave,
		validator:  newValidator(),
	}
	if s.renderer == nil {
		s.renderer = templates.ObjectRenderer{}
	}
	if s.locker == nil {
		s.locker = locks.NoopLocker{}
	}
	if s.lockKey == nil {
		s.lockKey = func(resource, id string) string { return "commerce:lock:" + resource + ":" + id }
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	s.source = dbSource{repo: s.repo, categories: s.categories, layouts: s.layouts}
	s.registry = NewRegistry(s.source)
	return s, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*ProductType, error) {
	pt, err := s.registry.ByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product type")
	}
	if pt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product type not found")
	}
	return pt, nil
}

func (s *service) GetByHandle(ctx context.Context, handle string) (*ProductType, error) {
	pt, err := s.registry.ByHandle(ctx, handle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product type")
	}
	if pt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product type not found")
	}
	return pt, nil
}

func (s *service) GetAll(ctx context.Context) ([]*ProductType, error) {
	list, err := s.registry.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product types")
	}
	return list, nil
}

func (s *service) Refresh() {
	s.registry.Refresh()
}

// ProductTypeSettings serves product saves from the registry.
func (s *service) ProductTypeSettings(ctx context.Context, typeID int64) (*products.TypeSettings, error) {
	pt, err := s.GetByID(ctx, typeID)
	if err != nil {
		return nil, err
	}
	return pt.Settings(), nil
}

// Save validates pt, persists it and cascades the change to every product of
// the type in one transaction. On success the registry entry for pt is
// replaced.
func (s *service) Save(ctx context.Context, pt *ProductType, runValidation bool) (ok bool, err error) {
	if pt == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product type required")
	}
	isNew := pt.ID == 0
	start := time.Now()
	ctx = s.logg.WithFields(ctx, map[string]any{"product_type_id": pt.ID, "handle": pt.Handle, "is_new": isNew})
	ctx, span := tracing.Start(ctx, "producttypes.Save",
		attribute.Int64("product_type.id", pt.ID),
		attribute.Bool("product_type.new", isNew),
	)
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveDuration(opSave, time.Since(start))
	}()

	pt.normalize(isNew)
	if err := s.precheck(ctx, pt, isNew, runValidation); err != nil {
		s.metrics.IncRejected(opSave)
		return false, err
	}
	for _, hook := range s.beforeSave {
		if err := hook(ctx, pt.Clone(), isNew); err != nil {
			s.metrics.IncRejected(opSave)
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "product type save vetoed")
		}
	}

	lockID := pt.Handle
	if !isNew {
		lockID = strconv.FormatInt(pt.ID, 10)
	}
	release, err := s.acquire(ctx, lockID)
	if err != nil {
		s.metrics.IncRejected(opSave)
		return false, err
	}
	defer release()

	s.logg.Info(ctx, "saving product type")
	before := pt.Clone()
	var run *cascadeRun
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		run, err = s.saveTx(ctx, tx, pt, isNew)
		return err
	})
	if err != nil {
		*pt = *before
		s.metrics.IncRolledBack(opSave)
		s.logg.Error(ctx, "product type save rolled back", err)
		return false, mapTxError(err, "save product type")
	}

	s.metrics.IncCommitted(opSave)
	s.registry.Put(pt)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_type_id": pt.ID,
		"cascades":        run.ran,
		"affected":        run.affected,
	}), "product type saved")

	for _, hook := range s.afterSave {
		hook(ctx, pt.Clone(), isNew)
	}
	return true, nil
}

// precheck runs every check that must fail before a transaction opens.
func (s *service) precheck(ctx context.Context, pt *ProductType, isNew, runValidation bool) error {
	if runValidation {
		if err := s.validate(pt); err != nil {
			return err
		}
		if err := checkFormats(pt); err != nil {
			return err
		}
		if err := s.checkHandle(ctx, pt); err != nil {
			return err
		}
	}
	if !isNew {
		if _, err := s.repo.FindByID(ctx, pt.ID); err != nil {
			return mapFindError(err, "product type not found")
		}
	}
	if err := s.checkLayouts(ctx, pt); err != nil {
		return err
	}
	if err := s.checkSites(ctx, pt); err != nil {
		return err
	}
	if err := s.checkCategories(ctx, enums.CategoryKindTax, pt.TaxCategoryIDs); err != nil {
		return err
	}
	return s.checkCategories(ctx, enums.CategoryKindShipping, pt.ShippingCategoryIDs)
}

// checkFormats renders the title and uri formats against an empty product so
// unknown variables are reported before any product is touched.
func checkFormats(pt *ProductType) error {
	if _, err := templates.Render(pt.TitleFormat, products.TitleVars(models.Product{}, models.Variant{})); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid title format").
			WithDetails(map[string]string{"title_format": err.Error()})
	}
	for _, site := range pt.Sites {
		if !site.HasURLs {
			continue
		}
		if _, err := templates.Render(site.URIFormat, products.URIVars(models.Product{}, "")); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid uri format").
				WithDetails(map[string]any{"site_id": site.SiteID, "uri_format": err.Error()})
		}
	}
	return nil
}

func (s *service) checkHandle(ctx context.Context, pt *ProductType) error {
	existing, err := s.repo.FindByHandle(ctx, pt.Handle)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check handle")
	}
	if existing.ID != pt.ID {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product type").
			WithDetails(map[string]string{"handle": "is already in use"})
	}
	return nil
}

func (s *service) checkLayouts(ctx context.Context, pt *ProductType) error {
	for _, layout := range []fields.Layout{pt.ProductFieldLayout, pt.VariantFieldLayout} {
		if layout.ID == 0 {
			continue
		}
		if _, err := s.layouts.FindByID(ctx, layout.ID); err != nil {
			return mapFindError(err, fmt.Sprintf("field layout %d not found", layout.ID))
		}
	}
	return nil
}

// checkSites requires settings for every site and rejects unknown sites.
func (s *service) checkSites(ctx context.Context, pt *ProductType) error {
	ids, err := s.sites.AllSiteIDs(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sites")
	}
	known := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
		if _, ok := pt.Site(id); !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "product type is missing site settings").
				WithDetails(map[string]any{"site_id": id})
		}
	}
	for _, site := range pt.Sites {
		if _, ok := known[site.SiteID]; !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "site not found").
				WithDetails(map[string]any{"site_id": site.SiteID})
		}
	}
	return nil
}

func (s *service) checkCategories(ctx context.Context, kind enums.CategoryKind, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.categories.FindByIDs(ctx, kind, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load categories")
	}
	if len(found) == len(ids) {
		return nil
	}
	present := make([]int64, 0, len(found))
	for _, c := range found {
		present = append(present, c.ID)
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, kind.String()+" category not found").
		WithDetails(map[string]any{"missing": difference(ids, present)})
}

// saveTx is the transactional part of Save. The old snapshot is read here,
// under the row lock, so the diff cannot race a concurrent commit.
func (s *service) saveTx(ctx context.Context, tx *gorm.DB, pt *ProductType, isNew bool) (*cascadeRun, error) {
	src := s.source.withTx(tx)
	repo := src.repo

	var old *ProductType
	var oldSites map[int64]models.ProductTypeSite
	if !isNew {
		row, err := repo.FindByIDForUpdate(ctx, pt.ID)
		if err != nil {
			return nil, mapFindError(err, "product type not found")
		}
		if old, err = src.hydrate(ctx, *row, false); err != nil {
			return nil, err
		}
		siteRows, err := repo.ListSites(ctx, pt.ID)
		if err != nil {
			return nil, err
		}
		oldSites = make(map[int64]models.ProductTypeSite, len(siteRows))
		for _, siteRow := range siteRows {
			oldSites[siteRow.SiteID] = siteRow
		}
		if pt.ProductFieldLayout.ID == 0 {
			pt.ProductFieldLayout.ID = old.ProductFieldLayout.ID
		}
		if pt.VariantFieldLayout.ID == 0 {
			pt.VariantFieldLayout.ID = old.VariantFieldLayout.ID
		}
	}

	if _, err := src.layouts.Save(ctx, &pt.ProductFieldLayout); err != nil {
		return nil, fmt.Errorf("save product field layout: %w", err)
	}
	if _, err := src.layouts.Save(ctx, &pt.VariantFieldLayout); err != nil {
		return nil, fmt.Errorf("save variant field layout: %w", err)
	}

	row := pt.toModel()
	if isNew {
		if err := repo.Create(ctx, &row); err != nil {
			return nil, err
		}
		pt.ID = row.ID
	} else if err := repo.Update(ctx, &row); err != nil {
		return nil, err
	}

	run := &cascadeRun{
		typeID:    pt.ID,
		products:  s.products.WithTx(tx),
		renderer:  s.renderer,
		batchSize: s.batchSize,
		logg:      s.logg,
		metrics:   s.metrics,
	}

	if !isNew && !pt.HasVariantTitleField && pt.TitleFormat != old.TitleFormat {
		if err := run.titles(ctx, pt.TitleFormat); err != nil {
			return nil, err
		}
	}
	if !isNew && old.HasVariants && !pt.HasVariants {
		if err := run.downgrade(ctx); err != nil {
			return nil, err
		}
	}

	if err := src.categories.ReplaceAssociations(ctx, enums.CategoryKindTax, pt.ID, pt.TaxCategoryIDs); err != nil {
		return nil, err
	}
	if err := src.categories.ReplaceAssociations(ctx, enums.CategoryKindShipping, pt.ID, pt.ShippingCategoryIDs); err != nil {
		return nil, err
	}
	if !isNew {
		if err := run.reassign(ctx, enums.CategoryKindTax, old.TaxCategoryIDs, pt.TaxCategoryIDs); err != nil {
			return nil, err
		}
		if err := run.reassign(ctx, enums.CategoryKindShipping, old.ShippingCategoryIDs, pt.ShippingCategoryIDs); err != nil {
			return nil, err
		}
	}

	keep := make([]int64, 0, len(pt.Sites))
	for _, site := range pt.Sites {
		siteRow := siteToModel(pt.ID, site)
		if err := repo.UpsertSite(ctx, &siteRow); err != nil {
			return nil, err
		}
		keep = append(keep, site.SiteID)
	}

	if !isNew {
		lostURLs, newFormats := siteTransitions(oldSites, pt.Sites)
		if _, err := repo.DeleteSitesExcept(ctx, pt.ID, keep); err != nil {
			return nil, err
		}
		if len(pt.Sites) > 0 {
			switch {
			case len(lostURLs) > 0:
				if err := run.clearURIs(ctx, lostURLs); err != nil {
					return nil, err
				}
			case len(newFormats) > 0:
				if err := run.regenerateURIs(ctx, newFormats); err != nil {
					return nil, err
				}
			}
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventProductTypeSaved,
		AggregateType: enums.AggregateProductType,
		AggregateID:   pt.ID,
		Data: payloads.ProductTypeSavedEvent{
			ProductTypeID: pt.ID,
			Handle:        pt.Handle,
			IsNew:         isNew,
			Cascades:      run.ran,
			AffectedCount: run.affected,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("emit product type saved: %w", err)
	}
	return run, nil
}

// DeleteByID removes every product of the type through the product delete
// path, then the field layouts, site settings, category associations and the
// type row, in one transaction.
func (s *service) DeleteByID(ctx context.Context, id int64) (ok bool, err error) {
	start := time.Now()
	ctx = s.logg.WithProductTypeID(ctx, id)
	ctx, span := tracing.Start(ctx, "producttypes.DeleteByID", attribute.Int64("product_type.id", id))
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveDuration(opDelete, time.Since(start))
	}()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		s.metrics.IncRejected(opDelete)
		return false, mapFindError(err, "product type not found")
	}

	release, err := s.acquire(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		s.metrics.IncRejected(opDelete)
		return false, err
	}
	defer release()

	var affected int64
	deletedProducts := 0
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		src := s.source.withTx(tx)
		row, err := src.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err, "product type not found")
		}

		prods := s.products.WithTx(tx)
		err = prods.EachByTypeID(ctx, id, s.batchSize, func(batch []products.Product) error {
			for _, p := range batch {
				if _, err := prods.DeleteByID(ctx, p.ID); err != nil {
					return fmt.Errorf("delete product %d: %w", p.ID, err)
				}
				deletedProducts++
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, layoutID := range []*int64{row.FieldLayoutID, row.VariantFieldLayoutID} {
			if layoutID == nil {
				continue
			}
			if err := src.layouts.DeleteByID(ctx, *layoutID); err != nil {
				return fmt.Errorf("delete field layout %d: %w", *layoutID, err)
			}
		}
		if _, err := src.repo.DeleteSitesExcept(ctx, id, nil); err != nil {
			return err
		}
		for _, kind := range []enums.CategoryKind{enums.CategoryKindTax, enums.CategoryKindShipping} {
			if err := src.categories.DeleteAssociations(ctx, kind, id); err != nil {
				return err
			}
		}
		if affected, err = src.repo.Delete(ctx, id); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductTypeDeleted,
			AggregateType: enums.AggregateProductType,
			AggregateID:   id,
			Data: payloads.ProductTypeDeletedEvent{
				ProductTypeID:   id,
				Handle:          row.Handle,
				DeletedProducts: deletedProducts,
			},
		})
	})
	if err != nil {
		s.metrics.IncRolledBack(opDelete)
		s.logg.Error(ctx, "product type delete rolled back", err)
		return false, mapTxError(err, "delete product type")
	}

	s.metrics.IncCommitted(opDelete)
	s.metrics.AddCascadeRows("delete_products", deletedProducts)
	s.registry.Evict(id)
	s.logg.Info(s.logg.WithField(ctx, "deleted_products", deletedProducts), "product type deleted")
	return affected > 0, nil
}

// AddSite copies every type's primary-site settings onto a newly created
// site. It runs inside the site's creating transaction.
func (s *service) AddSite(ctx context.Context, tx *gorm.DB, siteID int64) error {
	primary, err := s.sites.WithTx(tx).Primary(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return err
	}
	if primary.ID == siteID {
		return nil
	}

	repo := s.repo.WithTx(tx)
	rows, err := repo.ListSitesBySiteID(ctx, primary.ID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		copied := models.ProductTypeSite{
			ProductTypeID: row.ProductTypeID,
			SiteID:        siteID,
			HasURLs:       row.HasURLs,
			URIFormat:     row.URIFormat,
			Template:      row.Template,
		}
		if err := repo.UpsertSite(ctx, &copied); err != nil {
			return fmt.Errorf("copy site settings for product type %d: %w", row.ProductTypeID, err)
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"site_id": siteID, "product_types": len(rows)}), "product type site settings copied")
	return nil
}

// SiteAdded drops the memoized types once the copied settings are committed,
// so every type is reloaded with the new site.
func (s *service) SiteAdded(ctx context.Context, siteID int64) {
	s.registry.Refresh()
	s.logg.Debug(s.logg.WithField(ctx, "site_id", siteID), "product type registry refreshed")
}

// acquire takes the cross-process lock for one product type.
func (s *service) acquire(ctx context.Context, id string) (func(), error) {
	lock, err := s.locker.Acquire(ctx, s.lockKey(lockResource, id))
	if err != nil {
		if errors.Is(err, locks.ErrNotAcquired) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product type is being modified by another request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire product type lock")
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release product type lock")
		}
	}, nil
}

func mapFindError(err error, notFound string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product type")
}

// mapTxError keeps typed errors and classifies everything else that broke
// the transaction.
func mapTxError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsUniqueViolation(err, "uq_product_types_handle") || db.IsUniqueViolation(err, "product_types.handle") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product type handle already in use")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
