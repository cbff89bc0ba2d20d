package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/commerce-core/api/controllers"
	"github.com/angelmondragon/commerce-core/api/middleware"
	"github.com/angelmondragon/commerce-core/internal/categories"
	"github.com/angelmondragon/commerce-core/internal/orders"
	"github.com/angelmondragon/commerce-core/internal/products"
	"github.com/angelmondragon/commerce-core/internal/producttypes"
	"github.com/angelmondragon/commerce-core/internal/sites"
	"github.com/angelmondragon/commerce-core/pkg/config"
	"github.com/angelmondragon/commerce-core/pkg/logger"
)

// Deps is everything the router serves. Pingers with a nil value are reported
// as disabled by the readiness probe.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Pingers      map[string]controllers.Pinger
	Gatherer     prometheus.Gatherer
	ProductTypes producttypes.Service
	Products     products.Service
	Categories   categories.Service
	Sites        sites.Service
	Orders       orders.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/product-types", func(r chi.Router) {
			r.Get("/", controllers.ListProductTypes(deps.ProductTypes, logg))
			r.Post("/", controllers.CreateProductType(deps.ProductTypes, logg))
			r.Get("/handle/{handle}", controllers.GetProductTypeByHandle(deps.ProductTypes, logg))
			r.Get("/{id}", controllers.GetProductType(deps.ProductTypes, logg))
			r.Put("/{id}", controllers.UpdateProductType(deps.ProductTypes, logg))
			r.Delete("/{id}", controllers.DeleteProductType(deps.ProductTypes, logg))
			r.Get("/{id}/products", controllers.ListProductsByType(deps.Products, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(deps.Products, logg))
			r.Get("/{id}", controllers.GetProduct(deps.Products, logg))
			r.Delete("/{id}", controllers.DeleteProduct(deps.Products, logg))
		})

		r.Route("/categories/{kind}", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(deps.Categories, logg))
			r.Post("/", controllers.CreateCategory(deps.Categories, logg))
			r.Delete("/{id}", controllers.DeleteCategory(deps.Categories, logg))
		})

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", controllers.ListSites(deps.Sites, logg))
			r.Post("/", controllers.CreateSite(deps.Sites, logg))
		})

		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", controllers.GetOrder(deps.Orders, logg))
			r.Get("/totals", controllers.GetOrderTotals(deps.Orders, logg))
			r.Post("/complete", controllers.CompleteOrder(deps.Orders, logg))
			r.Post("/payments", controllers.RecordOrderPayment(deps.Orders, logg))
			r.Put("/children", controllers.ReplaceOrderChildren(deps.Orders, logg))
		})
	})

	return r
}
