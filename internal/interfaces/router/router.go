package router

import (
	"context"
	"net/http"

	acctsvc "bluetrust-backend/internal/application/accounts"
	dashsvc "bluetrust-backend/internal/application/dashboard"
	emailsvc "bluetrust-backend/internal/application/emails"
	"bluetrust-backend/internal/application/identity"
	"bluetrust-backend/internal/application/intake"
	lesvc "bluetrust-backend/internal/application/listingevents"
	listsvc "bluetrust-backend/internal/application/listings"
	mktsvc "bluetrust-backend/internal/application/marketplace"
	reportsvc "bluetrust-backend/internal/application/reports"
	txsvc "bluetrust-backend/internal/application/transactions"
	uploadsvc "bluetrust-backend/internal/application/uploads"
	"bluetrust-backend/internal/application/verification"
	"bluetrust-backend/internal/config"
	"bluetrust-backend/internal/infrastructure/database"
	"bluetrust-backend/internal/infrastructure/kvstore"
	accthandler "bluetrust-backend/internal/interfaces/handlers/accounts"
	authhandler "bluetrust-backend/internal/interfaces/handlers/auth"
	dashhandler "bluetrust-backend/internal/interfaces/handlers/dashboard"
	healthhandler "bluetrust-backend/internal/interfaces/handlers/health"
	lehandler "bluetrust-backend/internal/interfaces/handlers/listingevents"
	mkthandler "bluetrust-backend/internal/interfaces/handlers/marketplace"
	navhandler "bluetrust-backend/internal/interfaces/handlers/navigation"
	projhandler "bluetrust-backend/internal/interfaces/handlers/projects"
	reporthandler "bluetrust-backend/internal/interfaces/handlers/reports"
	txhandler "bluetrust-backend/internal/interfaces/handlers/transactions"
	uploadhandler "bluetrust-backend/internal/interfaces/handlers/uploads"
	verifyhandler "bluetrust-backend/internal/interfaces/handlers/verification"
	"bluetrust-backend/internal/metrics"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services are the application services behind the routes. cmd/api reuses
// them for the stats scheduler and the seed command.
type Services struct {
	Accounts      *acctsvc.Service
	Identity      *identity.Service
	Listings      *listsvc.Service
	Marketplace   *mktsvc.Service
	Transactions  *txsvc.Service
	ListingEvents *lesvc.Service
	Verification  *verification.Service
	Intake        *intake.Service
	Uploads       *uploadsvc.Service
	Reports       *reportsvc.Service
	Dashboard     *dashsvc.Service
}

// NewServices builds every service from config over the given stores.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Services {
	accounts := &acctsvc.Service{
		DB:              db,
		StartingBalance: cfg.StartingBalance,
		StartingCredits: cfg.StartingCredits,
	}

	var mailer emailsvc.Sender
	if cfg.SendinblueAPIKey != "" {
		mailer = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}

	return &Services{
		Accounts:      accounts,
		Identity:      &identity.Service{Rdb: rdb, Accounts: accounts},
		Listings:      &listsvc.Service{DB: db},
		Marketplace:   &mktsvc.Service{DB: db, SellMode: cfg.SellMode},
		Transactions:  &txsvc.Service{DB: db},
		ListingEvents: &lesvc.Service{DB: db},
		Verification:  &verification.Service{DB: db, Scorer: verification.RandomScorer{}, Mailer: mailer},
		Intake:        &intake.Service{DB: db},
		Uploads: &uploadsvc.Service{
			Client:      &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
			SupabaseURL: cfg.SupabaseURL,
			Bucket:      cfg.PhotoBucket,
		},
		Reports:   &reportsvc.Service{DB: db},
		Dashboard: &dashsvc.Service{DB: db, Rdb: rdb},
	}
}

// CreateApp opens the database and Redis, migrates, and builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *Services, *gorm.DB, *redis.Client, error) {
	db, err := database.Open(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, nil, err
	}
	rdb, err := kvstore.Open(context.Background(), cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	svc := NewServices(cfg, db, rdb)
	return NewApp(cfg, svc, db, rdb), svc, db, rdb, nil
}

// NewApp wires the middleware chain and the route table.
func NewApp(cfg *config.Config, svc *Services, db *gorm.DB, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	sessionCfg := middleware.SessionConfig{
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics())
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.RequestDeadline(cfg.RequestTimeout))
	app.Use(middleware.Session(rdb, sessionCfg, svc.Identity.Restore))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	// write guards a mutating route: role check, rate limit, then the in-flight lock.
	write := func(permission, action string, h fiber.Handler) []fiber.Handler {
		var chain []fiber.Handler
		if permission != "" {
			chain = append(chain, middleware.AuthorizePermission(permission))
		}
		return append(chain, limiter.Handler(), middleware.InFlight(rdb, action, cfg.InFlightTTL), h)
	}

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &database.GormPinger{DB: db},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	api := app.Group("/api/v1")

	// Auth
	ah := &authhandler.Handlers{Identity: svc.Identity, Rdb: rdb, Config: sessionCfg}
	authGroup := api.Group("/auth")
	authGroup.Post("/login", limiter.Handler(), ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)
	authGroup.Delete("/sessions", ah.LogoutEverywhere)

	// Navigation guard is public; it reads the session when there is one.
	api.Get("/navigation/resolve", navhandler.Resolve)

	// Accounts, transactions, listing events
	acch := &accthandler.Handlers{Service: svc.Accounts}
	api.Get("/accounts/me", middleware.RequireAuth(), acch.Me)
	txh := &txhandler.Handlers{Service: svc.Transactions}
	api.Get("/transactions", middleware.RequireAuth(), txh.GetTransactions)
	leh := &lehandler.Handlers{Service: svc.ListingEvents}
	api.Get("/listing-events", middleware.RequireAuth(), leh.GetListingEvents)

	// Marketplace
	mh := &mkthandler.Handlers{Service: svc.Marketplace, Listings: svc.Listings, Stats: svc.Dashboard}
	mg := api.Group("/marketplace", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewData))
	mg.Get("/listings", mh.GetListings)
	mg.Get("/listings/:id", mh.GetListing)
	mg.Get("/listings/:id/quote", middleware.AuthorizePermission(constants.BuyCredits), mh.QuotePurchase)
	mg.Delete("/listings/:id", middleware.AuthorizePermission(constants.SellCredits), mh.CancelListing)
	mg.Post("/purchase", write(constants.BuyCredits, "purchase", mh.Purchase)...)
	mg.Get("/sell-quote", middleware.AuthorizePermission(constants.SellCredits), mh.QuoteSell)
	mg.Post("/sell", write(constants.SellCredits, "sell", mh.Sell)...)
	mg.Post("/retire", write(constants.RetireCredits, "retire", mh.Retire)...)
	mg.Get("/my-listings", middleware.AuthorizePermission(constants.SellCredits), mh.MyListings)

	// Verification (government)
	vh := &verifyhandler.Handlers{Service: svc.Verification, Stats: svc.Dashboard}
	vg := api.Group("/verification", middleware.RequireAuth(), middleware.AuthorizePermission(constants.VerifyProject))
	vg.Get("/submissions", vh.GetQueue)
	vg.Get("/submissions/:id", vh.GetSubmission)
	vg.Post("/submissions/:id/decision", write("", "decision", vh.Decide)...)

	// Project intake (ngo)
	ph := &projhandler.Handlers{Service: svc.Intake, Stats: svc.Dashboard}
	pg := api.Group("/projects", middleware.RequireAuth(), middleware.AuthorizePermission(constants.SubmitProject))
	pg.Get("/draft", ph.GetDraft)
	pg.Put("/draft", ph.SaveDraft)
	pg.Delete("/draft", ph.ResetDraft)
	pg.Post("/draft/location", ph.CaptureLocation)
	pg.Post("/draft/photos", ph.AddPhotos)
	pg.Delete("/draft/photos/:index", ph.RemovePhoto)
	pg.Post("/draft/submit", write("", "submit", ph.SubmitDraft)...)
	pg.Post("/", write("", "submit", ph.Submit)...)
	pg.Get("/", ph.List)
	pg.Get("/sites.geojson", ph.Sites)

	// Uploads (ngo)
	uph := &uploadhandler.Handlers{Service: svc.Uploads}
	api.Post("/uploads/site-photos", middleware.RequireAuth(), middleware.AuthorizePermission(constants.UploadPhotos), limiter.Handler(), uph.UploadSitePhotos)

	// Reports (corporate)
	rh := &reporthandler.Handlers{Service: svc.Reports}
	api.Get("/reports/esg", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ExportReport), rh.ESG)

	// Dashboard
	dh := &dashhandler.Handlers{Service: svc.Dashboard}
	api.Get("/dashboard", middleware.RequireAuth(), dh.Get)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
