// Package api - REST и HTML поверх движка динамических таблиц.
package api

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"govconnect/internal/logging"
	"govconnect/internal/nav"
	"govconnect/internal/store"
)

// App - зависимости обработчиков.
type App struct {
	store      store.Store
	binder     *nav.Binder
	nav        *nav.Registry
	log        *zap.Logger
	dateLayout string
	pages      *template.Template
}

type Options struct {
	DateLayout string
	Templates  *template.Template // nil - HTML-страницы не монтируются
}

func NewApp(st store.Store, binder *nav.Binder, log *zap.Logger, opts Options) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		store:      st,
		binder:     binder,
		nav:        binder.Registry(),
		log:        log.Named("api"),
		dateLayout: opts.DateLayout,
		pages:      opts.Templates,
	}
}

// Router собирает gin.Engine. Маршруты разделов не регистрируются статически:
// их находит NoRoute по реестру навигации, поэтому новый раздел доступен сразу.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(logging.RequestID(), logging.AccessLog(a.log), logging.Recovery(a.log))
	r.HandleMethodNotAllowed = false

	r.GET("/healthz", HealthHandler(a))

	dyn := r.Group("/api/admin/dynamic")
	{
		dyn.POST("/setup", SetupHandler(a))
		dyn.GET("/types", TypesHandler(a))
		dyn.GET("/orphans", OrphansHandler(a))

		dyn.GET("/tables", ListTablesHandler(a))
		dyn.POST("/tables", CreateTableHandler(a))
		dyn.GET("/tables/:table/metadata", TableMetadataHandler(a))
		dyn.DELETE("/tables/:table", DeleteTableHandler(a))
		dyn.DELETE("/tables/:table/fields/:field", DeleteFieldHandler(a))

		dyn.GET("/tables/:table/data", ListRecordsHandler(a))
		dyn.POST("/tables/:table/data", InsertRecordHandler(a))
		dyn.GET("/tables/:table/data/:id", GetRecordHandler(a))
		dyn.PUT("/tables/:table/data/:id", UpdateRecordHandler(a))
		dyn.DELETE("/tables/:table/data/:id", DeleteRecordHandler(a))
	}

	sec := r.Group("/api/admin/sections")
	{
		sec.GET("", ListSectionsHandler(a))
		sec.POST("", CreateSectionHandler(a))
		sec.PATCH("/:id", UpdateSectionHandler(a))
		sec.DELETE("/:id", RemoveSectionHandler(a))
	}

	r.GET("/api/nav/menu", MenuHandler(a))
	r.GET("/api/nav/icons", IconsHandler(a))

	if a.pages != nil {
		r.SetHTMLTemplate(a.pages)
		r.GET("/", HomePageHandler(a))
		r.NoRoute(SectionPageHandler(a))
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": apiError{Code: "not_found", Message: "route not found"}})
		})
	}
	return r
}

func HealthHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := a.store.ListTables(c.Request.Context()); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
