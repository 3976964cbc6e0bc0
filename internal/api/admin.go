package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govconnect/internal/nav"
	"govconnect/internal/schema"
)

// POST /api/admin/dynamic/setup - идемпотентно готовит служебные таблицы.
func SetupHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.store.Setup(c.Request.Context()); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func TypesHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"types": schema.DataTypes})
	}
}

// GET /api/admin/dynamic/orphans - таблицы, у которых нет раздела.
func OrphansHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := a.binder.Orphans(c.Request.Context())
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tables": names})
	}
}

func ListSectionsHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sections": a.nav.Sections()})
	}
}

// POST /api/admin/sections - таблица и раздел создаются вместе.
func CreateSectionHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in nav.SectionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badJSON(c)
			return
		}
		s, err := a.binder.CreateSection(c.Request.Context(), in)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "section": s})
	}
}

func UpdateSectionHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p nav.SectionPatch
		if err := c.ShouldBindJSON(&p); err != nil {
			badJSON(c)
			return
		}
		s, err := a.binder.UpdateSection(c.Request.Context(), c.Param("id"), p)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "section": s})
	}
}

// DELETE /api/admin/sections/:id?keep_table=true
func RemoveSectionHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := nav.RemoveOptions{KeepTable: boolQuery(c, "keep_table", false)}
		if err := a.binder.RemoveSection(c.Request.Context(), c.Param("id"), opts); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "kept_table": opts.KeepTable})
	}
}

func MenuHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"menu": a.nav.Menu()})
	}
}

func IconsHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"icons": a.nav.Icons(), "default": a.nav.Icon("")})
	}
}
