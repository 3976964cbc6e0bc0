package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govconnect/internal/render"
	"govconnect/internal/store"
)

// GET /api/admin/dynamic/tables/:table/data?ui_only=&q=&field=&sort=
func ListRecordsHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		table := c.Param("table")
		uiOnly := boolQuery(c, "ui_only", true)

		recs, err := a.store.List(ctx, table, store.ListOptions{UIOnly: uiOnly})
		if err != nil {
			a.writeError(c, err)
			return
		}

		q := render.ParseQuery(c.Request.URL.Query())
		if q.Text != "" {
			t, err := a.store.GetSchema(ctx, table)
			if err != nil {
				a.writeError(c, err)
				return
			}
			kept := recs[:0]
			for _, r := range recs {
				if render.Matches(t, r, q) {
					kept = append(kept, r)
				}
			}
			recs = kept
		}

		c.JSON(http.StatusOK, gin.H{
			"table_name": table,
			"ui_only":    uiOnly,
			"data":       flattenAll(recs),
		})
	}
}

// POST /api/admin/dynamic/tables/:table/data
func InsertRecordHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var values map[string]any
		if err := c.ShouldBindJSON(&values); err != nil {
			badJSON(c)
			return
		}
		rec, err := a.store.Insert(c.Request.Context(), c.Param("table"), values)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rec.Flatten())
	}
}

// GET /api/admin/dynamic/tables/:table/data/:id
func GetRecordHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			a.writeError(c, err)
			return
		}
		rec, err := a.store.Get(c.Request.Context(), c.Param("table"), id)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec.Flatten())
	}
}

// PUT /api/admin/dynamic/tables/:table/data/:id - полная замена значений.
func UpdateRecordHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			a.writeError(c, err)
			return
		}
		var values map[string]any
		if err := c.ShouldBindJSON(&values); err != nil {
			badJSON(c)
			return
		}
		if _, err := a.store.Update(c.Request.Context(), c.Param("table"), id, values); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// DELETE /api/admin/dynamic/tables/:table/data/:id
func DeleteRecordHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			a.writeError(c, err)
			return
		}
		if err := a.store.Delete(c.Request.Context(), c.Param("table"), id); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
