package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govconnect/internal/schema"
)

// createTableReq - три параллельных массива: имя, тип и видимость поля.
// required необязателен.
type createTableReq struct {
	TableName string   `json:"table_name"`
	Fields    []string `json:"fields"`
	DataTypes []string `json:"data_types"`
	ShowUI    []bool   `json:"show_ui"`
	Required  []bool   `json:"required"`
}

func (r createTableReq) table() (schema.Table, error) {
	n := len(r.Fields)
	if len(r.DataTypes) != n {
		return schema.Table{}, schema.Validation("data_types", "data_types must have %d entries, got %d", n, len(r.DataTypes))
	}
	if len(r.ShowUI) != 0 && len(r.ShowUI) != n {
		return schema.Table{}, schema.Validation("show_ui", "show_ui must have %d entries, got %d", n, len(r.ShowUI))
	}
	if len(r.Required) != 0 && len(r.Required) != n {
		return schema.Table{}, schema.Validation("required", "required must have %d entries, got %d", n, len(r.Required))
	}

	t := schema.Table{Name: r.TableName, Fields: make([]schema.Field, n)}
	for i := range r.Fields {
		f := schema.Field{Name: r.Fields[i], Type: schema.DataType(r.DataTypes[i]), Visible: true}
		if len(r.ShowUI) == n {
			f.Visible = r.ShowUI[i]
		}
		if len(r.Required) == n {
			f.Required = r.Required[i]
		}
		t.Fields[i] = f
	}
	return t, nil
}

type metaField struct {
	FieldName string `json:"field_name"`
	DataType  string `json:"data_type"`
	ShowUI    bool   `json:"show_ui"`
	Required  bool   `json:"required"`
}

type metaTable struct {
	TableName string              `json:"table_name"`
	Fields    []metaField         `json:"fields"`
	Section   *schema.SectionMeta `json:"section,omitempty"`
}

func toMeta(t *schema.Table) metaTable {
	out := metaTable{TableName: t.Name, Fields: make([]metaField, 0, len(t.Fields)), Section: t.Section}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, metaField{
			FieldName: f.Name,
			DataType:  string(f.Type),
			ShowUI:    f.Visible,
			Required:  f.Required,
		})
	}
	return out
}

// GET /api/admin/dynamic/tables
func ListTablesHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := a.store.ListTables(c.Request.Context())
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tables": names})
	}
}

// POST /api/admin/dynamic/tables
func CreateTableHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTableReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
		def, err := req.table()
		if err != nil {
			a.writeError(c, err)
			return
		}
		t, err := a.store.CreateTable(c.Request.Context(), def)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "table": toMeta(t)})
	}
}

// GET /api/admin/dynamic/tables/:table/metadata
func TableMetadataHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := a.store.GetSchema(c.Request.Context(), c.Param("table"))
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toMeta(t))
	}
}

// DELETE /api/admin/dynamic/tables/:table - вместе с таблицей снимается её раздел.
func DeleteTableHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.Param("table")
		if err := a.store.DeleteTable(c.Request.Context(), table); err != nil {
			a.writeError(c, err)
			return
		}
		a.binder.TableDropped(table)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// DELETE /api/admin/dynamic/tables/:table/fields/:field
func DeleteFieldHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		table := c.Param("table")
		if err := a.store.DeleteField(ctx, table, c.Param("field")); err != nil {
			a.writeError(c, err)
			return
		}
		if err := a.binder.FieldDropped(ctx, table); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
