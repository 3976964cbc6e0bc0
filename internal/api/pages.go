package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"govconnect/internal/logging"
	"govconnect/internal/nav"
	"govconnect/internal/render"
	"govconnect/internal/schema"
	"govconnect/internal/store"
	"govconnect/internal/ui"
)

func (a *App) page(title, active string) ui.Page {
	return ui.Page{Title: title, Menu: a.nav.Menu(), Active: active}
}

// GET /
func HomePageHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		orphans, err := a.binder.Orphans(c.Request.Context())
		p := a.page("Home", "/")
		if err != nil {
			p.Error = err.Error()
		}
		c.HTML(http.StatusOK, "home.html", ui.HomePage{Page: p, Sections: a.nav.Sections(), Orphans: orphans})
	}
}

// SectionPageHandler обслуживает всё, что не попало в статические маршруты:
//
//	GET  /<route>[?q=&field=&edit=<id>&confirm_delete=<id>]
//	POST /<route>              - создать запись
//	POST /<route>/edit/<id>    - сохранить запись
//	POST /<route>/delete/<id>  - удалить после подтверждения
func SectionPageHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": apiError{Code: "not_found", Message: "route not found"}})
			return
		}

		parts := strings.Split(strings.Trim(path, "/"), "/")
		sec, ok := a.nav.Lookup(parts[0])
		if !ok {
			a.errorPage(c, http.StatusNotFound, "Page not found")
			return
		}
		if sec.BuiltIn || sec.TableName == "" {
			if c.Request.Method != http.MethodGet || len(parts) > 1 {
				a.errorPage(c, http.StatusNotFound, "Page not found")
				return
			}
			c.HTML(http.StatusOK, "builtin.html", ui.BuiltinPage{Page: a.page(sec.Title, sec.Path()), Section: sec})
			return
		}

		switch {
		case c.Request.Method == http.MethodGet && len(parts) == 1:
			a.showSection(c, sec)
		case c.Request.Method == http.MethodPost && len(parts) == 1:
			a.submitRecord(c, sec, 0)
		case c.Request.Method == http.MethodPost && len(parts) == 3 && parts[1] == "edit":
			id, err := strconv.ParseInt(parts[2], 10, 64)
			if err != nil {
				a.errorPage(c, http.StatusNotFound, "Page not found")
				return
			}
			a.submitRecord(c, sec, id)
		case c.Request.Method == http.MethodPost && len(parts) == 3 && parts[1] == "delete":
			id, err := strconv.ParseInt(parts[2], 10, 64)
			if err != nil {
				a.errorPage(c, http.StatusNotFound, "Page not found")
				return
			}
			a.deleteRecord(c, sec, id)
		default:
			a.errorPage(c, http.StatusNotFound, "Page not found")
		}
	}
}

func (a *App) showSection(c *gin.Context, sec nav.Section) {
	ctx := c.Request.Context()
	t, err := a.store.GetSchema(ctx, sec.TableName)
	if err != nil {
		a.sectionError(c, err)
		return
	}

	var existing *schema.Record
	if raw := c.Query("edit"); raw != "" {
		id, _ := strconv.ParseInt(raw, 10, 64)
		existing, err = a.store.Get(ctx, t.Name, id)
		if err != nil {
			a.sectionError(c, err)
			return
		}
	}

	var flash string
	switch {
	case c.Query("saved") != "":
		flash = "Record saved."
	case c.Query("deleted") != "":
		flash = "Record deleted."
	}
	a.renderSection(c, http.StatusOK, sec, t, render.NewForm(t, existing), flash, "")
}

func (a *App) renderSection(c *gin.Context, status int, sec nav.Section, t *schema.Table, form *render.Form, flash, errMsg string) {
	recs, err := a.store.List(c.Request.Context(), t.Name, store.ListOptions{UIOnly: true})
	if err != nil {
		// список недоступен, но введённое в форму не теряем
		logging.From(c, a.log).Warn("section list failed", zap.String("table", t.Name), zap.Error(err))
		recs = nil
		if errMsg == "" {
			errMsg = messageFor(err)
		}
		if status < http.StatusBadRequest {
			status = statusFor(schema.KindOf(err))
		}
	}
	list := render.NewList(t, recs, render.ParseQuery(c.Request.URL.Query()), render.Options{DateLayout: a.dateLayout})

	p := a.page(sec.Title, sec.Path())
	p.Flash, p.Error = flash, errMsg
	page := ui.SectionPage{Page: p, Section: sec, List: list, Form: form}
	if raw := c.Query("confirm_delete"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if row, ok := list.Row(id); ok {
				page.Confirm = &row
			}
		}
	}
	c.HTML(status, "section.html", page)
}

// submitRecord: id == 0 - создание. Ошибка оставляет введённые значения в форме.
func (a *App) submitRecord(c *gin.Context, sec nav.Section, id int64) {
	ctx := c.Request.Context()
	t, err := a.store.GetSchema(ctx, sec.TableName)
	if err != nil {
		a.sectionError(c, err)
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		a.errorPage(c, http.StatusBadRequest, "Invalid form")
		return
	}
	var existing *schema.Record
	if id != 0 {
		if existing, err = a.store.Get(ctx, t.Name, id); err != nil {
			// запись удалена - ввод можно сохранить новой записью;
			// при остальных ошибках форма остаётся формой редактирования
			existing = nil
			if !errors.Is(err, schema.ErrNotFound) {
				existing = &schema.Record{ID: id}
			}
			form := render.NewForm(t, existing)
			form.Bind(c.Request.PostForm)
			a.renderSection(c, statusFor(schema.KindOf(err)), sec, t, form, "", messageFor(err))
			return
		}
	}

	form := render.NewForm(t, existing)
	form.Bind(c.Request.PostForm)
	if _, err := form.Submit(ctx, a.store); err != nil {
		status := statusFor(schema.KindOf(err))
		a.renderSection(c, status, sec, t, form, "", messageFor(err))
		return
	}
	c.Redirect(http.StatusSeeOther, sec.Path()+"?saved=1")
}

func (a *App) deleteRecord(c *gin.Context, sec nav.Section, id int64) {
	if err := a.store.Delete(c.Request.Context(), sec.TableName, id); err != nil {
		a.sectionError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, sec.Path()+"?deleted=1")
}

func (a *App) sectionError(c *gin.Context, err error) {
	a.errorPage(c, statusFor(schema.KindOf(err)), messageFor(err))
}

func (a *App) errorPage(c *gin.Context, status int, msg string) {
	p := a.page(http.StatusText(status), "")
	p.Error = msg
	c.HTML(status, "error.html", ui.ErrorPage{Page: p, Status: status})
}

// messageFor - текст для пользователя; детали внутренних ошибок не показываются.
func messageFor(err error) string {
	switch schema.KindOf(err) {
	case "":
		return "Something went wrong. Please try again."
	case schema.KindUnavailable:
		return "The service is temporarily unavailable. Please try again."
	}
	var e *schema.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
