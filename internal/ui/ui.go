// Package ui - серверные HTML-шаблоны страниц разделов.
package ui

import (
	"embed"
	"html/template"
	"net/url"
	"strconv"

	"govconnect/internal/nav"
	"govconnect/internal/render"
)

//go:embed templates/*.html
var files embed.FS

// Page - общее для всех страниц: меню и сообщения.
type Page struct {
	Title  string
	Menu   []nav.MenuEntry
	Active string
	Flash  string
	Error  string
}

// SectionPage - список, поиск и форма одного динамического раздела.
type SectionPage struct {
	Page
	Section nav.Section
	List    *render.List
	Form    *render.Form
	Confirm *render.Row // строка, ожидающая подтверждения удаления
}

// BuiltinPage - встроенный раздел без таблицы.
type BuiltinPage struct {
	Page
	Section nav.Section
}

type HomePage struct {
	Page
	Sections []nav.Section
	Orphans  []string
}

type ErrorPage struct {
	Page
	Status int
}

var funcs = template.FuncMap{
	"itoa": func(id int64) string { return strconv.FormatInt(id, 10) },
	"withConfirm": func(path string, id int64, q render.Query) string {
		v, _ := url.ParseQuery(q.Encode())
		v.Set("confirm_delete", strconv.FormatInt(id, 10))
		return path + "?" + v.Encode()
	},
	"withEdit": func(path string, id int64) string {
		return path + "?edit=" + strconv.FormatInt(id, 10)
	},
}

// Templates разбирает встроенные шаблоны.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
