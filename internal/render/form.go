// Package render строит формы и списки динамических таблиц по их схеме.
package render

import (
	"context"
	"strings"

	"github.com/go-openapi/inflect"

	"govconnect/internal/schema"
	"govconnect/internal/store"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Виды полей ввода
const (
	WidgetCheckbox = "checkbox"
	WidgetNumber   = "number"
	WidgetDate     = "date"
	WidgetTextarea = "textarea"
	WidgetText     = "text"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

const ErrRequired = "required"

func ferr(code, field, msg string) FieldError { return FieldError{Code: code, Field: field, Message: msg} }

// Widget - одно поле ввода формы.
type Widget struct {
	Name     string
	Label    string
	Kind     string
	Step     string // только для number: "1" или "any"
	Required bool
	Value    string
	Checked  bool
	Error    string
}

// WidgetFor - вид поля ввода зависит только от типа поля.
func WidgetFor(t schema.DataType) (kind, step string) {
	switch t {
	case schema.TypeBool:
		return WidgetCheckbox, ""
	case schema.TypeInt:
		return WidgetNumber, "1"
	case schema.TypeFloat:
		return WidgetNumber, "any"
	case schema.TypeDate:
		return WidgetDate, ""
	case schema.TypeText:
		return WidgetTextarea, ""
	default:
		return WidgetText, ""
	}
}

// Label - "plotSize" -> "Plot size".
func Label(name string) string {
	return inflect.Humanize(inflect.Underscore(name))
}

// Form - состояние формы создания/редактирования записи.
type Form struct {
	table    *schema.Table
	mode     Mode
	recordID int64
	input    map[string]string // сырые строки видимых полей
	hidden   map[string]any    // скрытые поля редактируемой записи
	errs     []FieldError
}

// NewForm: existing == nil - режим создания, иначе редактирование этой записи.
// Для редактирования запись должна быть прочитана без uiOnly, иначе
// полная замена значений сотрёт скрытые поля.
func NewForm(t *schema.Table, existing *schema.Record) *Form {
	f := &Form{table: t}
	f.reset()
	if existing == nil {
		return f
	}
	f.mode = ModeEdit
	f.recordID = existing.ID
	for _, fd := range t.Fields {
		v := existing.Values[fd.Name]
		if !fd.Visible {
			f.hidden[fd.Name] = v
			continue
		}
		if fd.Type == schema.TypeBool {
			if b, _ := v.(bool); b {
				f.input[fd.Name] = "on"
			}
			continue
		}
		f.input[fd.Name] = inputValue(fd, v)
	}
	return f
}

func (f *Form) reset() {
	f.mode = ModeCreate
	f.recordID = 0
	f.input = map[string]string{}
	f.hidden = map[string]any{}
	f.errs = nil
}

func (f *Form) Mode() Mode { return f.mode }
func (f *Form) RecordID() int64 { return f.recordID }
func (f *Form) Table() *schema.Table { return f.table }
func (f *Form) Errors() []FieldError { return f.errs }
func (f *Form) Input(name string) string { return f.input[name] }

// Bind загружает отправленные значения. Отсутствующий чекбокс - false.
func (f *Form) Bind(posted map[string][]string) {
	for _, fd := range f.table.VisibleFields() {
		vals := posted[fd.Name]
		if fd.Type == schema.TypeBool {
			if len(vals) > 0 && vals[len(vals)-1] != "" {
				f.input[fd.Name] = vals[len(vals)-1]
			} else {
				delete(f.input, fd.Name)
			}
			continue
		}
		if len(vals) == 0 {
			f.input[fd.Name] = ""
			continue
		}
		f.input[fd.Name] = vals[0]
	}
}

// Validate проверяет обязательные видимые поля. Чекбокс пустым не бывает.
func (f *Form) Validate() []FieldError {
	var errs []FieldError
	for _, fd := range f.table.VisibleFields() {
		if !fd.Required || fd.Type == schema.TypeBool {
			continue
		}
		if strings.TrimSpace(f.input[fd.Name]) == "" {
			errs = append(errs, ferr(ErrRequired, fd.Name, Label(fd.Name)+" is required"))
		}
	}
	f.errs = errs
	return errs
}

// Values - то, что уйдёт в хранилище. Приведение типов делает хранилище.
func (f *Form) Values() map[string]any {
	out := make(map[string]any, len(f.table.Fields))
	for name, v := range f.hidden {
		out[name] = v
	}
	for _, fd := range f.table.VisibleFields() {
		if fd.Type == schema.TypeBool {
			out[fd.Name] = schema.Coerce(fd, f.input[fd.Name])
			continue
		}
		out[fd.Name] = f.input[fd.Name]
	}
	return out
}

// Widgets - поля ввода в порядке схемы, только видимые.
func (f *Form) Widgets() []Widget {
	byField := map[string]string{}
	for _, e := range f.errs {
		byField[e.Field] = e.Message
	}
	fields := f.table.VisibleFields()
	out := make([]Widget, 0, len(fields))
	for _, fd := range fields {
		kind, step := WidgetFor(fd.Type)
		w := Widget{
			Name:     fd.Name,
			Label:    Label(fd.Name),
			Kind:     kind,
			Step:     step,
			Required: fd.Required,
			Error:    byField[fd.Name],
		}
		if kind == WidgetCheckbox {
			w.Checked = schema.Coerce(fd, f.input[fd.Name]).(bool)
		} else {
			w.Value = f.input[fd.Name]
		}
		out = append(out, w)
	}
	return out
}

// Submit проверяет форму и вызывает Insert или Update. При успехе форма
// сбрасывается в пустой режим создания; при ошибке ввод сохраняется.
func (f *Form) Submit(ctx context.Context, records store.Records) (*schema.Record, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return nil, schema.Validation(errs[0].Field, "%s", errs[0].Message)
	}
	var (
		rec *schema.Record
		err error
	)
	if f.mode == ModeEdit {
		rec, err = records.Update(ctx, f.table.Name, f.recordID, f.Values())
	} else {
		rec, err = records.Insert(ctx, f.table.Name, f.Values())
	}
	if err != nil {
		return nil, err
	}
	f.reset()
	return rec, nil
}
