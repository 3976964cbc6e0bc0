package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coerce приводит «сырое» значение из формы/JSON к объявленному типу поля.
//
// Политика мягкая: нечисловой ввод в int/float-поле не даёт ошибку,
// а превращается в 0. Это не валидация.
func Coerce(f Field, v any) any {
	switch f.Type {
	case TypeInt:
		return toIntLenient(v)
	case TypeFloat:
		return toFloatLenient(v)
	case TypeBool:
		return toBoolLenient(v)
	case TypeDate:
		// ISO-дата хранится как есть, без разбора
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
		return toStringOrNil(v)
	default: // string, text
		return toStringOrNil(v)
	}
}

// CoerceValues строит значения записи по текущей схеме.
// Неизвестные и системные ключи отбрасываются; отсутствующие числовые поля
// получают 0, bool - false, строковые - nil.
func CoerceValues(t *Table, raw map[string]any) map[string]any {
	byName := make(map[string]any, len(raw))
	for k, v := range raw {
		byName[NormalizeName(k)] = v
	}
	out := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		out[f.Name] = Coerce(f, byName[NormalizeName(f.Name)])
	}
	return out
}

// FromStorage нормализует значение, прочитанное из бэкенда (int64 из sqlite для bool,
// []byte для text и т.п.). NULL остаётся nil.
func FromStorage(f Field, v any) any {
	if v == nil {
		return nil
	}
	return Coerce(f, v)
}

func toIntLenient(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return truncFloat(t)
	case float32:
		return truncFloat(float64(t))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return truncFloat(f)
		}
		return 0
	case []byte:
		return toIntLenient(string(t))
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return truncFloat(f)
		}
		return 0
	default:
		return 0
	}
}

// truncFloat: вне диапазона int64 - 0, как и любой неудачный разбор.
func truncFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

func toFloatLenient(v any) float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case float32:
		return toFloatLenient(float64(t))
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return toFloatLenient(f)
		}
		return 0
	case []byte:
		return toFloatLenient(string(t))
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return toFloatLenient(f)
		}
		return 0
	default:
		return 0
	}
}

func toBoolLenient(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "0", "no", "n", "off":
			return false
		default:
			return true
		}
	case []byte:
		return toBoolLenient(string(t))
	case float64:
		return t != 0
	case int64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		return toFloatLenient(t) != 0
	default:
		return true
	}
}

func toStringOrNil(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
