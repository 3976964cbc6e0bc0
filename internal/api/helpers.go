package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"govconnect/internal/schema"
)

// parseID - id записи из пути; не число - ошибка валидации, а не 404.
func parseID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, schema.Validation("id", "invalid record id %q", raw)
	}
	return id, nil
}

// boolQuery читает флаг ?name=; отсутствующий - def.
func boolQuery(c *gin.Context, name string, def bool) bool {
	v, ok := c.GetQuery(name)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func flattenAll(recs []*schema.Record) []map[string]any {
	out := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Flatten())
	}
	return out
}
