package reference

// Catalog - справочник встроенных разделов и допустимых иконок меню.
type Catalog struct {
	DefaultIcon string           `yaml:"default_icon"`
	Icons       []string         `yaml:"icons"`
	Sections    []BuiltinSection `yaml:"sections"`
}

// BuiltinSection - раздел, который существует без динамической таблицы.
type BuiltinSection struct {
	Key         string `yaml:"key"`
	Title       string `yaml:"title"`
	Route       string `yaml:"route"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description,omitempty"`
	Component   string `yaml:"component,omitempty"`
	Order       int    `yaml:"order,omitempty"`
	Enabled     bool   `yaml:"enabled"`
}

// HasIcon - регистр не важен.
func (c *Catalog) HasIcon(name string) bool {
	for _, ic := range c.Icons {
		if equalFold(ic, name) {
			return true
		}
	}
	return false
}

// Icon возвращает каноническое имя иконки или DefaultIcon для неизвестных.
func (c *Catalog) Icon(name string) string {
	for _, ic := range c.Icons {
		if equalFold(ic, name) {
			return ic
		}
	}
	return c.DefaultIcon
}
