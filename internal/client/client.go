// Package client - Go-клиент REST API динамических таблиц.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"govconnect/internal/schema"
)

var (
	// ErrConnectivity - сервер недоступен на транспортном уровне. Это не NotFound.
	ErrConnectivity = errors.New("govconnect: backend unreachable")
	// ErrSuperseded - ответ устарел: по тому же ключу уже ушёл более поздний запрос.
	ErrSuperseded = errors.New("govconnect: response superseded by a later request")
)

type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string { return e.Op + ": " + ErrConnectivity.Error() + ": " + e.Err.Error() }
func (e *ConnectivityError) Unwrap() error { return e.Err }
func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

type Client struct {
	base string
	http *http.Client

	mu  sync.Mutex
	seq map[string]uint64
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
		seq:  make(map[string]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type Field struct {
	FieldName string `json:"field_name"`
	DataType  string `json:"data_type"`
	ShowUI    bool   `json:"show_ui"`
	Required  bool   `json:"required"`
}

type TableMeta struct {
	TableName string              `json:"table_name"`
	Fields    []Field             `json:"fields"`
	Section   *schema.SectionMeta `json:"section,omitempty"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ConnectivityError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError восстанавливает прикладную ошибку из тела ответа.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	kind := schema.Kind(eb.Error.Code)
	switch kind {
	case schema.KindValidation, schema.KindDuplicate, schema.KindNotFound, schema.KindUnavailable:
	default:
		switch resp.StatusCode {
		case http.StatusBadRequest:
			kind = schema.KindValidation
		case http.StatusConflict:
			kind = schema.KindDuplicate
		case http.StatusNotFound:
			kind = schema.KindNotFound
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			kind = schema.KindUnavailable
		default:
			return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
	}
	msg := eb.Error.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &schema.Error{Kind: kind, Field: eb.Error.Field, Message: msg}
}

// begin/current реализуют «побеждает последний ответ» по ключу.
func (c *Client) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq[key]++
	return c.seq[key]
}

func (c *Client) current(key string, n uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq[key] == n
}

func tablePath(table string) string {
	return "/api/admin/dynamic/tables/" + url.PathEscape(table)
}

func (c *Client) Setup(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/admin/dynamic/setup", nil, nil)
}

func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	var out struct {
		Tables []string `json:"tables"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/dynamic/tables", nil, &out)
	return out.Tables, err
}

// CreateTable отправляет схему тремя параллельными массивами.
func (c *Client) CreateTable(ctx context.Context, t schema.Table) (*TableMeta, error) {
	req := struct {
		TableName string   `json:"table_name"`
		Fields    []string `json:"fields"`
		DataTypes []string `json:"data_types"`
		ShowUI    []bool   `json:"show_ui"`
		Required  []bool   `json:"required"`
	}{TableName: t.Name}
	for _, f := range t.Fields {
		req.Fields = append(req.Fields, f.Name)
		req.DataTypes = append(req.DataTypes, string(f.Type))
		req.ShowUI = append(req.ShowUI, f.Visible)
		req.Required = append(req.Required, f.Required)
	}
	var out struct {
		Table TableMeta `json:"table"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/dynamic/tables", req, &out); err != nil {
		return nil, err
	}
	return &out.Table, nil
}

func (c *Client) GetSchema(ctx context.Context, table string) (*TableMeta, error) {
	var out TableMeta
	if err := c.do(ctx, http.MethodGet, tablePath(table)+"/metadata", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteField(ctx context.Context, table, field string) error {
	return c.do(ctx, http.MethodDelete, tablePath(table)+"/fields/"+url.PathEscape(field), nil, nil)
}

func (c *Client) DeleteTable(ctx context.Context, table string) error {
	return c.do(ctx, http.MethodDelete, tablePath(table), nil, nil)
}

// Insert возвращает сохранённую запись плоско: {id, ...values}.
func (c *Client) Insert(ctx context.Context, table string, values map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, tablePath(table)+"/data", values, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List - записи таблицы. Если по той же таблице успел уйти более поздний
// List, ответ этого вызова отбрасывается с ErrSuperseded.
func (c *Client) List(ctx context.Context, table string, uiOnly bool) ([]map[string]any, error) {
	key := "list:" + strings.ToLower(table)
	n := c.begin(key)

	var out struct {
		Data []map[string]any `json:"data"`
	}
	path := tablePath(table) + "/data?ui_only=" + strconv.FormatBool(uiOnly)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if !c.current(key, n) {
		return nil, ErrSuperseded
	}
	return out.Data, nil
}

func (c *Client) Update(ctx context.Context, table string, id int64, values map[string]any) error {
	return c.do(ctx, http.MethodPut, tablePath(table)+"/data/"+strconv.FormatInt(id, 10), values, nil)
}

func (c *Client) Delete(ctx context.Context, table string, id int64) error {
	return c.do(ctx, http.MethodDelete, tablePath(table)+"/data/"+strconv.FormatInt(id, 10), nil, nil)
}

type MenuEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
	Icon  string `json:"icon"`
}

func (c *Client) Menu(ctx context.Context) ([]MenuEntry, error) {
	var out struct {
		Menu []MenuEntry `json:"menu"`
	}
	err := c.do(ctx, http.MethodGet, "/api/nav/menu", nil, &out)
	return out.Menu, err
}
