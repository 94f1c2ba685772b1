// Package googlesheets implementa el almacén tabular sobre el API v4 de Google Sheets.
// Cada tabla es una hoja; la fila 1 es la cabecera y los datos empiezan en la fila 2.
package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
	"github.com/jhoicas/cafe-bot/pkg/logger"
	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

const (
	driverName = "sheets"
	// DefaultEndpoint raíz del API; el cliente generado agrega "v4/spreadsheets/...".
	DefaultEndpoint = "https://sheets.googleapis.com/"
	// headerRows filas antes del primer dato.
	headerRows = 1
)

var (
	_ tabular.Store         = (*Client)(nil)
	_ tabular.SchemaEnsurer = (*Client)(nil)
)

// Config parámetros del cliente.
type Config struct {
	SpreadsheetID string
	Endpoint      string
	MaxRetries    int
	RetryBase     time.Duration
	Timeout       time.Duration
}

// Client almacén tabular sobre una hoja de cálculo de Google.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	maxRetries    int
	retryBase     time.Duration
	log           *logger.Logger
}

// New construye el cliente. httpClient debe venir autenticado (ver ServiceAccountClient).
func New(ctx context.Context, cfg Config, httpClient *http.Client, log *logger.Logger) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("googlesheets: spreadsheet id vacío")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Timeout > 0 {
		hc := *httpClient
		hc.Timeout = cfg.Timeout
		httpClient = &hc
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("googlesheets: crear servicio: %w", err)
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		maxRetries:    cfg.MaxRetries,
		retryBase:     retryBase,
		log:           log.Component("googlesheets"),
	}, nil
}

// call ejecuta op con la política de reintentos y registra métricas.
func (c *Client) call(ctx context.Context, operation string, op func() error) error {
	start := time.Now()
	err := c.withRetry(ctx, operation, op)
	metrics.StoreRequestDuration.WithLabelValues(driverName, operation).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreRequestsTotal.WithLabelValues(driverName, operation, status).Inc()
	return err
}

// classify traduce errores del API a errores estructurales cuando la hoja no existe.
func classify(table string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %s", tabular.ErrTableNotFound, table)
	}
	return err
}

func lookupSchema(table string) (tabular.Schema, error) {
	s, ok := tabular.Lookup(table)
	if !ok {
		return tabular.Schema{}, fmt.Errorf("%w: %s", tabular.ErrTableNotFound, table)
	}
	return s, nil
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func rowStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = cellString(v)
	}
	return out
}

func rowCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ReadAll lee la hoja completa. Valida la cabecera contra el esquema.
func (c *Client) ReadAll(ctx context.Context, table string) ([]tabular.Row, error) {
	schema, err := lookupSchema(table)
	if err != nil {
		return nil, err
	}
	var vr *sheets.ValueRange
	err = c.call(ctx, "read", func() error {
		var err error
		vr, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, table).
			ValueRenderOption("FORMATTED_VALUE").
			MajorDimension("ROWS").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, classify(table, err)
	}
	if len(vr.Values) == 0 {
		return []tabular.Row{}, nil
	}
	header := rowStrings(vr.Values[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := schema.CheckHeader(header); err != nil {
		return nil, err
	}
	rows := make([]tabular.Row, 0, len(vr.Values)-headerRows)
	for i, raw := range vr.Values[headerRows:] {
		rows = append(rows, tabular.Row{Index: i, Values: schema.Record(rowStrings(raw))})
	}
	return rows, nil
}

// ReadFiltered lee la hoja y filtra en memoria (el API de valores no filtra por contenido).
func (c *Client) ReadFiltered(ctx context.Context, table string, filters map[string]string) ([]tabular.Row, error) {
	rows, err := c.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	return tabular.FilterRows(rows, filters), nil
}

var updatedRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// Append agrega la fila al final de la hoja y devuelve su índice de datos.
func (c *Client) Append(ctx context.Context, table string, rec tabular.Record) (int, error) {
	schema, err := lookupSchema(table)
	if err != nil {
		return 0, err
	}
	body := &sheets.ValueRange{MajorDimension: "ROWS", Values: [][]interface{}{rowCells(schema.Values(rec))}}

	var resp *sheets.AppendValuesResponse
	err = c.call(ctx, "append", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, table+"!A1", body).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, classify(table, err)
	}
	var updated string
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	m := updatedRowRe.FindStringSubmatch(updated)
	if m == nil {
		return 0, fmt.Errorf("append %s: rango actualizado inesperado %q", table, updated)
	}
	sheetRow, _ := strconv.Atoi(m[1])
	return sheetRow - headerRows - 1, nil
}

// UpdateCell escribe una sola celda.
func (c *Client) UpdateCell(ctx context.Context, table string, row int, column, value string) error {
	schema, err := lookupSchema(table)
	if err != nil {
		return err
	}
	col := schema.ColumnIndex(column)
	if col < 0 {
		return fmt.Errorf("%w: %s.%s", tabular.ErrUnknownColumn, table, column)
	}
	if row < 0 {
		return fmt.Errorf("%w: %s[%d]", tabular.ErrRowNotFound, table, row)
	}
	a1 := fmt.Sprintf("%s!%s%d", table, ColumnLetter(col), row+headerRows+1)
	if err := c.writeRange(ctx, a1, []string{value}); err != nil {
		return classify(table, err)
	}
	return nil
}

func (c *Client) writeRange(ctx context.Context, a1 string, values []string) error {
	body := &sheets.ValueRange{Range: a1, MajorDimension: "ROWS", Values: [][]interface{}{rowCells(values)}}
	return c.call(ctx, "update", func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1, body).
			ValueInputOption("RAW").
			Context(ctx).Do()
		return err
	})
}

// EnsureSchema crea la hoja si falta y escribe la cabecera si está vacía.
// Una cabecera existente distinta del esquema es un error estructural.
func (c *Client) EnsureSchema(ctx context.Context, schema tabular.Schema) error {
	var info *sheets.Spreadsheet
	err := c.call(ctx, "metadata", func() error {
		var err error
		info, err = c.svc.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}
	exists := false
	for _, s := range info.Sheets {
		if s.Properties != nil && s.Properties.Title == schema.Name {
			exists = true
			break
		}
	}
	if !exists {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: schema.Name}},
			}},
		}
		err := c.call(ctx, "add_sheet", func() error {
			_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
			return err
		})
		if err != nil {
			return err
		}
		c.log.Info().Str("sheet", schema.Name).Msg("hoja creada")
	}

	var hdr *sheets.ValueRange
	err = c.call(ctx, "read", func() error {
		var err error
		hdr, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, schema.Name+"!1:1").Context(ctx).Do()
		return err
	})
	if err != nil {
		return classify(schema.Name, err)
	}
	if len(hdr.Values) == 0 || len(hdr.Values[0]) == 0 {
		return c.writeRange(ctx, schema.Name+"!A1", schema.Columns)
	}
	header := rowStrings(hdr.Values[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return schema.CheckHeader(header)
}

// ColumnLetter convierte un índice 0-based en letra de columna A1 (0 -> A, 26 -> AA).
func ColumnLetter(idx int) string {
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}
