package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"freightdash/internal/dashboard"
	"freightdash/internal/model"
	"freightdash/internal/store"
)

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	router *gin.Engine
	store  *store.Store
	opens  *atomic.Int32
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "freight.db")
	st, err := store.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sessions := dashboard.NewRegistry(st, dashboard.Options{Debounce: time.Hour})
	t.Cleanup(sessions.Close)

	opens := new(atomic.Int32)
	h := NewHandler(st, Options{
		OpenStore: func() (*store.Store, error) {
			opens.Add(1)
			return store.New(dbPath)
		},
		Sessions:   sessions,
		ExportsDir: t.TempDir(),
	})

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return &testEnv{router: router, store: st, opens: opens}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp testResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (e *testEnv) upload(t *testing.T, path, filename string, data []byte) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return e.do(t, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType())
}

func (e *testEnv) postJSON(t *testing.T, method, path string, v interface{}) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return e.do(t, method, path, b, "application/json")
}

func workbook(t *testing.T, headers []string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	all := append([][]interface{}{toRow(headers)}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func toRow(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

var headers = []string{"DATA", "Cidade Origem", "UF Origem", "Base Origem", "Nota Fiscal", "Cidade Destino", "UF Destino", "Filial", "Peso Real", "Total Frete"}

func sampleWorkbook(t *testing.T) []byte {
	return workbook(t, headers, [][]interface{}{
		{"04/03/2024", "Campinas", "SP", "CPQ", "1001", "Campinas", "SP", "CPQ", "10,5", "100,00"},
		{"05/03/2024", "Jundiaí", "SP", "CPQ", "1002", "Santos", "SP", "STS", "4,5", "50,00"},
		{"06/03/2024", nil, "SP", "CPQ", "1003", "Campinas", "SP", "CPQ", "1", "1"},
		{"07/03/2024", "Curitiba", "PR", "CWB", "1004", "Campinas", "SP", "CPQ", "5", "30,30"},
		{"11/03/2024", "São Paulo", "SP", "SAO", "1005", "Campinas", "SP", "CPQ", "20", "19,70"},
	})
}

func TestUpload_BestEffortImport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w, resp := env.upload(t, "/api/upload", "fretes.xlsx", sampleWorkbook(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)

	var report model.ImportReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, 4, report.Inserted)
	assert.Equal(t, 5, report.TotalRows)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 3, report.Failures[0].RowIndex)
	assert.Equal(t, headers, report.HeadersFound)
	assert.Contains(t, report.FieldsUsed, model.FieldMatch{Field: model.FieldInvoiceNumber, Header: "Nota Fiscal"})
	assert.Equal(t, int32(1), env.opens.Load())

	// 共享存储可以看到上传连接写入的数据
	w, resp = env.do(t, http.MethodGet, "/api/shipments", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []*model.ShipmentRecord `json:"items"`
		Total int                     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, 4, list.Total)

	_, resp = env.do(t, http.MethodGet, "/api/shipments?originState=PR", nil, "")
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "1004", list.Items[0].InvoiceNumber)
	assert.Equal(t, "2024-03-07", list.Items[0].Date)

	_, resp = env.do(t, http.MethodGet, "/api/imports", nil, "")
	var logs []model.ImportLog
	require.NoError(t, json.Unmarshal(resp.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, report.ImportID, logs[0].ID)
	assert.Equal(t, 1, logs[0].FailedRows)
}

func TestUpload_FatalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     []byte
		status   int
		message  string
	}{
		{"no file", "", nil, http.StatusBadRequest, "no file"},
		{"unsupported extension", "fretes.csv", []byte("a;b"), http.StatusBadRequest, "unsupported file type"},
		{"legacy xls", "fretes.xls", []byte("\xd0\xcf\x11\xe0 not really"), http.StatusBadRequest, "unreadable spreadsheet"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			w, resp := env.upload(t, "/api/upload", tt.filename, tt.data)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Message, tt.message)

			n, err := env.store.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestUpload_MissingInvoiceColumn(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data := workbook(t, []string{"Data", "Cidade Origem", "UF Origem", "Base Origem"}, [][]interface{}{
		{"04/03/2024", "Campinas", "SP", "CPQ"},
	})
	w, resp := env.upload(t, "/api/upload", "sem_nf.xlsx", data)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "invoiceNumber")

	var detail struct {
		MissingFields []model.MissingField `json:"missingFields"`
		HeadersFound  []string             `json:"headersFound"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &detail))
	require.Len(t, detail.MissingFields, 1)
	assert.Equal(t, model.FieldInvoiceNumber, detail.MissingFields[0].Field)
	assert.Contains(t, detail.MissingFields[0].AcceptedHeaders, "NF")
	assert.Len(t, detail.HeadersFound, 4)

	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUploadStream_SendsEvents(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w, _ := env.upload(t, "/api/upload/stream", "fretes.xlsx", sampleWorkbook(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `"type":"start"`)
	assert.Contains(t, body, `"type":"row_error"`)
	assert.Contains(t, body, `"type":"done"`)
	assert.Less(t, strings.Index(body, `"type":"start"`), strings.Index(body, `"type":"done"`))
}

func TestDashboardSessionFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w, _ := env.upload(t, "/api/upload", "fretes.xlsx", sampleWorkbook(t))
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodPost, "/api/dashboard/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var view dashboard.View
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.NotEmpty(t, view.Token)
	assert.Equal(t, 4, view.Count)
	base := "/api/dashboard/sessions/" + view.Token

	w, resp = env.postJSON(t, http.MethodPost, base+"/filters", FilterRequest{Dimension: "originState", Value: "SP"})
	require.Equal(t, http.StatusOK, w.Code)
	w, resp = env.postJSON(t, http.MethodPost, base+"/filters", FilterRequest{Dimension: "destinationCity", Value: "Campinas"})
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		Active bool           `json:"active"`
		View   dashboard.View `json:"view"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &toggled))
	assert.True(t, toggled.Active)
	assert.Equal(t, 2, toggled.View.Count)

	w, _ = env.postJSON(t, http.MethodPut, base+"/date-range", DateRangeRequest{Start: "2024-03-01", End: "08/03/2024"})
	require.Equal(t, http.StatusAccepted, w.Code)

	// 读取视图会先执行防抖中的日期变更
	w, resp = env.do(t, http.MethodGet, base+"?records=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.NotNil(t, view.DateRange)
	assert.Equal(t, "2024-03-08", view.DateRange.End)
	assert.Equal(t, 1, view.Count)
	require.Len(t, view.Records, 1)
	assert.Equal(t, "1001", view.Records[0].InvoiceNumber)
	assert.Equal(t, 6, view.Summary.BusinessDays)

	w, _ = env.postJSON(t, http.MethodPut, base+"/date-range", DateRangeRequest{Start: "2024-03-09", End: "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.postJSON(t, http.MethodPost, base+"/filters", FilterRequest{Dimension: "planet", Value: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Envios")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	_ = f.Close()

	w, resp = env.do(t, http.MethodDelete, base+"/filters", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, "dateFiltered", string(view.State))

	w, _ = env.do(t, http.MethodDelete, base, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w, resp = env.do(t, http.MethodGet, base, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}

func TestSchemaStatusAndDimensions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/schema", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var schema struct {
		Schema store.SchemaInfo  `json:"schema"`
		Fields []model.FieldSpec `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &schema))
	assert.True(t, schema.Schema.TableExists)
	assert.Len(t, schema.Fields, 16)

	w, resp = env.do(t, http.MethodGet, "/api/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.False(t, status.Initialized)
	assert.Nil(t, status.LastImport)

	w, resp = env.do(t, http.MethodGet, "/api/dashboard/dimensions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var dims []map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &dims))
	assert.Equal(t, "branch", dims[0]["name"])
	assert.Equal(t, "destinationBase", dims[0]["field"])

	w, _ = env.do(t, http.MethodGet, "/api/imports?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportSessionStream_ProgressThenOneTimeDownload(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w, _ := env.upload(t, "/api/upload", "fretes.xlsx", sampleWorkbook(t))
	require.Equal(t, http.StatusOK, w.Code)
	w, resp := env.do(t, http.MethodPost, "/api/dashboard/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var view dashboard.View
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	base := "/api/dashboard/sessions/" + view.Token

	w, _ = env.postJSON(t, http.MethodPost, base+"/filters", FilterRequest{Dimension: "originState", Value: "SP"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, base+"/export/stream", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var events []exportProgressEvent
	for _, line := range strings.Split(w.Body.String(), "\n") {
		payload, found := strings.CutPrefix(line, "data: ")
		if !found {
			continue
		}
		var evt exportProgressEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &evt))
		events = append(events, evt)
	}
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, "start", events[0].Type)
	assert.Equal(t, "progress", events[1].Type)
	done := events[len(events)-1]
	require.Equal(t, "done", done.Type)

	data, ok := done.Data.(map[string]interface{})
	require.True(t, ok)
	url, _ := data["downloadUrl"].(string)
	require.True(t, strings.HasPrefix(url, "/api/dashboard/exports/"), url)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Envios")
	require.NoError(t, err)
	assert.Len(t, rows, 4) // 表头 + 3 条 SP 发出的运单
	_ = f.Close()

	w, resp = env.do(t, http.MethodGet, url, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}
