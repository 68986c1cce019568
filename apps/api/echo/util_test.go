package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
	"github.com/trezcool/maktab/services/llm"
	"github.com/trezcool/maktab/services/metrics"
	"github.com/trezcool/maktab/storage/database/inmem"
)

type testLogger struct {
	mu        sync.Mutex
	errors []string
}

var _ core.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(string, ...interface{}) {}
func (l *testLogger) Info(string, ...interface{})  {}
func (l *testLogger) Warn(string, ...interface{})  {}
func (l *testLogger) Fatal(string, ...interface{}) {}
func (l *testLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

// switchModel answers like the dummy provider unless err is set.
type switchModel struct {
	llm.Dummy
	mu        sync.Mutex
	err       error
	uploadErr error
	prompt    chat.Prompt
}

func (m *switchModel) Generate(ctx context.Context, p chat.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompt = p
	if m.err != nil {
		return "", m.err
	}
	return m.Dummy.Generate(ctx, p)
}

func (m *switchModel) UploadFile(ctx context.Context, name, mimeType string, r io.Reader) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	return m.Dummy.UploadFile(ctx, name, mimeType, r)
}

type testApp struct {
	server  *Server
	repo    catalog.Repository
	catalog catalog.Service
	model   *switchModel
	logger  *testLogger
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := &core.Config{
		AppName:  "Maktab AI",
		TestMode: true,
		Server: core.ServerConfig{
			BodyLimit:      "50M",
			AllowedOrigins: []string{"*"},
			DisableReqLogs: true,
		},
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	app := &testApp{
		repo:   inmemdb.NewCatalogRepository(inmemdb.Open()),
		model:  &switchModel{},
		logger: &testLogger{},
	}
	app.catalog = catalog.NewService(app.repo)
	collector := metrics.NewCollector("test")
	chatSvc := chat.NewService(chat.Deps{
		Catalog:  app.catalog,
		Model:    app.model,
		Files:    app.model,
		Recorder: collector,
	})

	app.server = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     app.logger,
		CatalogSvc: app.catalog,
		ChatSvc:    chatSvc,
		Metrics:    collector,
		Validate:   validate,
		Translator: translator,
	})
	return app
}

type httpErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	header   http.Header
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newRequest(method, tt.path, tt.body)
	for k, v := range tt.header {
		req.Header[k] = v
	}
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) httpErr {
	t.Helper()
	var e httpErr
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decodeErr(): %v (%s)", err, rec.Body.String())
	}
	return e
}

func marshalInto(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("marshalInto(): %v (%s)", err, string(data))
	}
}
