package handle_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/router"
	"github.com/tvloop/tvloop/pkg/internal/store"
	"github.com/tvloop/tvloop/pkg/internal/types"
	"github.com/tvloop/tvloop/pkg/middleware"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()

	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	st, err := store.New(afero.NewMemMapFs(), &configs.GetConfig().Store)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(middleware.StoreMiddleware(st))
	router.Register(engine)

	return engine
}

func multipartUpload(t *testing.T, payload, policy string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("video", "clip.mp4")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}

	if _, err := part.Write([]byte(payload)); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	if policy != "" {
		if err := w.WriteField("prazoValidade", policy); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	return &body, w.FormDataContentType()
}

func doRequest(engine *gin.Engine, method, target, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	return rec
}

func TestUploadListDeleteFlow(t *testing.T) {
	engine := newTestEngine(t)

	body, contentType := multipartUpload(t, "fake mp4 bytes", "7")

	rec := doRequest(engine, http.MethodPost, "/upload", contentType, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var up types.UploadResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}

	if up.Filename != "video1.mp4" || up.XMLFile != "video1.xml" {
		t.Errorf("upload assigned %q/%q, want video1.mp4/video1.xml", up.Filename, up.XMLFile)
	}

	if up.OriginalName != "clip.mp4" {
		t.Errorf("OriginalName = %q, want clip.mp4", up.OriginalName)
	}

	rec = doRequest(engine, http.MethodGet, "/list", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var listing types.ListResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode list response: %v", err)
	}

	if listing.Count != 1 || !listing.Exists {
		t.Fatalf("list = %+v, want one video", listing)
	}

	if listing.Videos[0].XMLURL == "" {
		t.Error("list omitted xmlUrl for a video with a sidecar")
	}

	// /check is the lightweight probe: entries exist but carry no
	// sidecar fields.
	rec = doRequest(engine, http.MethodGet, "/check", "", nil)

	var check types.ListResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode check response: %v", err)
	}

	if check.Count != 1 || check.Videos[0].XMLFile != "" {
		t.Errorf("check = %+v, want one entry without sidecar fields", check)
	}

	rec = doRequest(engine, http.MethodGet, "/xml/video1.xml", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("xml status = %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "<expiration>") {
		t.Errorf("sidecar body missing expiration element: %s", rec.Body.String())
	}

	rec = doRequest(engine, http.MethodDelete, "/delete/video1.mp4", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(engine, http.MethodGet, "/check", "", nil)
	if err := sonic.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode check response: %v", err)
	}

	if check.Exists || check.Count != 0 {
		t.Errorf("check after delete = %+v, want empty", check)
	}
}

func TestUploadRejectsNonVideo(t *testing.T) {
	engine := newTestEngine(t)

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("video", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}

	_, _ = part.Write([]byte("plain text"))
	_ = w.Close()

	rec := doRequest(engine, http.MethodPost, "/upload", w.FormDataContentType(), &body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upload status = %d, want 400", rec.Code)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	engine := newTestEngine(t)

	var body bytes.Buffer

	w := multipart.NewWriter(&body)
	_ = w.WriteField("prazoValidade", "10")
	_ = w.Close()

	rec := doRequest(engine, http.MethodPost, "/upload", w.FormDataContentType(), &body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upload status = %d, want 400", rec.Code)
	}
}

func TestDeleteRejectsTraversal(t *testing.T) {
	engine := newTestEngine(t)

	rec := doRequest(engine, http.MethodDelete, "/delete/..%2F..%2Fetc%2Fpasswd", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete status = %d, want 400", rec.Code)
	}
}

func TestDeleteMissingVideo(t *testing.T) {
	engine := newTestEngine(t)

	rec := doRequest(engine, http.MethodDelete, "/delete/video42.mp4", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete status = %d, want 404", rec.Code)
	}
}

func TestUpdateValidity(t *testing.T) {
	engine := newTestEngine(t)

	body, contentType := multipartUpload(t, "fake mp4 bytes", "")

	rec := doRequest(engine, http.MethodPost, "/upload", contentType, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}

	payload, _ := sonic.Marshal(types.UpdateValidityRequest{Filename: "video1.mp4", ExpirationDays: 90})

	rec = doRequest(engine, http.MethodPost, "/update-validity", "application/json", bytes.NewBuffer(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("update-validity status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp types.UpdateValidityResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode update response: %v", err)
	}

	if resp.PrazoValidade == "" {
		t.Error("update-validity returned an empty marker")
	}

	rec = doRequest(engine, http.MethodGet, "/xml/video1.xml", "", nil)
	if !strings.Contains(rec.Body.String(), resp.PrazoValidade) {
		t.Errorf("sidecar %s does not carry the new marker %q", rec.Body.String(), resp.PrazoValidade)
	}
}

func TestUpdateValidityRejectsBadFilename(t *testing.T) {
	engine := newTestEngine(t)

	payload, _ := sonic.Marshal(types.UpdateValidityRequest{Filename: "../../etc/passwd", ExpirationDays: 10})

	rec := doRequest(engine, http.MethodPost, "/update-validity", "application/json", bytes.NewBuffer(payload))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("update-validity status = %d, want 400", rec.Code)
	}
}

func TestStatusAndIndex(t *testing.T) {
	engine := newTestEngine(t)

	rec := doRequest(engine, http.MethodGet, "/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status status = %d", rec.Code)
	}

	var status types.StatusResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status response: %v", err)
	}

	if !status.Success || status.Status != "online" {
		t.Errorf("status = %+v, want online", status)
	}

	rec = doRequest(engine, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
}
