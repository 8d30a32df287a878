package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labstack/echo/v4"

	"github.com/yuchiaw/oil-intake/constants"
	"github.com/yuchiaw/oil-intake/internal/catalog"
	"github.com/yuchiaw/oil-intake/internal/intake"
	"github.com/yuchiaw/oil-intake/internal/session"
	"github.com/yuchiaw/oil-intake/internal/vision"
)

type stubTranscriber struct {
	byRegion map[string]string
	err      error
}

func (s *stubTranscriber) Transcribe(_ context.Context, req vision.TranscribeRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.byRegion[req.Region], nil
}

type stubSink struct {
	rows [][]string
	err  error
}

func (s *stubSink) Append(_ context.Context, row []string) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

func newTestController(t *testing.T, tr vision.Transcriber, sk *stubSink) *Controller {
	t.Helper()
	if sk == nil {
		sk = &stubSink{}
	}
	svc := intake.NewService(nil, intake.Params{
		Transcriber: tr,
		Session:     session.New(sk, nil),
		Catalog:     catalog.New([]string{"白雲杉-特級", "白雲杉", "薰衣草"}, 0.3, nil),
	})
	return New(svc, nil)
}

func do(c *Controller, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func multipartImage(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, field+".jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not-really-a-jpeg"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	c := newTestController(t, &stubTranscriber{}, nil)
	rec := do(c, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtract_FrontImage(t *testing.T) {
	tr := &stubTranscriber{byRegion: map[string]string{
		constants.RegionFront: "品名:白雲杉-特級 售價:$700 6ML",
	}}
	c := newTestController(t, tr, nil)

	body, contentType := multipartImage(t, constants.RegionFront)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/extract", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := do(c, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp draftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "白雲杉-特級", resp.Draft.Name)
	assert.Equal(t, "700", resp.Draft.Price)
	assert.Equal(t, "6", resp.Draft.Volume)
	assert.Equal(t, "白雲杉-特級", resp.Candidates[constants.RegionFront][constants.FieldName])
}

func TestExtract_NoFiles(t *testing.T) {
	c := newTestController(t, &stubTranscriber{}, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/extract", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	rec := do(c, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	c := newTestController(t, &stubTranscriber{}, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(constants.RegionFront, "label.gif")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("gif"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/extract", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := do(c, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtract_VisionFailureKeepsDraft(t *testing.T) {
	c := newTestController(t, &stubTranscriber{err: errors.New("model unavailable")}, nil)

	// seed the draft by hand first
	edit := httptest.NewRequest(http.MethodPut, "/api/v1/intake/draft/fields/name",
		strings.NewReader(`{"value":"手動輸入"}`))
	edit.Header.Set(echo.HeaderContentType, "application/json")
	require.Equal(t, http.StatusOK, do(c, edit).Code)

	body, contentType := multipartImage(t, constants.RegionFront)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/extract", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := do(c, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	get := do(c, httptest.NewRequest(http.MethodGet, "/api/v1/intake/draft", nil))
	var resp draftResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &resp))
	assert.Equal(t, "手動輸入", resp.Draft.Name)
}

func TestEditField_Unknown(t *testing.T) {
	c := newTestController(t, &stubTranscriber{}, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/intake/draft/fields/barcode",
		strings.NewReader(`{"value":"x"}`))
	req.Header.Set(echo.HeaderContentType, "application/json")
	assert.Equal(t, http.StatusBadRequest, do(c, req).Code)
}

func TestConfirm_EmptyName(t *testing.T) {
	sk := &stubSink{}
	c := newTestController(t, &stubTranscriber{}, sk)
	rec := do(c, httptest.NewRequest(http.MethodPost, "/api/v1/intake/confirm", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, sk.rows)
}

func TestConfirm_SinkFailurePreservesDraft(t *testing.T) {
	sk := &stubSink{err: errors.New("append denied")}
	c := newTestController(t, &stubTranscriber{}, sk)

	edit := httptest.NewRequest(http.MethodPut, "/api/v1/intake/draft/fields/name",
		strings.NewReader(`{"value":"白雲杉"}`))
	edit.Header.Set(echo.HeaderContentType, "application/json")
	require.Equal(t, http.StatusOK, do(c, edit).Code)

	rec := do(c, httptest.NewRequest(http.MethodPost, "/api/v1/intake/confirm", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	get := do(c, httptest.NewRequest(http.MethodGet, "/api/v1/intake/draft", nil))
	var resp draftResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &resp))
	assert.Equal(t, "白雲杉", resp.Draft.Name)
}

func TestConfirm_SuccessResetsDraft(t *testing.T) {
	sk := &stubSink{}
	c := newTestController(t, &stubTranscriber{}, sk)

	edit := httptest.NewRequest(http.MethodPut, "/api/v1/intake/draft/fields/name",
		strings.NewReader(`{"value":"白雲杉"}`))
	edit.Header.Set(echo.HeaderContentType, "application/json")
	require.Equal(t, http.StatusOK, do(c, edit).Code)

	rec := do(c, httptest.NewRequest(http.MethodPost, "/api/v1/intake/confirm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp confirmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Row, 6)
	assert.Equal(t, "白雲杉", resp.Row[0])
	require.Len(t, sk.rows, 1)

	get := do(c, httptest.NewRequest(http.MethodGet, "/api/v1/intake/draft", nil))
	var after draftResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &after))
	assert.Empty(t, after.Draft.Name)
}

func TestSuggestions(t *testing.T) {
	c := newTestController(t, &stubTranscriber{}, nil)
	rec := do(c, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/suggestions?name=白雲彬&limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Suggestions []catalog.Suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "白雲杉", resp.Suggestions[0].Name)
}

