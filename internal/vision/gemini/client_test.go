package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuchiaw/oil-intake/constants"
	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/vision"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-1.5-flash",
	}, nil)
}

func geminiReply(text string) []byte {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return b
}

func TestTranscribe(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write(geminiReply("品名:白雲杉-特級 售價:$700 6ML"))
	})

	text, err := c.Transcribe(context.Background(), vision.TranscribeRequest{
		Region:      constants.RegionFront,
		Instruction: "transcribe the label",
		Images:      []vision.Image{{Data: []byte("img"), MIMEType: "image/jpeg"}},
	})
	require.NoError(t, err)
	assert.Contains(t, text, "白雲杉-特級")
	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", gotPath)

	contents := gotBody["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2, "instruction part plus one image part")
}

func TestTranscribe_QuotaExceeded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Transcribe(context.Background(), vision.TranscribeRequest{Region: constants.RegionFront})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrQuota)
}

func TestTranscribe_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Transcribe(context.Background(), vision.TranscribeRequest{Region: constants.RegionFront})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrQuota)
}

func TestTranscribe_NoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Transcribe(context.Background(), vision.TranscribeRequest{Region: constants.RegionFront})
	assert.Error(t, err)
}

func TestExtractCandidates_StructuredReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(geminiReply(`{"expiry":"2028-04","batch_code":"7-330705"}`))
	})

	got, _, err := c.ExtractCandidates(context.Background(), constants.RegionSide, nil)
	require.NoError(t, err)
	assert.Equal(t, "2028-04", got[constants.FieldExpiry])
	assert.Equal(t, "7-330705", got[constants.FieldBatch])
}

func TestExtractCandidates_FencedAndNoisyReplySanitized(t *testing.T) {
	reply := "```json\n{\"name\":\"白雲杉\",\"price\":700,\"note\":\"front label\"}\n```"
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(geminiReply(reply))
	})

	got, _, err := c.ExtractCandidates(context.Background(), constants.RegionFront, nil)
	require.NoError(t, err)
	assert.Equal(t, "白雲杉", got[constants.FieldName])
	assert.Equal(t, "700", got[constants.FieldPrice])
}

func TestExtractCandidates_UnusableReplyFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(geminiReply("sorry, I cannot read this label"))
	})

	_, _, err := c.ExtractCandidates(context.Background(), constants.RegionFront, nil)
	assert.Error(t, err)
}
