package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/entity"
	"github.com/yuchiaw/oil-intake/internal/vision"
)

var _ vision.Transcriber = (*Client)(nil)

// Transcribe implements vision.Transcriber over generateContent.
// No retries here: a failed call is surfaced and the user retries the
// whole action.
func (c *Client) Transcribe(ctx context.Context, req vision.TranscribeRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("vision.transcribe.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"region", req.Region,
		"images", len(req.Images),
	)

	body := c.buildBody(req.Instruction, req.Images, false)
	raw, err := c.post(ctx, body)
	if err != nil {
		c.log.Error("vision.transcribe.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	text, err := decodeText(raw)
	if err != nil {
		c.log.Error("vision.transcribe.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	c.log.Info("vision.transcribe.ok",
		"req_id", rid, "text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// ExtractCandidates is the structured-output path: it asks the model
// for JSON limited to the region's fields, validates the reply against
// the local schema, and applies one lenient sanitize pass before giving
// up. Callers fall back to Transcribe plus the text normalizer on any
// error.
func (c *Client) ExtractCandidates(ctx context.Context, region string, images []vision.Image) (entity.FieldCandidates, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	schema := vision.BuildLabelJSONSchema(region)
	instruction := vision.BuildInstruction(region) +
		"\n\n請只回傳符合以下 JSON Schema 的 JSON，找不到的欄位請填空字串：\n" + mustJSON(schema)

	c.log.Info("vision.extract.start",
		"req_id", rid, "model", c.cfg.Model, "region", region, "images", len(images))

	body := c.buildBody(instruction, images, true)
	raw, err := c.post(ctx, body)
	if err != nil {
		c.log.Error("vision.extract.http_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil, err
	}

	text, err := decodeText(raw)
	if err != nil {
		c.log.Error("vision.extract.decode_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, raw, err
	}
	content := []byte(strings.TrimSpace(stripFences(text)))

	if err := vision.ValidateJSONAgainstSchema(schema, content); err != nil {
		cleaned, touched, sErr := vision.SanitizeCandidates(region, content)
		if sErr != nil {
			c.log.Error("vision.extract.sanitize_failed",
				"req_id", rid, "error", sErr, "elapsed_ms", time.Since(start).Milliseconds())
			return nil, content, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := vision.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.log.Error("vision.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(content),
				"elapsed_ms", time.Since(start).Milliseconds())
			return nil, content, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("vision.extract.lenient_sanitize_applied",
			"req_id", rid, "touched", touched, "elapsed_ms", time.Since(start).Milliseconds())
		content = cleaned
	}

	out, err := vision.DecodeCandidates(region, content)
	if err != nil {
		c.log.Error("vision.extract.unmarshal_failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, content, err
	}

	c.log.Info("vision.extract.ok",
		"req_id", rid, "region", region, "fields", len(out),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, content, nil
}

func (c *Client) buildBody(instruction string, images []vision.Image, structured bool) map[string]any {
	parts := []map[string]any{{"text": instruction}}
	for _, img := range images {
		parts = append(parts, map[string]any{
			"inline_data": map[string]any{
				"mime_type": img.MIMEType,
				"data":      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	gen := map[string]any{"temperature": c.cfg.Temperature}
	if structured {
		gen["response_mime_type"] = "application/json"
	}
	return map[string]any{
		"contents":         []map[string]any{{"parts": parts}},
		"generationConfig": gen,
	}
}

func (c *Client) post(ctx context.Context, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("gemini response body close error", "error", cerr)
		}
	}()

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, common.WrapError(common.ErrQuota, fmt.Sprintf("gemini status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func decodeText(raw []byte) (string, error) {
	var gc struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gc); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gc.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}
	var b strings.Builder
	for _, p := range gc.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// stripFences removes a markdown code fence if the model wrapped its
// JSON in one despite the response mime type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return s
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
