package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yuchiaw/oil-intake/constants"
	"github.com/yuchiaw/oil-intake/internal/catalog"
	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/entity"
	"github.com/yuchiaw/oil-intake/internal/vision"
)

type errorResponse struct {
	Error string `json:"error"`
}

type draftResponse struct {
	Draft       entity.LabelRecord                `json:"draft"`
	Candidates  map[string]entity.FieldCandidates `json:"candidates,omitempty"`
	Suggestions []catalog.Suggestion              `json:"suggestions,omitempty"`
}

// Extract accepts multipart photos under the form fields "front" and
// "side", runs the vision model per region, and merges results into the
// draft. A vision failure reports the message and keeps the draft; a
// reply the normalizer can't use just comes back as empty candidates.
func (c *Controller) Extract(ctx echo.Context) error {
	candidates := map[string]entity.FieldCandidates{}
	seen := 0
	for _, region := range []string{constants.RegionFront, constants.RegionSide} {
		fh, err := ctx.FormFile(region)
		if err != nil {
			continue // region not uploaded this round
		}
		seen++

		img, err := readImage(fh)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}

		got, err := c.svc.ExtractRegion(ctx.Request().Context(), region, []vision.Image{img})
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, common.ErrQuota) {
				status = http.StatusTooManyRequests
			}
			return ctx.JSON(status, errorResponse{Error: err.Error()})
		}
		candidates[region] = got
	}

	if seen == 0 {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "upload at least one of: front, side"})
	}

	draft := c.svc.Draft()
	return ctx.JSON(http.StatusOK, draftResponse{
		Draft:       draft,
		Candidates:  candidates,
		Suggestions: c.svc.Suggest(draft.Name, 3),
	})
}

// GetDraft returns the current draft plus catalog suggestions for its
// name.
func (c *Controller) GetDraft(ctx echo.Context) error {
	draft := c.svc.Draft()
	return ctx.JSON(http.StatusOK, draftResponse{
		Draft:       draft,
		Suggestions: c.svc.Suggest(draft.Name, 3),
	})
}

type editFieldRequest struct {
	Value string `json:"value"`
}

// EditField applies a direct user override to one draft field.
func (c *Controller) EditField(ctx echo.Context) error {
	field := ctx.Param("field")
	if !constants.IsField(field) {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "no such field: " + field})
	}
	var req editFieldRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := c.svc.EditField(field, req.Value); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, draftResponse{Draft: c.svc.Draft()})
}

// ResetDraft clears the draft.
func (c *Controller) ResetDraft(ctx echo.Context) error {
	c.svc.ResetDraft()
	return ctx.JSON(http.StatusOK, draftResponse{Draft: c.svc.Draft()})
}

type confirmResponse struct {
	Row []string `json:"row"`
}

// Confirm appends the draft to the sink. Validation failures come back
// as 422 and sink failures as 502; in both cases the draft is intact
// and the user can retry.
func (c *Controller) Confirm(ctx echo.Context) error {
	row, err := c.svc.Confirm(ctx.Request().Context())
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return ctx.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		}
		return ctx.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, confirmResponse{Row: row})
}

// Suggestions returns catalog names similar to ?name=.
func (c *Controller) Suggestions(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	got := c.svc.Suggest(ctx.QueryParam("name"), limit)
	return ctx.JSON(http.StatusOK, map[string]any{"suggestions": got})
}

// History lists recently confirmed intakes.
func (c *Controller) History(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	recs, err := c.svc.History(ctx.Request().Context(), limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if recs == nil {
		recs = []entity.Intake{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"intakes": recs})
}

func readImage(fh *multipart.FileHeader) (vision.Image, error) {
	ext := constants.NormalizeExt(filepath.Ext(fh.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return vision.Image{}, errors.New("unsupported image type: " + ext)
	}
	f, err := fh.Open()
	if err != nil {
		return vision.Image{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return vision.Image{}, err
	}
	return vision.Image{Data: data, MIMEType: constants.MIMEForExt(ext)}, nil
}
