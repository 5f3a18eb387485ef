package handlers

import (
	"bytes"
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/guyt101z/ichnaea/internal/apierr"
	"github.com/guyt101z/ichnaea/internal/domain"
	"github.com/guyt101z/ichnaea/internal/services"
)

// LocationService resolves observations to a position.
type LocationService interface {
	Search(ctx context.Context, q services.Query) (*services.Position, error)
}

// Handlers groups the location endpoints and their dependencies.
type Handlers struct {
	locSvc LocationService
}

// New returns Handlers bound to svc.
func New(svc LocationService) *Handlers {
	return &Handlers{locSvc: svc}
}

// errParse marks a request body that is not a JSON object of the expected
// shape.
var errParse = errors.New("parse error")

// decodeBody reads the request body into dst. An empty body decodes as {}.
func decodeBody(c *gin.Context, dst any) error {
	raw, err := c.GetRawData()
	if err != nil {
		return errParse
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errParse
	}
	return nil
}

// buildQuery runs raw observations through the validated constructors.
// Invalid observations are dropped, never reported.
func buildQuery(cells, wifis []map[string]any) (services.Query, error) {
	cl, err := domain.CellLookups.CreateAll(cells)
	if err != nil {
		return services.Query{}, err
	}
	wl, err := domain.WifiLookups.CreateAll(wifis)
	if err != nil {
		return services.Query{}, err
	}
	q := services.Query{
		Cells: make([]domain.CellLookup, 0, len(cl)),
		Wifis: make([]domain.WifiLookup, 0, len(wl)),
	}
	for _, c := range cl {
		q.Cells = append(q.Cells, *c)
	}
	for _, w := range wl {
		q.Wifis = append(q.Wifis, *w)
	}
	return q, nil
}

// search runs q and maps a miss to notFound. ok is false when the response
// was already written.
func (h *Handlers) search(c *gin.Context, q services.Query, notFound apierr.Kind) (*services.Position, bool) {
	pos, err := h.locSvc.Search(c.Request.Context(), q)
	switch {
	case err == nil:
		return pos, true
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrEmptyQuery):
		apierr.New(notFound).Abort(c)
	default:
		internalError(c, err)
	}
	return nil, false
}

// rename copies entry with keys renamed through names; unknown keys are
// dropped. A nil fallback value is not applied.
func rename(entry map[string]any, names map[string]string, fallback map[string]any) map[string]any {
	out := make(map[string]any, len(names))
	for k, v := range fallback {
		if v != nil {
			out[k] = v
		}
	}
	for from, to := range names {
		if v, ok := entry[from]; ok && v != nil {
			out[to] = v
		}
	}
	return out
}
