package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/guyt101z/ichnaea/internal/apierr"
)

// SearchRequest is the body of the version 1 POST /v1/search endpoint.
type SearchRequest struct {
	// Default radio type for cells that omit their own
	Radio string           `json:"radio,omitempty" example:"gsm"`
	Cell  []map[string]any `json:"cell,omitempty"`
	Wifi  []map[string]any `json:"wifi,omitempty"`
}

// SearchResponse is the successful version 1 answer.
type SearchResponse struct {
	Status   string  `json:"status" example:"ok"`
	Lat      float64 `json:"lat" example:"52.5192"`
	Lon      float64 `json:"lon" example:"13.4061"`
	Accuracy float64 `json:"accuracy" example:"1000"`
}

var (
	searchCellFields = map[string]string{
		"radio": "radio", "mcc": "mcc", "mnc": "mnc", "lac": "lac", "cid": "cid", "signal": "signal",
	}
	searchWifiFields = map[string]string{"key": "key", "signal": "signal"}
)

// Search godoc
// @ID          search
// @Summary     Locate a device (version 1)
// @Description Version 1 search. A failed lookup answers 200 with {"status": "not_found"}.
// @Tags        Location
// @Accept      json
// @Produce     json
// @Param       key   query  string                  true  "API key"
// @Param       body  body   handlers.SearchRequest  true  "Observations"
// @Success     200  {object}  handlers.SearchResponse  "ok, or {\"status\": \"not_found\"}"
// @Failure     400  {object}  apierr.ErrorEnvelope    "parseError or keyInvalid"
// @Failure     403  {object}  apierr.ErrorEnvelope    "dailyLimitExceeded"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /v1/search [post]
func (h *Handlers) Search(c *gin.Context) {
	var req SearchRequest
	if err := decodeBody(c, &req); err != nil {
		apierr.New(apierr.ParseError).Abort(c)
		return
	}

	cells := make([]map[string]any, 0, len(req.Cell))
	for _, e := range req.Cell {
		cells = append(cells, rename(e, searchCellFields, map[string]any{"radio": nonEmpty(req.Radio)}))
	}
	wifis := make([]map[string]any, 0, len(req.Wifi))
	for _, e := range req.Wifi {
		wifis = append(wifis, rename(e, searchWifiFields, nil))
	}

	q, err := buildQuery(cells, wifis)
	if err != nil {
		internalError(c, err)
		return
	}
	pos, done := h.search(c, q, apierr.LocationNotFoundV1)
	if !done {
		return
	}
	ok(c, SearchResponse{Status: "ok", Lat: pos.Lat, Lon: pos.Lon, Accuracy: pos.Accuracy})
}
