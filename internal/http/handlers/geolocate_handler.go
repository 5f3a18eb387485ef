package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/guyt101z/ichnaea/internal/apierr"
)

// GeolocateRequest is the body of POST /v1/geolocate. Observation entries
// are free-form objects; entries failing validation are ignored.
type GeolocateRequest struct {
	// Default radio type for cell towers that omit their own
	RadioType        string           `json:"radioType,omitempty" example:"gsm"`
	CellTowers       []map[string]any `json:"cellTowers,omitempty"`
	WifiAccessPoints []map[string]any `json:"wifiAccessPoints,omitempty"`
}

// LatLng is a WGS84 position.
type LatLng struct {
	Lat float64 `json:"lat" example:"52.5192"`
	Lng float64 `json:"lng" example:"13.4061"`
}

// GeolocateResponse is the successful answer of POST /v1/geolocate.
type GeolocateResponse struct {
	Location LatLng `json:"location"`
	// Accuracy radius in meters
	Accuracy float64 `json:"accuracy" example:"150"`
}

var (
	geoCellFields = map[string]string{
		"radioType":         "radio",
		"mobileCountryCode": "mcc",
		"mobileNetworkCode": "mnc",
		"locationAreaCode":  "lac",
		"cellId":            "cid",
		"signalStrength":    "signal",
	}
	geoWifiFields = map[string]string{
		"macAddress":     "key",
		"signalStrength": "signal",
	}
)

// Geolocate godoc
// @ID          geolocate
// @Summary     Locate a device from nearby cells and access points
// @Description Returns the estimated position of a device. A fix from at least two known access points is preferred over a cell fix.
// @Tags        Location
// @Accept      json
// @Produce     json
// @Param       key   query  string                     true  "API key"
// @Param       body  body   handlers.GeolocateRequest  true  "Observations"
// @Success     200  {object}  handlers.GeolocateResponse
// @Failure     400  {object}  apierr.ErrorEnvelope  "parseError or keyInvalid"
// @Failure     403  {object}  apierr.ErrorEnvelope  "dailyLimitExceeded"
// @Failure     404  {object}  apierr.ErrorEnvelope  "notFound"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /v1/geolocate [post]
func (h *Handlers) Geolocate(c *gin.Context) {
	var req GeolocateRequest
	if err := decodeBody(c, &req); err != nil {
		apierr.New(apierr.ParseError).Abort(c)
		return
	}

	cells := make([]map[string]any, 0, len(req.CellTowers))
	for _, t := range req.CellTowers {
		cells = append(cells, rename(t, geoCellFields, map[string]any{"radio": nonEmpty(req.RadioType)}))
	}
	wifis := make([]map[string]any, 0, len(req.WifiAccessPoints))
	for _, ap := range req.WifiAccessPoints {
		wifis = append(wifis, rename(ap, geoWifiFields, nil))
	}

	q, err := buildQuery(cells, wifis)
	if err != nil {
		internalError(c, err)
		return
	}
	pos, done := h.search(c, q, apierr.LocationNotFound)
	if !done {
		return
	}
	ok(c, GeolocateResponse{
		Location: LatLng{Lat: pos.Lat, Lng: pos.Lon},
		Accuracy: pos.Accuracy,
	})
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
