package domain

// Field declarations shared by lookup and station schemas.
var (
	cellKeyFields = []Field{
		{Name: "radio", Coerce: RadioType, Rules: "oneof=gsm wcdma lte", Required: true},
		{Name: "mcc", Coerce: Int, Rules: "gte=1,lte=999", Required: true},
		{Name: "mnc", Coerce: Int, Rules: "gte=0,lte=32767", Required: true},
		{Name: "lac", Coerce: Int, Rules: "gte=1,lte=65535", Required: true},
		{Name: "cid", Coerce: Int, Rules: "gte=1,lte=268435455", Required: true},
	}
	wifiKeyField   = Field{Name: "key", Coerce: MAC, Rules: "len=12,hexadecimal", Required: true}
	signalField    = Field{Name: "signal", Coerce: Int, Rules: "gte=-150,lte=0", Default: 0}
	positionFields = []Field{
		{Name: "lat", Coerce: Float, Rules: "gte=-90,lte=90", Required: true},
		{Name: "lon", Coerce: Float, Rules: "gte=-180,lte=180", Required: true},
		{Name: "range", Coerce: Int, Rules: "gte=0,lte=100000", Default: 0},
	}
)

func withFields(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Schemas.
var (
	CellLookupSchema  = NewFieldSchema("cell_lookup", withFields(cellKeyFields, []Field{signalField})...)
	WifiLookupSchema  = NewFieldSchema("wifi_lookup", wifiKeyField, signalField)
	CellStationSchema = NewFieldSchema("cell_station", withFields(cellKeyFields, positionFields)...)
	WifiStationSchema = NewFieldSchema("wifi_station", withFields([]Field{wifiKeyField}, positionFields)...)
	APIKeySchema      = NewFieldSchema("api_key",
		Field{Name: "key", Coerce: String, Rules: "min=1,max=40,printascii", Required: true},
		Field{Name: "max_requests", Coerce: Int, Rules: "gte=0", Default: 0},
		Field{Name: "shortname", Coerce: String, Rules: "max=40", Default: ""},
	)
)

// Constructors.
var (
	CellLookups = Constructor[CellLookup]{Schema: CellLookupSchema, Build: func(f map[string]any) *CellLookup {
		return &CellLookup{
			Radio:  f["radio"].(Radio),
			MCC:    f["mcc"].(int),
			MNC:    f["mnc"].(int),
			LAC:    f["lac"].(int),
			CID:    f["cid"].(int),
			Signal: f["signal"].(int),
		}
	}}

	WifiLookups = Constructor[WifiLookup]{Schema: WifiLookupSchema, Build: func(f map[string]any) *WifiLookup {
		return &WifiLookup{Key: f["key"].(string), Signal: f["signal"].(int)}
	}}

	CellStations = Constructor[CellStation]{Schema: CellStationSchema, Build: func(f map[string]any) *CellStation {
		return &CellStation{
			Radio: f["radio"].(Radio),
			MCC:   f["mcc"].(int),
			MNC:   f["mnc"].(int),
			LAC:   f["lac"].(int),
			CID:   f["cid"].(int),
			Lat:   f["lat"].(float64),
			Lon:   f["lon"].(float64),
			Range: f["range"].(int),
		}
	}}

	WifiStations = Constructor[WifiStation]{Schema: WifiStationSchema, Build: func(f map[string]any) *WifiStation {
		return &WifiStation{
			Key:   f["key"].(string),
			Lat:   f["lat"].(float64),
			Lon:   f["lon"].(float64),
			Range: f["range"].(int),
		}
	}}

	APIKeys = Constructor[APIKey]{Schema: APIKeySchema, Build: func(f map[string]any) *APIKey {
		return &APIKey{
			Key:         f["key"].(string),
			MaxRequests: f["max_requests"].(int),
			Shortname:   f["shortname"].(string),
		}
	}}
)

// Classes is the tagged JSON registry for station values.
var Classes = NewRegistry()

func init() {
	Classes.Register("cell_station", func(v map[string]any) (any, error) {
		return CellStations.Create(v, true)
	})
	Classes.Register("wifi_station", func(v map[string]any) (any, error) {
		return WifiStations.Create(v, true)
	})
}
