package domain

import "time"

// Key kinds identifying stations across queries, storage and cache.
var (
	CellKeyKind = DefineKey("cell", "radio", "mcc", "mnc", "lac", "cid")
	WifiKeyKind = DefineKey("wifi", "key")
)

// CellStation is a known cell tower position.
//
// Fields:
//   - Radio/MCC/MNC/LAC/CID: the cell identity (unique together).
//   - Lat/Lon: estimated tower position in degrees.
//   - Range: estimated coverage radius in meters.
type CellStation struct {
	ID        uint      `json:"-"          gorm:"primaryKey"`
	Radio     Radio     `json:"radio"      gorm:"type:varchar(8);not null;uniqueIndex:ux_cell_key,priority:1"`
	MCC       int       `json:"mcc"        gorm:"not null;uniqueIndex:ux_cell_key,priority:2"`
	MNC       int       `json:"mnc"        gorm:"not null;uniqueIndex:ux_cell_key,priority:3"`
	LAC       int       `json:"lac"        gorm:"not null;uniqueIndex:ux_cell_key,priority:4"`
	CID       int       `json:"cid"        gorm:"column:cid;not null;uniqueIndex:ux_cell_key,priority:5"`
	Lat       float64   `json:"lat"        gorm:"not null"`
	Lon       float64   `json:"lon"        gorm:"not null"`
	Range     int       `json:"range"      gorm:"not null;default:0"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for CellStation.
func (CellStation) TableName() string { return "cell_stations" }

// HashKey returns the cell identity key.
func (c *CellStation) HashKey() Key {
	return CellKeyKind.MustNew(map[string]any{
		"radio": c.Radio, "mcc": c.MCC, "mnc": c.MNC, "lac": c.LAC, "cid": c.CID,
	})
}

// Fields returns the schema-declared fields of c.
func (c *CellStation) Fields() map[string]any {
	return map[string]any{
		"radio": c.Radio, "mcc": c.MCC, "mnc": c.MNC, "lac": c.LAC, "cid": c.CID,
		"lat": c.Lat, "lon": c.Lon, "range": c.Range,
	}
}

// ClassTag implements Tagged.
func (c *CellStation) ClassTag() string { return "cell_station" }

// ClassValue implements Tagged.
func (c *CellStation) ClassValue() map[string]any { return c.Fields() }

// WifiStation is a known access point position, keyed by its normalized MAC.
type WifiStation struct {
	ID        uint      `json:"-"     gorm:"primaryKey"`
	Key       string    `json:"key"   gorm:"type:char(12);not null;uniqueIndex:ux_wifi_key"`
	Lat       float64   `json:"lat"   gorm:"not null"`
	Lon       float64   `json:"lon"   gorm:"not null"`
	Range     int       `json:"range" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for WifiStation.
func (WifiStation) TableName() string { return "wifi_stations" }

// HashKey returns the wifi identity key.
func (w *WifiStation) HashKey() Key {
	return WifiKeyKind.MustNew(map[string]any{"key": w.Key})
}

// Fields returns the schema-declared fields of w.
func (w *WifiStation) Fields() map[string]any {
	return map[string]any{"key": w.Key, "lat": w.Lat, "lon": w.Lon, "range": w.Range}
}

// ClassTag implements Tagged.
func (w *WifiStation) ClassTag() string { return "wifi_station" }

// ClassValue implements Tagged.
func (w *WifiStation) ClassValue() map[string]any { return w.Fields() }

// APIKey is a client credential. MaxRequests caps daily usage; zero means
// unlimited.
type APIKey struct {
	Key         string    `json:"key"          gorm:"type:varchar(40);primaryKey"`
	MaxRequests int       `json:"max_requests" gorm:"not null;default:0"`
	Shortname   string    `json:"shortname"    gorm:"type:varchar(40)"`
	CreatedAt   time.Time `json:"-"`
}

// TableName returns the database table name for APIKey.
func (APIKey) TableName() string { return "api_keys" }

// Fields returns the schema-declared fields of k.
func (k *APIKey) Fields() map[string]any {
	return map[string]any{"key": k.Key, "max_requests": k.MaxRequests, "shortname": k.Shortname}
}

// APIKeyUsage counts requests per API key and UTC day (YYYY-MM-DD).
type APIKeyUsage struct {
	ID    uint   `gorm:"primaryKey"`
	Key   string `gorm:"type:varchar(40);not null;uniqueIndex:ux_usage_key_day,priority:1"`
	Day   string `gorm:"type:char(10);not null;uniqueIndex:ux_usage_key_day,priority:2"`
	Count int64  `gorm:"not null;default:0"`
}

// TableName returns the database table name for APIKeyUsage.
func (APIKeyUsage) TableName() string { return "api_key_usage" }

// CellLookup is one cell observation in a location query.
type CellLookup struct {
	Radio  Radio
	MCC    int
	MNC    int
	LAC    int
	CID    int
	Signal int
}

// HashKey returns the cell identity key.
func (c *CellLookup) HashKey() Key {
	return CellKeyKind.MustNew(map[string]any{
		"radio": c.Radio, "mcc": c.MCC, "mnc": c.MNC, "lac": c.LAC, "cid": c.CID,
	})
}

// Fields returns the schema-declared fields of c.
func (c *CellLookup) Fields() map[string]any {
	return map[string]any{
		"radio": c.Radio, "mcc": c.MCC, "mnc": c.MNC, "lac": c.LAC, "cid": c.CID, "signal": c.Signal,
	}
}

// WifiLookup is one access point observation in a location query.
type WifiLookup struct {
	Key    string
	Signal int
}

// HashKey returns the wifi identity key.
func (w *WifiLookup) HashKey() Key {
	return WifiKeyKind.MustNew(map[string]any{"key": w.Key})
}

// Fields returns the schema-declared fields of w.
func (w *WifiLookup) Fields() map[string]any {
	return map[string]any{"key": w.Key, "signal": w.Signal}
}
