package domain

import (
	"errors"
	"reflect"
	"testing"
)

// failingSchema fails with a non-validation error.
type failingSchema struct{ err error }

func (s failingSchema) Deserialize(map[string]any) (map[string]any, error) { return nil, s.err }

func validCell() map[string]any {
	return map[string]any{
		"radio": "GSM", "mcc": float64(262), "mnc": "1", "lac": 100, "cid": 1234,
		"lat": 52.5, "lon": 13.4, "range": float64(500),
		"unknown": "dropped",
	}
}

func TestConstructor_Validate_NullOrRaise(t *testing.T) {
	bad := validCell()
	bad["mcc"] = 0

	got, err := CellStations.Validate(bad, false)
	if got != nil || err != nil {
		t.Fatalf("Validate(invalid, false) = %v, %v; want nil, nil", got, err)
	}

	got, err = CellStations.Validate(bad, true)
	if got != nil {
		t.Fatalf("expected nil mapping on raise, got %v", got)
	}
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T %v", err, err)
	}
	if len(ve.Issues) != 1 || ve.Issues[0].Field != "mcc" || ve.Issues[0].Code != "gte" {
		t.Fatalf("unexpected issues: %+v", ve.Issues)
	}
}

func TestConstructor_Create_RoundTrip(t *testing.T) {
	validated, err := CellStations.Validate(validCell(), true)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, ok := validated["unknown"]; ok {
		t.Fatalf("undeclared key survived validation")
	}

	st, err := CellStations.Create(validCell(), true)
	if err != nil || st == nil {
		t.Fatalf("Create = %v, %v", st, err)
	}
	if !reflect.DeepEqual(st.Fields(), validated) {
		t.Fatalf("round trip mismatch:\n got  %#v\n want %#v", st.Fields(), validated)
	}
	if st.Radio != RadioGSM || st.MCC != 262 || st.MNC != 1 || st.Range != 500 {
		t.Fatalf("unexpected station: %+v", st)
	}
}

func TestConstructor_Create_NullIffValidateNull(t *testing.T) {
	inputs := []map[string]any{
		validCell(),
		{"radio": "gsm"},
		{"radio": "cdma", "mcc": 1, "mnc": 1, "lac": 1, "cid": 1, "lat": 0, "lon": 0},
		{"radio": "lte", "mcc": 1, "mnc": 1, "lac": 1, "cid": 1, "lat": 91, "lon": 0},
		{},
	}
	for i, in := range inputs {
		v, err := CellStations.Validate(in, false)
		if err != nil {
			t.Fatalf("#%d Validate err: %v", i, err)
		}
		obj, err := CellStations.Create(in, false)
		if err != nil {
			t.Fatalf("#%d Create err: %v", i, err)
		}
		if (v == nil) != (obj == nil) {
			t.Fatalf("#%d Validate nil=%v but Create nil=%v", i, v == nil, obj == nil)
		}
	}
}

func TestConstructor_Create_RaisePropagates(t *testing.T) {
	_, err := WifiStations.Create(map[string]any{"key": "nope", "lat": 1, "lon": 1}, true)
	if _, ok := AsValidationError(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConstructor_NonValidationErrorsAlwaysPropagate(t *testing.T) {
	boom := errors.New("boom")
	c := Constructor[WifiLookup]{Schema: failingSchema{err: boom}, Build: func(map[string]any) *WifiLookup {
		t.Fatalf("Build must not be called")
		return nil
	}}
	if _, err := c.Create(map[string]any{}, false); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestConstructor_CreateAll_SkipsInvalid(t *testing.T) {
	out, err := WifiLookups.CreateAll([]map[string]any{
		{"key": "01:23:45:67:89:AB", "signal": -60},
		{"key": "not-a-mac"},
		{"key": "0123456789ac"},
	})
	if err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d lookups; want 2", len(out))
	}
	if out[0].Key != "0123456789ab" || out[0].Signal != -60 || out[1].Signal != 0 {
		t.Fatalf("unexpected lookups: %+v %+v", out[0], out[1])
	}
}

func TestAPIKeys_Defaults(t *testing.T) {
	k, err := APIKeys.Create(map[string]any{"key": " test "}, true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if k.Key != "test" || k.MaxRequests != 0 || k.Shortname != "" {
		t.Fatalf("unexpected key: %+v", k)
	}
}
