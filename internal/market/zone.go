package market

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Zone is a price level at which a pattern was detected by the zone-builder
// collaborator. The record is carried verbatim; only the id and the level
// fields needed for proximity checks are decoded.
type Zone struct {
	ID       string          `json:"zone_id"`
	Type     string          `json:"type,omitempty"`
	Low      decimal.Decimal `json:"low,omitempty"`
	Mid      decimal.Decimal `json:"mid,omitempty"`
	High     decimal.Decimal `json:"high,omitempty"`
	Strength float64         `json:"strength,omitempty"`

	// Raw holds the full upstream record so unknown fields survive a
	// cache round-trip untouched.
	Raw json.RawMessage `json:"-"`
}

// DecodeZones parses a JSON array of zone records, keeping each raw payload
// alongside the decoded fields. Records without a zone_id are kept too; they
// simply can never match a cooldown key.
func DecodeZones(data []byte) ([]Zone, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}

	zones := make([]Zone, 0, len(raws))
	for _, raw := range raws {
		var z Zone
		if err := json.Unmarshal(raw, &z); err != nil {
			return nil, err
		}
		z.Raw = raw
		zones = append(zones, z)
	}
	return zones, nil
}

// EncodeZones renders zones back to a JSON array, emitting the verbatim raw
// record whenever one is present.
func EncodeZones(zones []Zone) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(zones))
	for _, z := range zones {
		if len(z.Raw) > 0 {
			raws = append(raws, z.Raw)
			continue
		}
		encoded, err := json.Marshal(z)
		if err != nil {
			return nil, err
		}
		raws = append(raws, encoded)
	}
	return json.Marshal(raws)
}
