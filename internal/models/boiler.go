package models

import (
	"strconv"
	"strings"
	"time"
)

// MaxImages is the number of image slots a persisted boiler carries.
const MaxImages = 5

type AttrKey string

const (
	AttrPower              AttrKey = "power"
	AttrPowerRegulation    AttrKey = "power_regulation"
	AttrHeatingArea        AttrKey = "heating_area"
	AttrWorkType           AttrKey = "work_type"
	AttrSelfWork           AttrKey = "self_work"
	AttrWaterHeating       AttrKey = "water_heating"
	AttrFloorHeating       AttrKey = "floor_heating"
	AttrExpansionTank      AttrKey = "expansion_tank"
	AttrCirculationPump    AttrKey = "circulation_pump"
	AttrVoltage            AttrKey = "voltage"
	AttrCable              AttrKey = "cable"
	AttrFuse               AttrKey = "fuse"
	AttrTempRange          AttrKey = "temp_range"
	AttrTempRangeRadiator  AttrKey = "temp_range_radiator"
	AttrTempRangeFloor     AttrKey = "temp_range_floor"
	AttrConnection         AttrKey = "connection"
	AttrDimensions         AttrKey = "dimensions"
	AttrWifi               AttrKey = "wifi"
	AttrThermostat         AttrKey = "thermostat"
	AttrThermostatIncluded AttrKey = "thermostat_included"
	AttrOutdoorSensor      AttrKey = "outdoor_sensor"
)

// AttributeKeys lists every attribute in storage column order.
var AttributeKeys = []AttrKey{
	AttrPower,
	AttrPowerRegulation,
	AttrHeatingArea,
	AttrWorkType,
	AttrSelfWork,
	AttrWaterHeating,
	AttrFloorHeating,
	AttrExpansionTank,
	AttrCirculationPump,
	AttrVoltage,
	AttrCable,
	AttrFuse,
	AttrTempRange,
	AttrTempRangeRadiator,
	AttrTempRangeFloor,
	AttrConnection,
	AttrDimensions,
	AttrWifi,
	AttrThermostat,
	AttrThermostatIncluded,
	AttrOutdoorSensor,
}

// Attributes holds normalized specification values. Unset keys are absent,
// never mapped to "".
type Attributes map[AttrKey]string

func (a Attributes) Get(key AttrKey) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Set stores value under key; an empty value removes the key instead.
func (a Attributes) Set(key AttrKey, value string) {
	if value == "" {
		delete(a, key)
		return
	}
	a[key] = value
}

// RawProduct is what the collector assembles for one product tile and its
// detail page during a single crawl pass.
type RawProduct struct {
	Name              string   `json:"name"`
	Price             string   `json:"price"`
	ProductURL        string   `json:"product_url"`
	Description       string   `json:"description,omitempty"`
	RawSpecifications string   `json:"raw_specifications,omitempty"`
	ImageURLs         []string `json:"image_urls,omitempty"`
	Country           string   `json:"country,omitempty"`
	DocumentationURL  string   `json:"documentation_url,omitempty"`

	// Attributes is filled from RawSpecifications by the collector.
	Attributes Attributes `json:"attributes,omitempty"`
}

// Boiler is the persisted catalog entity, keyed by Name.
type Boiler struct {
	ID            int64             `json:"id,omitempty"`
	Name          string            `json:"name"`
	Price         string            `json:"price"`
	ProductURL    string            `json:"product_url"`
	Description   string            `json:"description,omitempty"`
	Country       string            `json:"country,omitempty"`
	Documentation string            `json:"documentation,omitempty"`
	Attributes    Attributes        `json:"attributes"`
	Images        [MaxImages]string `json:"images"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ImageList returns the filled image slots in order.
func (b *Boiler) ImageList() []string {
	var out []string
	for _, img := range b.Images {
		if img != "" {
			out = append(out, img)
		}
	}
	return out
}

// CopyReconcilable copies every field the update path owns from src onto b.
// Identity and timestamps are left alone.
func (b *Boiler) CopyReconcilable(src *Boiler) {
	b.Price = src.Price
	b.ProductURL = src.ProductURL
	b.Description = src.Description
	b.Country = src.Country
	b.Documentation = src.Documentation
	b.Images = src.Images

	attrs := make(Attributes, len(src.Attributes))
	for k, v := range src.Attributes {
		attrs[k] = v
	}
	b.Attributes = attrs
}

// Field returns the value b holds under a storage column name.
func (b *Boiler) Field(column string) (string, bool) {
	switch column {
	case "name":
		return b.Name, true
	case "price":
		return b.Price, true
	case "product_url":
		return b.ProductURL, true
	case "description":
		return b.Description, true
	case "country":
		return b.Country, true
	case "documentation":
		return b.Documentation, true
	}
	if slot, ok := imageSlot(column); ok {
		return b.Images[slot], true
	}
	if isAttrKey(column) {
		return b.Attributes[AttrKey(column)], true
	}
	return "", false
}

// SetField stores value under a storage column name. It reports false for
// unknown columns.
func (b *Boiler) SetField(column, value string) bool {
	switch column {
	case "name":
		b.Name = value
	case "price":
		b.Price = value
	case "product_url":
		b.ProductURL = value
	case "description":
		b.Description = value
	case "country":
		b.Country = value
	case "documentation":
		b.Documentation = value
	default:
		if slot, ok := imageSlot(column); ok {
			b.Images[slot] = value
			return true
		}
		if !isAttrKey(column) {
			return false
		}
		if b.Attributes == nil {
			b.Attributes = Attributes{}
		}
		b.Attributes.Set(AttrKey(column), value)
	}
	return true
}

func imageSlot(column string) (int, bool) {
	n, ok := strings.CutPrefix(column, "image_")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(n)
	if err != nil || i < 1 || i > MaxImages {
		return 0, false
	}
	return i - 1, true
}

func isAttrKey(column string) bool {
	for _, k := range AttributeKeys {
		if string(k) == column {
			return true
		}
	}
	return false
}
