package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// JSONStringArray is a custom type for handling JSON string arrays in SQL columns.
type JSONStringArray []string

// Scan implements sql.Scanner for JSONStringArray.
func (j *JSONStringArray) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported type for JSONStringArray: %T", src)
	}
}

// Value implements driver.Valuer for JSONStringArray.
func (j JSONStringArray) Value() (driver.Value, error) {
	if j == nil {
		return "[]", nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Profile is the accumulated inference of user intent and segment
// attributes for one session, plus a derived confidence score.
//
// Merge semantics are per attribute kind: scalar attributes are
// first-writer-wins (a later rule may not overwrite an earlier one's
// conclusion), list and set attributes merge by de-duplicated union.
type Profile struct {
	Segments           []string `json:"segments"`
	LifeStage          string   `json:"life_stage,omitempty"`
	PriceSensitivity   string   `json:"price_sensitivity,omitempty"`
	DecisionStyle      string   `json:"decision_style,omitempty"`
	PurchaseReadiness  string   `json:"purchase_readiness,omitempty"`
	ShoppingFor        string   `json:"shopping_for,omitempty"`
	Occasion           string   `json:"occasion,omitempty"`
	BrandRelationship  string   `json:"brand_relationship,omitempty"`
	CurrentProduct     string   `json:"current_product,omitempty"`
	UseCases           []string `json:"use_cases"`
	ProductsConsidered []string `json:"products_considered"`
	ConfidenceScore    float64  `json:"confidence_score"`
	SignalsCount       int      `json:"signals_count"`
	FirstVisitEpoch    int64    `json:"first_visit,omitempty"`
	LastVisitEpoch     int64    `json:"last_visit,omitempty"`
}

// NewProfile returns the all-empty default profile.
func NewProfile() *Profile {
	return &Profile{
		Segments:           []string{},
		UseCases:           []string{},
		ProductsConsidered: []string{},
	}
}

// ScalarAttribute names a first-writer-wins profile attribute.
type ScalarAttribute string

const (
	AttrLifeStage         ScalarAttribute = "life_stage"
	AttrPriceSensitivity  ScalarAttribute = "price_sensitivity"
	AttrDecisionStyle     ScalarAttribute = "decision_style"
	AttrPurchaseReadiness ScalarAttribute = "purchase_readiness"
	AttrShoppingFor       ScalarAttribute = "shopping_for"
	AttrOccasion          ScalarAttribute = "occasion"
	AttrBrandRelationship ScalarAttribute = "brand_relationship"
	AttrCurrentProduct    ScalarAttribute = "current_product"
)

// SetScalar applies first-writer-wins merge for a scalar attribute.
// Returns true if the value was written, false if an earlier writer holds it.
func (p *Profile) SetScalar(attr ScalarAttribute, value string) bool {
	if value == "" {
		return false
	}
	slot := p.scalarSlot(attr)
	if slot == nil || *slot != "" {
		return false
	}
	*slot = value
	return true
}

// Scalar returns the current value of a scalar attribute.
func (p *Profile) Scalar(attr ScalarAttribute) string {
	slot := p.scalarSlot(attr)
	if slot == nil {
		return ""
	}
	return *slot
}

func (p *Profile) scalarSlot(attr ScalarAttribute) *string {
	switch attr {
	case AttrLifeStage:
		return &p.LifeStage
	case AttrPriceSensitivity:
		return &p.PriceSensitivity
	case AttrDecisionStyle:
		return &p.DecisionStyle
	case AttrPurchaseReadiness:
		return &p.PurchaseReadiness
	case AttrShoppingFor:
		return &p.ShoppingFor
	case AttrOccasion:
		return &p.Occasion
	case AttrBrandRelationship:
		return &p.BrandRelationship
	case AttrCurrentProduct:
		return &p.CurrentProduct
	}
	return nil
}

// AddSegment merges a segment tag by de-duplicated union.
func (p *Profile) AddSegment(segment string) {
	p.Segments = appendUnique(p.Segments, segment)
}

// HasSegment reports whether the profile carries a segment tag.
func (p *Profile) HasSegment(segment string) bool {
	for _, s := range p.Segments {
		if s == segment {
			return true
		}
	}
	return false
}

// AddUseCase merges a use case by de-duplicated union, preserving insertion order.
func (p *Profile) AddUseCase(useCase string) {
	p.UseCases = appendUnique(p.UseCases, useCase)
}

// AddProductConsidered records a product in insertion order, unique.
func (p *Profile) AddProductConsidered(product string) {
	p.ProductsConsidered = appendUnique(p.ProductsConsidered, product)
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// Clamp01 clamps a confidence value into [0,1]. Applied at every boundary
// crossing so out-of-range values never reach threshold comparisons.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
