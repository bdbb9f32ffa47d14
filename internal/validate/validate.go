package validate

import (
	"strconv"

	"menuboard/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseItemRow parses a loosely typed backend row into a CatalogItem.
// A row is valid iff id and name are present and non-empty and price
// is present, numeric and >= 0.
func ParseItemRow(r domain.Row) (domain.CatalogItem, error) {
	var item domain.CatalogItem

	id, ok := stringField(r, "id")
	if !ok {
		return item, &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: "missing id"}
	}
	name, ok := stringField(r, "name")
	if !ok {
		return item, &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: "missing name"}
	}
	price, ok := numberField(r, "price")
	if !ok {
		return item, &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: "missing or non-numeric price"}
	}

	item = domain.CatalogItem{
		ID:    id,
		Name:  name,
		Price: price,
	}
	item.Description, _ = stringField(r, "description")
	item.ImageURL, _ = stringField(r, "image_url")
	item.CategoryID, _ = stringField(r, "category_id")
	item.DigitalVisible = boolField(r, "digital_visible")
	if featured := boolField(r, "featured"); featured != nil {
		item.Featured = *featured
	}

	if err := validate.Struct(item); err != nil {
		return domain.CatalogItem{}, &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: err.Error()}
	}
	return item, nil
}

// ParseCategoryRow parses a backend row into a Category. A row is
// valid iff id and name are present and non-empty.
func ParseCategoryRow(r domain.Row) (domain.Category, error) {
	var cat domain.Category

	id, ok := stringField(r, "id")
	if !ok {
		return cat, &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: "missing id"}
	}
	name, ok := stringField(r, "name")
	if !ok {
		return cat, &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: "missing name"}
	}

	cat = domain.Category{ID: id, Name: name}
	cat.IconURL, _ = stringField(r, "icon_url")
	cat.DigitalVisible = boolField(r, "digital_visible")

	if err := validate.Struct(cat); err != nil {
		return domain.Category{}, &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: err.Error()}
	}
	return cat, nil
}

// CheckItem applies the item field rules to an already typed record.
func CheckItem(item domain.CatalogItem) error {
	if err := validate.Struct(item); err != nil {
		return &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: err.Error()}
	}
	return nil
}

// CheckCategory applies the category field rules to a typed record.
func CheckCategory(cat domain.Category) error {
	if err := validate.Struct(cat); err != nil {
		return &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: err.Error()}
	}
	return nil
}

func CheckSale(s domain.SaleRecord) error {
	if err := validate.Struct(s); err != nil {
		return &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: err.Error()}
	}
	return nil
}

func CheckCustomer(c domain.CustomerRecord) error {
	if err := validate.Struct(c); err != nil {
		return &domain.ValidationError{Reason: domain.ReasonInvalidFields, Detail: err.Error()}
	}
	return nil
}

// FilterVisibleItems drops items flagged hidden. Visibility is
// advisory: if filtering would remove every item the unfiltered set is
// returned instead, so real data never renders an empty storefront.
func FilterVisibleItems(items []domain.CatalogItem) []domain.CatalogItem {
	var visible []domain.CatalogItem
	for _, item := range items {
		if item.Visible() {
			visible = append(visible, item)
		}
	}
	if len(visible) == 0 && len(items) > 0 {
		return items
	}
	return visible
}

func FilterVisibleCategories(cats []domain.Category) []domain.Category {
	var visible []domain.Category
	for _, cat := range cats {
		if cat.Visible() {
			visible = append(visible, cat)
		}
	}
	if len(visible) == 0 && len(cats) > 0 {
		return cats
	}
	return visible
}

// RepairReferences clears category references that do not resolve
// within the validated category id set. Repaired items are still
// pushed; each repair is reported so partial failure stays observable.
func RepairReferences(items []domain.CatalogItem, categoryIDs map[string]struct{}) ([]domain.CatalogItem, []domain.RejectedRow) {
	repaired := make([]domain.CatalogItem, 0, len(items))
	var orphans []domain.RejectedRow
	for _, item := range items {
		if item.CategoryID != "" {
			if _, ok := categoryIDs[item.CategoryID]; !ok {
				orphans = append(orphans, domain.RejectedRow{ID: item.ID, Reason: domain.ReasonOrphanedCategory})
				item.CategoryID = ""
			}
		}
		repaired = append(repaired, item)
	}
	return repaired, orphans
}

// DuplicateIDs reports identifiers appearing more than once in a
// batch. Duplicates are not removed; the upsert is idempotent by id so
// they merge last-write-wins.
func DuplicateIDs(ids []string) []string {
	seen := make(map[string]int, len(ids))
	var dups []string
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

func stringField(r domain.Row, key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func numberField(r domain.Row, key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func boolField(r domain.Row, key string) *bool {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch b := v.(type) {
	case bool:
		return &b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
