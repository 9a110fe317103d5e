package directory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CategoryHeader is the CSV header for categories.csv.
const CategoryHeader = "name,id,standard,parent_id"

// TagHeader is the CSV header for tags.csv.
const TagHeader = "name,id"

const (
	catNumFields = 4
	colCatName   = 0
	colCatID     = 1
	colCatStd    = 2
	colCatParent = 3

	tagNumFields = 2
	colTagName   = 0
	colTagID     = 1
)

// ReadCategories reads the category table from a categories.csv reader.
func ReadCategories(r io.Reader) ([]Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = catNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var cats []Category
	for i, rec := range records[1:] {
		c, err := UnmarshalCategory(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// WriteCategories writes the category table (including header).
func WriteCategories(w io.Writer, cats []Category) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"name", "id", "standard", "parent_id"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, c := range cats {
		if err := cw.Write(MarshalCategory(c)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(c Category) []string {
	row := make([]string, catNumFields)
	row[colCatName] = c.Name
	row[colCatID] = strconv.FormatInt(c.ID, 10)
	row[colCatStd] = strconv.FormatBool(c.Standard)
	if c.ParentID != 0 {
		row[colCatParent] = strconv.FormatInt(c.ParentID, 10)
	}
	return row
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) (Category, error) {
	if len(record) != catNumFields {
		return Category{}, fmt.Errorf("expected %d fields, got %d", catNumFields, len(record))
	}

	id, err := strconv.ParseInt(record[colCatID], 10, 64)
	if err != nil {
		return Category{}, fmt.Errorf("parsing id %q: %w", record[colCatID], err)
	}

	var std bool
	if record[colCatStd] != "" {
		std, err = strconv.ParseBool(record[colCatStd])
		if err != nil {
			return Category{}, fmt.Errorf("parsing standard %q: %w", record[colCatStd], err)
		}
	}

	var parentID int64
	if record[colCatParent] != "" {
		parentID, err = strconv.ParseInt(record[colCatParent], 10, 64)
		if err != nil {
			return Category{}, fmt.Errorf("parsing parent_id %q: %w", record[colCatParent], err)
		}
	}

	return Category{
		Name:     record[colCatName],
		ID:       id,
		Standard: std,
		ParentID: parentID,
	}, nil
}

// ReadTags reads the tag table from a tags.csv reader.
func ReadTags(r io.Reader) ([]Tag, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = tagNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading tags CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var tags []Tag
	for i, rec := range records[1:] {
		id, err := strconv.ParseInt(rec[colTagID], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing id %q: %w", i+2, rec[colTagID], err)
		}
		tags = append(tags, Tag{Name: rec[colTagName], ID: id})
	}
	return tags, nil
}

// WriteTags writes the tag table (including header).
func WriteTags(w io.Writer, tags []Tag) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"name", "id"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range tags {
		row := []string{t.Name, strconv.FormatInt(t.ID, 10)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}
