package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shopx/internal/domain"
	productsvc "shopx/internal/service/product"
	"shopx/internal/slug"
)

type ProductWriter interface {
	Import(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, actor *domain.User, name, slug string) (*domain.Category, error)
}

// CSVImporter reads catalog CSV files with the columns
// slug,name,description,category,price,tags,image and upserts products by
// slug. Tags are separated by ';'. A row with an empty slug and name adds
// its tags to the previous product.
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	categories CategoryWriter

	categoryIDs map[string]string
	title       cases.Caser
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		products:    products,
		categories:  categories,
		categoryIDs: map[string]string{},
		title:       cases.Title(language.English),
	}
}

type csvRow struct {
	line        int
	Slug        string
	Name        string
	Description string
	Category    string
	Price       string
	Tags        []string
	Image       string
}

var requiredColumns = []string{"name", "category", "price"}

// Run parses CSV rows and upserts one product per row group.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	var (
		current  *csvRow
		imported int
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		row := parseRow(record, index, line)
		if row == nil {
			continue
		}

		if row.Name != "" || row.Slug != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		// Continuation rows (tags) belong to the current product.
		if current != nil {
			current.Tags = append(current.Tags, row.Tags...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Name == "" || row.Category == "" || row.Price == "" {
		return fmt.Errorf("line %d: invalid product row (name, category and price are required)", row.line)
	}
	categoryID, err := i.category(ctx, row.Category)
	if err != nil {
		return fmt.Errorf("line %d: category %q: %w", row.line, row.Category, err)
	}

	in := productsvc.CreateInput{
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		Price:       row.Price,
		CategoryID:  categoryID,
		Tags:        row.Tags,
	}
	if row.Image != "" {
		in.Image = &productsvc.Image{Filename: row.Image}
	}
	if _, err := i.products.Import(ctx, in); err != nil {
		return fmt.Errorf("line %d: upsert product %q: %w", row.line, row.Name, err)
	}
	return nil
}

// category resolves a category column value, creating the category on
// first sight. The value is treated as a slug; its title-cased form names
// new categories.
func (i *CSVImporter) category(ctx context.Context, value string) (string, error) {
	key := slug.Make(value)
	if key == "" {
		return "", errors.New("empty category")
	}
	if id, ok := i.categoryIDs[key]; ok {
		return id, nil
	}
	name := i.title.String(strings.ReplaceAll(value, "-", " "))
	c, err := i.categories.Upsert(ctx, nil, name, key)
	if err != nil {
		return "", err
	}
	i.categoryIDs[key] = c.ID
	return c.ID, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) *csvRow {
	row := &csvRow{
		line:        line,
		Slug:        pick(record, index, "slug"),
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Category:    pick(record, index, "category"),
		Price:       pick(record, index, "price"),
		Tags:        splitTags(pick(record, index, "tags")),
		Image:       pick(record, index, "image"),
	}
	if row.Slug == "" && row.Name == "" && len(row.Tags) == 0 {
		return nil
	}
	return row
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ";") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
