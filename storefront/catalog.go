package storefront

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-storefront/repositorycache"
)

// Catalog defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// sortable maps accepted sort fields to columns.
var sortable = map[string]string{
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
	"stock":      "stock",
}

// SearchParams filter a product listing. The zero value lists the newest
// products, DefaultPageSize per page.
type SearchParams struct {
	CategoryID string `json:"category_id,omitempty"`
	Query      string `json:"query,omitempty"`
	MinPrice   *int64 `json:"min_price,omitempty"`
	MaxPrice   *int64 `json:"max_price,omitempty"`
	SortBy     string `json:"sort_by,omitempty"`
	SortDesc   bool   `json:"sort_desc,omitempty"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// Validate checks the paging and sort values.
func (p SearchParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Page, validation.Min(0)),
		validation.Field(&p.Limit, validation.Min(0), validation.Max(MaxPageSize)),
		validation.Field(&p.SortBy, validation.In("name", "price", "created_at", "stock")),
		validation.Field(&p.MinPrice, validation.Min(int64(0))),
		validation.Field(&p.MaxPrice, validation.Min(int64(0))),
	)
}

// normalized fills in defaults so equivalent searches share a cache key.
func (p SearchParams) normalized() SearchParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.SortBy == "" {
		p.SortBy = "created_at"
		p.SortDesc = true
	}
	return p
}

// Page is one page of results.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Count      int  `json:"count"`
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

func newPage[T any](data []T, count, page, limit int) Page[T] {
	totalPages := 0
	if limit > 0 {
		totalPages = (count + limit - 1) / limit
	}
	return Page[T]{
		Data:       data,
		Count:      count,
		Page:       page,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// NewCategory is the input of CreateCategory.
type NewCategory struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (c NewCategory) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&c.Slug, validation.Required, validation.Length(1, 120)),
	)
}

// NewProduct is the input of CreateProduct.
type NewProduct struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url"`
}

func (p NewProduct) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Price, validation.Min(int64(0))),
		validation.Field(&p.Stock, validation.Min(0)),
	)
}

// ProductUpdate holds the fields to change; nil fields are left alone.
type ProductUpdate struct {
	CategoryID  *string `json:"category_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Stock       *int    `json:"stock"`
	ImageURL    *string `json:"image_url"`
}

func (u ProductUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.Price, validation.Min(int64(0))),
		validation.Field(&u.Stock, validation.Min(0)),
	)
}

// GetCategories lists every category by name.
func (s *Service) GetCategories(ctx context.Context) ([]*Category, error) {
	ctx = repositorycache.WithCacheKey(ctx, CategoriesKey())
	categories, _, err := s.categories.List(ctx, orderBy("name", false), unpaged)
	return categories, err
}

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, in NewCategory) (*Category, error) {
	if err := invalid(in.Validate(), "invalid category"); err != nil {
		return nil, err
	}
	return s.categories.Create(ctx, &Category{Name: in.Name, Slug: in.Slug, Description: in.Description})
}

// GetProducts returns a page of products matching params, cached under
// ProductsKey of the normalized params.
func (s *Service) GetProducts(ctx context.Context, params SearchParams) (Page[*Product], error) {
	if err := invalid(params.Validate(), "invalid product search"); err != nil {
		return Page[*Product]{}, err
	}
	params = params.normalized()

	criteria := []repository.SelectCriteria{repository.SelectRelation("Category")}
	if params.CategoryID != "" {
		criteria = append(criteria, repository.SelectBy("category_id", "=", params.CategoryID))
	}
	if params.Query != "" {
		criteria = append(criteria, containsAny(params.Query, "name", "description"))
	}
	if params.MinPrice != nil || params.MaxPrice != nil {
		criteria = append(criteria, between("price", params.MinPrice, params.MaxPrice))
	}
	criteria = append(criteria,
		orderBy(sortable[params.SortBy], params.SortDesc),
		// stable pages when the sort column ties
		orderBy("id", false),
		repository.SelectPaginate(params.Limit, (params.Page-1)*params.Limit),
	)

	ctx = repositorycache.WithCacheKey(ctx, ProductsKey(params))
	products, total, err := s.products.List(ctx, criteria...)
	if err != nil {
		return Page[*Product]{}, err
	}
	return newPage(products, total, params.Page, params.Limit), nil
}

// GetProductByID returns a product with its category, cached under
// ProductKey(id).
func (s *Service) GetProductByID(ctx context.Context, id string) (*Product, error) {
	ctx = repositorycache.WithCacheKey(ctx, ProductKey(id))
	return s.products.GetByID(ctx, id, repository.SelectRelation("Category"))
}

// CreateProduct adds a product to the catalog.
func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (*Product, error) {
	if err := invalid(in.Validate(), "invalid product"); err != nil {
		return nil, err
	}
	return s.products.Create(ctx, &Product{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
	})
}

// UpdateProduct applies update and returns the stored product. Product
// listings and every cart and order view embedding products are dropped.
func (s *Service) UpdateProduct(ctx context.Context, id string, update ProductUpdate) (*Product, error) {
	if err := invalid(update.Validate(), "invalid product update"); err != nil {
		return nil, err
	}

	set := newChanges()
	if update.CategoryID != nil {
		set = set.set("category_id", nullable(*update.CategoryID))
	}
	if update.Name != nil {
		set = set.set("name", *update.Name)
	}
	if update.Description != nil {
		set = set.set("description", *update.Description)
	}
	if update.Price != nil {
		set = set.set("price", *update.Price)
	}
	if update.Stock != nil {
		set = set.set("stock", *update.Stock)
	}
	if update.ImageURL != nil {
		set = set.set("image_url", *update.ImageURL)
	}

	return s.products.Update(ctx, &Product{ID: id}, set...)
}

// productViews is registered by every cached view that embeds products.
func (s *Service) productViews() string {
	return s.products.ListTag()
}

// nullable maps an empty id to NULL, as the nullzero columns store it.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}
