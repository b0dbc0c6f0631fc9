package app

import (
	"sync"
	"time"
)

const (
	maxProducts = 50
	apiName     = "tinyhttpd REST API"
	// endpoints served by the products API
	productEndpoints = 7
)

type product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

type productStore struct {
	mu       sync.Mutex
	products []product
	max      int
	nextID   int
}

func newProductStore(max int) *productStore {
	return &productStore{max: max, nextID: 1}
}

func (s *productStore) list() []product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]product{}, s.products...)
}

func (s *productStore) first() (product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 {
		return product{}, false
	}
	return s.products[0], true
}

func (s *productStore) create(p product, now time.Time) (product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) >= s.max {
		return product{}, false
	}
	p.ID = s.nextID
	p.CreatedAt = now.Unix()
	p.UpdatedAt = p.CreatedAt
	s.nextID++
	s.products = append(s.products, p)
	return p, true
}

func (s *productStore) updateFirst(fn func(*product), now time.Time) (product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 {
		return product{}, false
	}
	fn(&s.products[0])
	s.products[0].UpdatedAt = now.Unix()
	return s.products[0], true
}

func (s *productStore) removeFirst() (product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 {
		return product{}, false
	}
	p := s.products[0]
	s.products = append(s.products[:0], s.products[1:]...)
	return p, true
}

func (a *App) listProducts() []byte {
	products := a.products.list()
	return newDocument().
		set("products", products).
		set("count", len(products)).
		bytes()
}

func (a *App) getProduct() []byte {
	p, ok := a.products.first()
	if !ok {
		return a.errorBody("No products found", 404)
	}
	return newDocument().set("product", p).bytes()
}

func (a *App) createProduct() []byte {
	p, ok := a.products.create(product{
		Name:        "New Product",
		Price:       99.99,
		Category:    "General",
		Description: "A new product created via API",
	}, a.now())
	if !ok {
		return a.errorBody("Maximum number of products reached", 400)
	}
	return newDocument().
		set("message", "Product created successfully").
		set("product.id", p.ID).
		set("product.name", p.Name).
		set("product.price", p.Price).
		bytes()
}

func (a *App) updateProduct() []byte {
	p, ok := a.products.updateFirst(func(p *product) {
		p.Name = "Updated Product"
		p.Description = "This product has been updated via API"
		p.Price = 149.99
	}, a.now())
	if !ok {
		return a.errorBody("No products to update", 404)
	}
	return newDocument().
		set("message", "Product updated successfully").
		set("product.id", p.ID).
		set("product.name", p.Name).
		set("product.price", p.Price).
		bytes()
}

func (a *App) deleteProduct() []byte {
	p, ok := a.products.removeFirst()
	if !ok {
		return a.errorBody("No products to delete", 404)
	}
	return newDocument().
		set("message", "Product deleted successfully").
		set("deleted_id", p.ID).
		bytes()
}

// searchProducts returns every product in summary form; query strings are
// not parsed.
func (a *App) searchProducts() []byte {
	products := a.products.list()
	d := newDocument().setRaw("search_results", []byte("[]"))
	for _, p := range products {
		d.set("search_results.-1", map[string]any{
			"id":       p.ID,
			"name":     p.Name,
			"price":    p.Price,
			"category": p.Category,
		})
	}
	return d.set("total_found", len(products)).bytes()
}

func (a *App) apiStats() []byte {
	return newDocument().
		set("api_name", apiName).
		set("version", "1.0.0").
		set("total_products", len(a.products.list())).
		set("server_time", a.now().Unix()).
		set("endpoints", productEndpoints).
		bytes()
}
