package repos

import (
	"context"
	"errors"
	"sort"
	"sync"

	"shopfront/internal/apperr"
	"shopfront/internal/domain"
)

// MemProductStore is an in-memory ProductStore for tests. It mirrors the SQL
// constraints: assets need an existing product, filenames are unique and a
// product with assets cannot be deleted row-only. Fail injects an error for
// the named operation ("get_all", "add_asset", ...).
type MemProductStore struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	assets   map[int64]domain.Asset
	nextID   int64
	nextAID  int64
	fail     map[string]error
}

func NewMemProductStore() *MemProductStore {
	return &MemProductStore{
		products: map[int64]domain.Product{},
		assets:   map[int64]domain.Asset{},
		fail:     map[string]error{},
	}
}

var _ ProductStore = (*MemProductStore)(nil)

// Fail makes every later call of op return err. A nil err clears it.
func (s *MemProductStore) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *MemProductStore) injected(op string) error {
	return s.fail[op]
}

func (s *MemProductStore) assemble(p domain.Product) domain.Product {
	p.Assets = []domain.Asset{}
	ids := make([]int64, 0)
	for id, a := range s.assets {
		if a.ProductID == p.ID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p.Assets = append(p.Assets, s.assets[id])
	}
	return p
}

func (s *MemProductStore) GetAll(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("get_all"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.assemble(s.products[id]))
	}
	return out, nil
}

func (s *MemProductStore) GetByID(_ context.Context, id int64) (domain.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("get_by_id"); err != nil {
		return domain.Product{}, false, err
	}
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, false, nil
	}
	return s.assemble(p), true, nil
}

func (s *MemProductStore) Insert(_ context.Context, in domain.NewProduct) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("insert"); err != nil {
		return domain.Product{}, err
	}
	s.nextID++
	p := domain.Product{ID: s.nextID, Name: in.Name, Price: in.Price}
	s.products[p.ID] = p
	return s.assemble(p), nil
}

func (s *MemProductStore) Update(_ context.Context, id int64, in domain.NewProduct) (domain.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("update"); err != nil {
		return domain.Product{}, false, err
	}
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, false, nil
	}
	p.Name, p.Price = in.Name, in.Price
	s.products[id] = p
	return s.assemble(p), true, nil
}

func (s *MemProductStore) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("delete_by_id"); err != nil {
		return err
	}
	for _, a := range s.assets {
		if a.ProductID == id {
			return apperr.E("store.delete_by_id", apperr.QueryFailed, errors.New("assets reference product"))
		}
	}
	delete(s.products, id)
	return nil
}

func (s *MemProductStore) DeleteWithAssets(_ context.Context, id int64) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("delete_with_assets"); err != nil {
		return nil, false, err
	}
	_, found := s.products[id]
	var names []string
	for _, a := range s.assemble(domain.Product{ID: id}).Assets {
		names = append(names, a.Filename)
		delete(s.assets, a.ID)
	}
	delete(s.products, id)
	return names, found, nil
}

func (s *MemProductStore) AddAsset(_ context.Context, productID int64, filename string) (domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "store.add_asset"
	if err := s.injected("add_asset"); err != nil {
		return domain.Asset{}, err
	}
	if _, ok := s.products[productID]; !ok {
		return domain.Asset{}, apperr.E(op, apperr.QueryFailed, errors.New("foreign key: product does not exist"))
	}
	for _, a := range s.assets {
		if a.Filename == filename {
			return domain.Asset{}, apperr.E(op, apperr.QueryFailed, errors.New("unique: filename"))
		}
	}
	s.nextAID++
	a := domain.Asset{ID: s.nextAID, ProductID: productID, Filename: filename}
	s.assets[a.ID] = a
	return a, nil
}

func (s *MemProductStore) AssetFilenames(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("asset_filenames"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(s.assets))
	for id := range s.assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.assets[id].Filename)
	}
	return out, nil
}
