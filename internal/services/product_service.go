package services

import (
	"context"
	"errors"
	"io/fs"
	"mime/multipart"

	"shopfront/internal/apperr"
	"shopfront/internal/domain"
	applog "shopfront/internal/log"
	"shopfront/internal/repos"
	"shopfront/internal/storage"
	"shopfront/internal/validate"
)

// ProductService pairs the product store with asset storage. It owns the
// "add asset" protocol: the file is written first, the row second, and the
// file is removed again when the row cannot be written.
type ProductService struct {
	Store repos.ProductStore
	Files storage.Storage
}

func NewProductService(store repos.ProductStore, files storage.Storage) *ProductService {
	return &ProductService{Store: store, Files: files}
}

func (s *ProductService) GetAll(ctx context.Context) ([]domain.Product, error) {
	return s.Store.GetAll(ctx)
}

// Get returns ok=false when no product has id.
func (s *ProductService) Get(ctx context.Context, id int64) (domain.Product, bool, error) {
	return s.Store.GetByID(ctx, id)
}

func checkProduct(op string, in domain.NewProduct) (domain.NewProduct, error) {
	name, ok := validate.ProductName(in.Name)
	if !ok {
		return domain.NewProduct{}, apperr.Client(op, apperr.Invalid, "Invalid request: name must be 1-120 characters.")
	}
	price, ok := validate.Price(in.Price)
	if !ok {
		return domain.NewProduct{}, apperr.Client(op, apperr.Invalid, "Invalid request: price must be positive, below 10000000000, with at most 2 decimals.")
	}
	return domain.NewProduct{Name: name, Price: price}, nil
}

func (s *ProductService) Create(ctx context.Context, in domain.NewProduct) (domain.Product, error) {
	in, err := checkProduct("products.create", in)
	if err != nil {
		return domain.Product{}, err
	}
	p, err := s.Store.Insert(ctx, in)
	if err != nil {
		return domain.Product{}, err
	}
	applog.AuditCtx(ctx, "product.create", map[string]any{"product_id": p.ID})
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, in domain.NewProduct) (domain.Product, bool, error) {
	in, err := checkProduct("products.update", in)
	if err != nil {
		return domain.Product{}, false, err
	}
	p, ok, err := s.Store.Update(ctx, id, in)
	if err != nil || !ok {
		return domain.Product{}, ok, err
	}
	applog.AuditCtx(ctx, "product.update", map[string]any{"product_id": id})
	return p, true, nil
}

// Delete removes the product and its asset rows in one transaction, then
// removes the files. File removal failures are logged only: the rows are
// already gone and a leftover file is picked up by SweepOrphans.
// Deleting an absent product is a no-op and is not audited.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	names, ok, err := s.Store.DeleteWithAssets(ctx, id)
	if err != nil || !ok {
		return err
	}
	cleanup := context.WithoutCancel(ctx)
	for _, name := range names {
		if err := s.Files.DeleteImage(cleanup, name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			applog.WarnCtx(ctx, "asset.delete_failed", err, map[string]any{"product_id": id, "filename": name})
		}
	}
	applog.AuditCtx(ctx, "product.delete", map[string]any{"product_id": id, "assets": len(names)})
	return nil
}

// AddAsset saves the image from mr and records it against productID.
// If the row insert fails the saved file is deleted before the insert error
// is returned; a failed delete is logged and never replaces that error.
func (s *ProductService) AddAsset(ctx context.Context, productID int64, mr *multipart.Reader) (domain.Asset, error) {
	const op = "products.add_asset"
	if _, ok, err := s.Store.GetByID(ctx, productID); err != nil {
		return domain.Asset{}, err
	} else if !ok {
		return domain.Asset{}, apperr.E(op, apperr.NotFound, nil)
	}

	img, err := s.Files.SaveImage(ctx, mr)
	if err != nil {
		return domain.Asset{}, err
	}

	a, err := s.Store.AddAsset(ctx, productID, img.Filename)
	if err != nil {
		s.compensate(ctx, productID, img.Filename, err)
		return domain.Asset{}, err
	}
	applog.AuditCtx(ctx, "asset.add", map[string]any{
		"product_id": productID,
		"filename":   img.Filename,
		"size":       img.Size,
		"checksum":   img.Checksum,
	})
	return a, nil
}

// compensate undoes a SaveImage. A file that is already gone counts as done.
// It runs even when ctx has been canceled.
func (s *ProductService) compensate(ctx context.Context, productID int64, filename string, cause error) {
	err := s.Files.DeleteImage(context.WithoutCancel(ctx), filename)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		applog.InfoCtx(ctx, "asset.compensated", map[string]any{"product_id": productID, "filename": filename, "cause": cause.Error()})
		return
	}
	applog.ErrorCtx(ctx, "asset.compensate_failed", err, map[string]any{
		"product_id": productID,
		"filename":   filename,
		"cause":      cause.Error(),
	})
}

// SweepOrphans finds stored files no asset row references and, unless
// dryRun, deletes them. It returns the orphan names. An upload in flight
// between its file write and row insert looks like an orphan, so sweep while
// uploads are quiet.
func (s *ProductService) SweepOrphans(ctx context.Context, dryRun bool) ([]string, error) {
	referenced, err := s.Store.AssetFilenames(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(referenced))
	for _, name := range referenced {
		known[name] = struct{}{}
	}
	files, err := s.Files.List(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, name := range files {
		if _, ok := known[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	if dryRun {
		return orphans, nil
	}

	var errs []error
	for _, name := range orphans {
		if err := s.Files.DeleteImage(ctx, name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		applog.AuditCtx(ctx, "asset.sweep", map[string]any{"filename": name})
	}
	return orphans, errors.Join(errs...)
}
