package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/query"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type productReader interface {
	ListProducts(ctx context.Context, input product.ListProductsInput) (*product.ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error)
}

// ListProducts serves the public catalog page.
func ListProducts(svc productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := svc.ListProducts(r.Context(), product.ListProductsInput{
			Query:      validators.SanitizeString(q.Get("q"), 128),
			Sort:       query.ParseSort(q.Get("sort")),
			Pagination: pagination.Parse(q.Get("page"), q.Get("size")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type imageRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	URL  string `json:"url" validate:"required,url"`
}

type createProductRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Inventory     int             `json:"inventory" validate:"min=0"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	SubcategoryID *uuid.UUID      `json:"subcategory_id"`
	Images        []imageRequest  `json:"images" validate:"dive"`
	Status        string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

type updateProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=200"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Inventory     *int             `json:"inventory" validate:"omitempty,min=0"`
	CategoryID    *uuid.UUID       `json:"category_id"`
	SubcategoryID *uuid.UUID       `json:"subcategory_id"`
	Images        *[]imageRequest  `json:"images"`
	Status        *string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

func imageRefs(in []imageRequest) []types.ImageRef {
	out := make([]types.ImageRef, 0, len(in))
	for _, img := range in {
		out = append(out, types.ImageRef{ID: img.ID, Name: img.Name, URL: img.URL})
	}
	return out
}

// AdminCreateProduct handles catalog creation for back-office users.
func AdminCreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := product.CreateProductInput{
			Name:          body.Name,
			Description:   body.Description,
			Price:         body.Price,
			Inventory:     body.Inventory,
			CategoryID:    body.CategoryID,
			SubcategoryID: body.SubcategoryID,
			Images:        imageRefs(body.Images),
			Status:        enums.ProductStatus(body.Status),
		}
		dto, err := svc.CreateProduct(r.Context(), middleware.ActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func AdminUpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := product.UpdateProductInput{
			Name:          body.Name,
			Description:   body.Description,
			Price:         body.Price,
			Inventory:     body.Inventory,
			CategoryID:    body.CategoryID,
			SubcategoryID: body.SubcategoryID,
		}
		if body.Images != nil {
			refs := imageRefs(*body.Images)
			input.Images = &refs
		}
		if body.Status != nil {
			status := enums.ProductStatus(*body.Status)
			input.Status = &status
		}

		dto, err := svc.UpdateProduct(r.Context(), middleware.ActorFromContext(r.Context()), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AdminProductNameTaken answers the uniqueness probe used by the product form.
func AdminProductNameTaken(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := validators.SanitizeString(r.URL.Query().Get("name"), 200)
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
				WithDetails(map[string]any{"field": "name"}))
			return
		}

		var exclude *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("exclude")); raw != "" {
			id, err := validators.ParseUUID(raw, "exclude")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			exclude = &id
		}

		taken, err := svc.NameTaken(r.Context(), name, exclude)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"taken": taken})
	}
}
