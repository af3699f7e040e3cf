package httpx

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vdeck/vdeck-orders/internal/orders"
	"github.com/vdeck/vdeck-orders/internal/uploads"
)

const maxProductImages = 6

type ProductsHandler struct {
	Catalog orders.Catalog
	Images  uploads.Store
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Delete("/products/{id}", h.deleteProduct)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed multipart form"})
		return
	}

	name := r.FormValue("name")
	category := r.FormValue("category")
	priceCents, perr := strconv.Atoi(r.FormValue("price_cents"))
	stock, serr := strconv.Atoi(r.FormValue("stock"))
	if name == "" || category == "" || perr != nil || serr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	if stock < 0 {
		stock = 0
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var urls []string
	files := r.MultipartForm.File["images"]
	if len(files) > maxProductImages {
		files = files[:maxProductImages]
	}
	for _, hdr := range files {
		f, err := hdr.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable image"})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable image"})
			return
		}
		url, err := h.Images.Store(ctx, data, "products", hdr.Filename)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "image upload failed"})
			return
		}
		urls = append(urls, url)
	}

	p := orders.Product{
		Name:        name,
		Category:    category,
		Description: r.FormValue("description"),
		Images:      urls,
		Stock:       stock,
		PriceCents:  priceCents,
		BestSeller:  r.FormValue("best_seller") == "true",
	}
	if err := h.Catalog.CreateProduct(ctx, &p); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	// best effort; a stale file is preferable to a dangling product row
	for _, url := range p.Images {
		if err := h.Images.Delete(ctx, url); err != nil {
			log.Printf("delete image %s: %v", url, err)
		}
	}
	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}
