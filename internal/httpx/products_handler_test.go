package httpx

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdeck/vdeck-orders/internal/memstore"
	"github.com/vdeck/vdeck-orders/internal/orders"
	"github.com/vdeck/vdeck-orders/internal/uploads"
)

func newProductsServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	images, err := uploads.NewDiskStore(t.TempDir(), "http://test.local")
	require.NoError(t, err)

	h := &ProductsHandler{Catalog: store, Images: images}
	router := NewRouter()
	h.Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func createProductHTTP(t *testing.T, srv *httptest.Server, name string, stock int) orders.Product {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", name)
	_ = mw.WriteField("category", "decks")
	_ = mw.WriteField("description", "a deck")
	_ = mw.WriteField("price_cents", "2500")
	_ = mw.WriteField("stock", "10")
	fw, err := mw.CreateFormFile("images", "front.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/products", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p orders.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func TestCreateProductHTTP(t *testing.T) {
	srv, _ := newProductsServer(t)

	p := createProductHTTP(t, srv, "Classic Deck", 10)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, 2500, p.PriceCents)
	require.Len(t, p.Images, 1)
	assert.Contains(t, p.Images[0], "http://test.local/uploads/products/")
}

func TestCreateProductHTTP_MissingFields(t *testing.T) {
	srv, _ := newProductsServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "No Price")
	_ = mw.WriteField("category", "decks")
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/products", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAndGetProductsHTTP(t *testing.T) {
	srv, _ := newProductsServer(t)
	p := createProductHTTP(t, srv, "Classic Deck", 10)

	resp, err := http.Get(srv.URL + "/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list []orders.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp, err = http.Get(srv.URL + "/products/" + p.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/products/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteProductHTTP(t *testing.T) {
	srv, store := newProductsServer(t)
	p := createProductHTTP(t, srv, "Classic Deck", 10)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/products/"+p.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = store.GetProduct(req.Context(), p.ID)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}
