//go:build integration

package integration

import (
	"net/http"
	"strconv"
	"testing"
)

// assertAmount compares a decimal string from the API against an expected
// value, ignoring formatting differences like trailing zeros.
func assertAmount(t *testing.T, field, got string, want float64) {
	t.Helper()

	v, err := strconv.ParseFloat(got, 64)
	if err != nil {
		t.Fatalf("%s: parse %q: %v", field, got, err)
	}
	if v != want {
		t.Errorf("%s: got %v, want %v", field, v, want)
	}
}

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[pageResponse[productResponse]](t, resp)
	if page.Total != 2 {
		t.Fatalf("total: got %d, want 2", page.Total)
	}
	if page.TotalPages != 1 {
		t.Errorf("total_pages: got %d, want 1", page.TotalPages)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 products, got %d", len(page.Data))
	}

	// Sorted by name: the Ajrakh stole comes first.
	first := page.Data[0]
	if first.ID != "p-1" {
		t.Errorf("first product: got %q, want %q", first.ID, "p-1")
	}
	if first.ArtisanName != "Salim Khatri" {
		t.Errorf("artisan_name: got %q, want %q", first.ArtisanName, "Salim Khatri")
	}
	if first.Category != "Textiles" {
		t.Errorf("category: got %q, want %q", first.Category, "Textiles")
	}
}

func TestListProducts_FilterByRegion(t *testing.T) {
	resp := doGet(t, "/api/products?region=r-kutch")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[pageResponse[productResponse]](t, resp)
	if page.Total != 1 {
		t.Fatalf("total: got %d, want 1", page.Total)
	}
	if page.Data[0].ID != "p-1" {
		t.Errorf("product: got %q, want %q", page.Data[0].ID, "p-1")
	}
}

func TestListProducts_Search(t *testing.T) {
	resp := doGet(t, "/api/products?q=dhurrie")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[pageResponse[productResponse]](t, resp)
	if page.Total != 1 {
		t.Fatalf("total: got %d, want 1", page.Total)
	}
	if page.Data[0].ID != "p-2" {
		t.Errorf("product: got %q, want %q", page.Data[0].ID, "p-2")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/p-1")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.Name != "Ajrakh stole, indigo" {
		t.Errorf("name: got %q", product.Name)
	}
	if !product.GITagged {
		t.Error("expected is_gi_tagged true")
	}
	if product.Story == nil || product.Story.Title != "Ajrakh: printing the night sky" {
		t.Errorf("story: got %+v", product.Story)
	}
	if len(product.Offerings) != 2 {
		t.Fatalf("expected 2 offerings, got %d", len(product.Offerings))
	}
	// Offerings are ordered cheapest first.
	assertAmount(t, "offering price", product.Offerings[0].Price, 1420)
	if product.Offerings[0].PartnerID != "pt-2" {
		t.Errorf("cheapest offering partner: got %q, want %q", product.Offerings[0].PartnerID, "pt-2")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestListPartners(t *testing.T) {
	resp := doGet(t, "/api/partners")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[pageResponse[partnerResponse]](t, resp)
	if page.Total != 2 {
		t.Fatalf("total: got %d, want 2", page.Total)
	}

	for _, p := range page.Data {
		if p.ID == "pt-1" {
			assertAmount(t, "commission_rate", p.CommissionRate, 15)
			if p.ProductCount != 2 {
				t.Errorf("pt-1 product_count: got %d, want 2", p.ProductCount)
			}
		}
	}
}

func TestListOfferingsForProduct(t *testing.T) {
	resp := doGet(t, "/api/partners/product/p-2")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	offerings := decodeJSON[[]offeringResponse](t, resp)
	if len(offerings) != 1 {
		t.Fatalf("expected 1 offering, got %d", len(offerings))
	}
	if offerings[0].PartnerName != "Craftloom" {
		t.Errorf("partner_name: got %q, want %q", offerings[0].PartnerName, "Craftloom")
	}
}

func TestListArtisans(t *testing.T) {
	resp := doGet(t, "/api/artisans")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[pageResponse[artisanResponse]](t, resp)
	if page.Total != 2 {
		t.Fatalf("total: got %d, want 2", page.Total)
	}
}

func TestGetArtisan(t *testing.T) {
	resp := doGet(t, "/api/artisans/a-2")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	artisan := decodeJSON[artisanResponse](t, resp)
	if artisan.CraftType != "Block printer" {
		t.Errorf("craft_type: got %q", artisan.CraftType)
	}
}

func TestTransparency(t *testing.T) {
	resp := doGet(t, "/api/transparency/p-1")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	tr := decodeJSON[transparencyResponse](t, resp)
	if !tr.GITagged {
		t.Error("expected is_gi_tagged true")
	}
	if tr.Artisan == nil || tr.Artisan.Name != "Salim Khatri" {
		t.Errorf("artisan: got %+v", tr.Artisan)
	}
	if tr.State != "Gujarat" {
		t.Errorf("state: got %q, want %q", tr.State, "Gujarat")
	}
	if tr.Story == nil {
		t.Error("expected story in transparency response")
	}
}
