package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Materials   string          `json:"materials,omitempty"`
	Dimensions  string          `json:"dimensions,omitempty"`
	Weight      string          `json:"weight,omitempty"`
	GITagged    bool            `json:"is_gi_tagged"`
	ArtisanID   string          `json:"artisan_id,omitempty"`
	ArtisanName string          `json:"artisan_name,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Category    string          `json:"category,omitempty"`
	RegionID    string          `json:"region_id,omitempty"`
	Region      string          `json:"region,omitempty"`
	State       string          `json:"state,omitempty"`
	Story       *storyResponse  `json:"story,omitempty"`
}

type storyResponse struct {
	Title        string `json:"title"`
	Content      string `json:"content,omitempty"`
	History      string `json:"history,omitempty"`
	Significance string `json:"cultural_significance,omitempty"`
}

type offeringResponse struct {
	ProductID         string          `json:"product_id"`
	PartnerID         string          `json:"partner_id"`
	PartnerName       string          `json:"partner_name"`
	Price             decimal.Decimal `json:"price"`
	ShippingFee       decimal.Decimal `json:"shipping_fee"`
	Available         bool            `json:"available"`
	EstimatedDelivery string          `json:"estimated_delivery,omitempty"`
}

type partnerResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	WebsiteURL     string          `json:"website_url,omitempty"`
	Description    string          `json:"description,omitempty"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Rating         decimal.Decimal `json:"rating"`
	ReviewCount    int             `json:"review_count"`
	ProductCount   int             `json:"product_count"`
}

type artisanResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	CraftType   string `json:"craft_type,omitempty"`
	Bio         string `json:"bio,omitempty"`
	YearsActive int    `json:"years_active"`
	RegionID    string `json:"region_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type productDetailResponse struct {
	productResponse
	Offerings []offeringResponse `json:"offerings"`
}

// transparencyResponse is the provenance view of a product: who made it,
// where, and the cultural context behind it.
type transparencyResponse struct {
	ProductID   string           `json:"product_id"`
	ProductName string           `json:"product_name"`
	GITagged    bool             `json:"is_gi_tagged"`
	Artisan     *artisanResponse `json:"artisan,omitempty"`
	Region      string           `json:"region,omitempty"`
	State       string           `json:"state,omitempty"`
	Story       *storyResponse   `json:"story,omitempty"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.ProductFilter{
		CategoryID: q.Get("category"),
		RegionID:   q.Get("region"),
		ArtisanID:  q.Get("artisan"),
		Query:      q.Get("q"),
	}
	page := pageFrom(r, defaultCatalogPerPage)

	products, total, err := h.catalog.ListProducts(r.Context(), filter, page)
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i])
	}
	respondJSON(w, r, http.StatusOK, newPageEnvelope(page, total, out))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	offerings, err := h.catalog.ListOfferings(r.Context(), id)
	if err != nil {
		zctx.From(r.Context()).Error("list offerings", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusOK, productDetailResponse{
		productResponse: toProductResponse(p),
		Offerings:       toOfferingResponses(offerings),
	})
}

func (h *Handler) listOfferings(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.catalog.ListOfferings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		zctx.From(r.Context()).Error("list offerings", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, r, http.StatusOK, toOfferingResponses(offerings))
}

func (h *Handler) listPartners(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r, defaultCatalogPerPage)

	partners, total, err := h.catalog.ListPartners(r.Context(), page)
	if err != nil {
		zctx.From(r.Context()).Error("list partners", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]partnerResponse, len(partners))
	for i, p := range partners {
		out[i] = toPartnerResponse(&p)
	}
	respondJSON(w, r, http.StatusOK, newPageEnvelope(page, total, out))
}

func (h *Handler) getPartner(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetPartner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrPartnerNotFound) {
			respondError(w, r, http.StatusNotFound, "partner not found")
			return
		}
		zctx.From(r.Context()).Error("get partner", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, r, http.StatusOK, toPartnerResponse(p))
}

func (h *Handler) listArtisans(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r, defaultCatalogPerPage)

	artisans, total, err := h.catalog.ListArtisans(r.Context(), page)
	if err != nil {
		zctx.From(r.Context()).Error("list artisans", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]artisanResponse, len(artisans))
	for i, a := range artisans {
		out[i] = toArtisanResponse(&a)
	}
	respondJSON(w, r, http.StatusOK, newPageEnvelope(page, total, out))
}

func (h *Handler) getArtisan(w http.ResponseWriter, r *http.Request) {
	a, err := h.catalog.GetArtisan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrArtisanNotFound) {
			respondError(w, r, http.StatusNotFound, "artisan not found")
			return
		}
		zctx.From(r.Context()).Error("get artisan", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, r, http.StatusOK, toArtisanResponse(a))
}

func (h *Handler) transparency(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := transparencyResponse{
		ProductID:   p.ID,
		ProductName: p.Name,
		GITagged:    p.GITagged,
		Region:      p.Region,
		State:       p.State,
		Story:       toStoryResponse(p.Story),
	}
	if p.ArtisanID != "" {
		if a, err := h.catalog.GetArtisan(r.Context(), p.ArtisanID); err == nil {
			ar := toArtisanResponse(a)
			resp.Artisan = &ar
		}
	}
	respondJSON(w, r, http.StatusOK, resp)
}

func toProductResponse(p *catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Materials:   p.Materials,
		Dimensions:  p.Dimensions,
		Weight:      p.Weight,
		GITagged:    p.GITagged,
		ArtisanID:   p.ArtisanID,
		ArtisanName: p.ArtisanName,
		CategoryID:  p.CategoryID,
		Category:    p.Category,
		RegionID:    p.RegionID,
		Region:      p.Region,
		State:       p.State,
		Story:       toStoryResponse(p.Story),
	}
}

func toStoryResponse(s *catalog.Story) *storyResponse {
	if s == nil {
		return nil
	}
	return &storyResponse{
		Title:        s.Title,
		Content:      s.Content,
		History:      s.History,
		Significance: s.Significance,
	}
}

func toOfferingResponses(offerings []catalog.Offering) []offeringResponse {
	out := make([]offeringResponse, len(offerings))
	for i, o := range offerings {
		out[i] = offeringResponse{
			ProductID:         o.ProductID,
			PartnerID:         o.PartnerID,
			PartnerName:       o.PartnerName,
			Price:             o.Price,
			ShippingFee:       o.ShippingFee,
			Available:         o.Available,
			EstimatedDelivery: o.EstimatedDelivery,
		}
	}
	return out
}

func toPartnerResponse(p *catalog.Partner) partnerResponse {
	return partnerResponse{
		ID:             p.ID,
		Name:           p.Name,
		WebsiteURL:     p.WebsiteURL,
		Description:    p.Description,
		CommissionRate: p.CommissionRate,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		ProductCount:   p.ProductCount,
	}
}

func toArtisanResponse(a *catalog.Artisan) artisanResponse {
	return artisanResponse{
		ID:          a.ID,
		Name:        a.Name,
		Location:    a.Location,
		CraftType:   a.CraftType,
		Bio:         a.Bio,
		YearsActive: a.YearsActive,
		RegionID:    a.RegionID,
		ImageURL:    a.ImageURL,
	}
}
