package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
	"github.com/alexbor287kz-boop/marketplace/internal/server/services"
)

type productResponse struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"short_description"`
	IconURL          string    `json:"icon_url"`
	Category         string    `json:"category"`
	ProductType      string    `json:"product_type"`
	Tags             []string  `json:"tags"`
	ProductURL       string    `json:"product_url"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	OwnerName        string    `json:"owner_name,omitempty"`
}

func toProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:               p.ID,
		OwnerID:          p.OwnerID,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		IconURL:          p.IconURL,
		Category:         p.Category,
		ProductType:      p.ProductType,
		Tags:             p.Tags,
		ProductURL:       p.ProductURL,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		OwnerName:        p.OwnerName,
	}
}

type mediaInputRequest struct {
	ContentType string `json:"content_type"`
}

type createProductRequest struct {
	Title            string              `json:"title"`
	ShortDescription string              `json:"short_description"`
	IconURL          string              `json:"icon_url"`
	Category         string              `json:"category"`
	ProductType      string              `json:"product_type"`
	Tags             string              `json:"tags"`
	ProductURL       string              `json:"product_url"`
	Media            []mediaInputRequest `json:"media"`
}

type uploadTaskResponse struct {
	MediaID    string `json:"media_id"`
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

type createProductResponse struct {
	productResponse
	MediaUploads []uploadTaskResponse `json:"media_uploads,omitempty"`
}

type updateProductRequest struct {
	Title            *string `json:"title"`
	ShortDescription *string `json:"short_description"`
	IconURL          *string `json:"icon_url"`
	Category         *string `json:"category"`
	ProductType      *string `json:"product_type"`
	Tags             *string `json:"tags"`
	ProductURL       *string `json:"product_url"`
}

func (s *RESTServer) handleListProducts(w http.ResponseWriter, r *http.Request) {

	products, err := s.products.List(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *RESTServer) handleCreateProduct(w http.ResponseWriter, r *http.Request) {

	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, "Неверный токен")
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Неверный запрос")
		return
	}

	input := &services.ProductInput{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		IconURL:          req.IconURL,
		Category:         req.Category,
		ProductType:      req.ProductType,
		Tags:             req.Tags,
		ProductURL:       req.ProductURL,
	}

	var mediaInputs []*services.MediaInput
	for _, m := range req.Media {
		mediaInputs = append(mediaInputs, &services.MediaInput{ContentType: m.ContentType})
	}

	product, tasks, err := s.products.Create(r.Context(), claims.UserID, input, mediaInputs)
	if err != nil {
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	resp := createProductResponse{productResponse: toProductResponse(product)}
	for _, t := range tasks {
		resp.MediaUploads = append(resp.MediaUploads, uploadTaskResponse{
			MediaID:    t.MediaID,
			StorageKey: t.StorageKey,
			UploadURL:  t.URL,
		})
	}

	s.logger.Info(r.Context(), "Product created", "id", product.ID, "owner", claims.UserID)
	writeJSON(w, http.StatusOK, resp)
}

func (s *RESTServer) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {

	id := chi.URLParam(r, "id")

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Неверный запрос")
		return
	}

	upd := &models.ProductUpdate{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		IconURL:          req.IconURL,
		Category:         req.Category,
		ProductType:      req.ProductType,
		ProductURL:       req.ProductURL,
	}
	if req.Tags != nil {
		upd.Tags = services.ParseTags(*req.Tags)
	}

	product, err := s.products.Update(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorJSON(w, http.StatusBadRequest, "Не найдено")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (s *RESTServer) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {

	id := chi.URLParam(r, "id")

	if err := s.products.Delete(r.Context(), id); err != nil {
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (s *RESTServer) handleAttachMedia(w http.ResponseWriter, r *http.Request) {

	productID := chi.URLParam(r, "id")

	var req mediaInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Неверный запрос")
		return
	}

	task, err := s.products.AttachMedia(r.Context(), productID, req.ContentType)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorJSON(w, http.StatusBadRequest, "Не найдено")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, uploadTaskResponse{
		MediaID:    task.MediaID,
		StorageKey: task.StorageKey,
		UploadURL:  task.URL,
	})
}

func (s *RESTServer) handleMediaUploaded(w http.ResponseWriter, r *http.Request) {

	id := chi.URLParam(r, "id")

	if err := s.products.MarkMediaUploaded(r.Context(), id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorJSON(w, http.StatusBadRequest, "Не найдено")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": models.MediaUploadUploaded})
}

func (s *RESTServer) handleMediaDownloadURL(w http.ResponseWriter, r *http.Request) {

	id := chi.URLParam(r, "id")

	url, err := s.products.MediaDownloadURL(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorJSON(w, http.StatusBadRequest, "Не найдено")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *RESTServer) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {

	id := chi.URLParam(r, "id")

	if err := s.products.DeleteMedia(r.Context(), id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorJSON(w, http.StatusBadRequest, "Не найдено")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}
