package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/hairizuan-noorazman/desktop-automation/hintimage"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
	"github.com/hairizuan-noorazman/desktop-automation/scenario"
	"github.com/hairizuan-noorazman/desktop-automation/storage"
)

// ScenarioHandler exposes scenario CRUD and hint image management.
type ScenarioHandler struct {
	store  scenario.Store
	blobs  storage.BlobStorage
	limits hintimage.ValidationLimits
	logger logger.Logger
}

// NewScenarioHandler creates a scenario handler.
func NewScenarioHandler(store scenario.Store, blobs storage.BlobStorage, log logger.Logger) *ScenarioHandler {
	return &ScenarioHandler{
		store:  store,
		blobs:  blobs,
		limits: hintimage.DefaultValidationLimits(),
		logger: log,
	}
}

// CreateScenarioRequest is the payload for creating a scenario.
type CreateScenarioRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateScenarioRequest is the payload for updating a scenario. Nil
// fields are left unchanged.
type UpdateScenarioRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Create stores a new scenario in pending state.
func (h *ScenarioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateScenarioRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc := &scenario.Scenario{
		Title:       req.Title,
		Description: req.Description,
		Status:      scenario.StatusPending,
	}
	if err := h.store.Create(r.Context(), sc); err != nil {
		if errors.Is(err, scenario.ErrInvalidTitle) || errors.Is(err, scenario.ErrInvalidDescription) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create scenario")
		return
	}
	respondJSON(w, http.StatusCreated, sc)
}

// List returns scenarios ordered by creation time.
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	scenarios, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list scenarios")
		return
	}
	respondJSON(w, http.StatusOK, PaginatedResponse{
		Items:  scenarios,
		Total:  len(scenarios),
		Limit:  limit,
		Offset: offset,
	})
}

// GetByID returns one scenario.
func (h *ScenarioHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "scenario")
	if !ok {
		return
	}

	sc, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get scenario")
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

// Update changes a scenario's title or description.
func (h *ScenarioHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "scenario")
	if !ok {
		return
	}

	var req UpdateScenarioRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var setters []scenario.UpdateSetter
	if req.Title != nil {
		setters = append(setters, scenario.SetTitle(*req.Title))
	}
	if req.Description != nil {
		setters = append(setters, scenario.SetDescription(*req.Description))
	}
	if len(setters) == 0 {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.store.Update(r.Context(), id, setters...); err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update scenario")
		return
	}

	sc, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get scenario")
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

// Delete removes a scenario and its stored hint images.
func (h *ScenarioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "scenario")
	if !ok {
		return
	}

	sc, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get scenario")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete scenario")
		return
	}

	for _, ref := range sc.HintImages {
		if err := h.blobs.Delete(r.Context(), ref.Path); err != nil {
			h.logger.Warn(r.Context(), "failed to delete hint image blob", map[string]interface{}{
				"error": err.Error(),
				"path":  ref.Path,
			})
		}
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "scenario deleted"})
}

// UploadHintImage attaches one hint image to a scenario via multipart
// form upload. Oracle API limits are enforced before anything is stored.
func (h *ScenarioHandler) UploadHintImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "scenario")
	if !ok {
		return
	}

	sc, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get scenario")
		return
	}

	if err := r.ParseMultipartForm(int64(h.limits.MaxFileBytes)); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(h.limits.MaxFileBytes)+1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mimeTypeForExtension(filepath.Ext(header.Filename))
	}

	candidate := hintimage.HintImage{
		Index:    len(sc.HintImages),
		FileName: header.Filename,
		MIMEType: mimeType,
		Data:     data,
	}

	// Validate the whole prospective set so count and total-size caps
	// account for the images already attached.
	existing, err := h.loadExisting(r, sc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load existing hint images")
		return
	}
	if err := hintimage.ValidateSet(append(existing, candidate), h.limits); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := storage.HintImageKey(sc.ID.String(), candidate.Index, header.Filename)
	if err := h.blobs.Upload(r.Context(), key, bytes.NewReader(data)); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store hint image")
		return
	}

	refs := append(sc.HintImages, scenario.HintImageRef{
		Position: candidate.Index,
		FileName: header.Filename,
		MIMEType: mimeType,
		Path:     key,
	})
	if err := h.store.Update(r.Context(), id, scenario.SetHintImages(refs)); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update scenario")
		return
	}
	respondJSON(w, http.StatusCreated, refs[len(refs)-1])
}

func (h *ScenarioHandler) loadExisting(r *http.Request, sc *scenario.Scenario) ([]hintimage.HintImage, error) {
	images := make([]hintimage.HintImage, 0, len(sc.HintImages))
	for _, ref := range sc.HintImages {
		reader, err := h.blobs.Download(r.Context(), ref.Path)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, hintimage.HintImage{
			Index:    ref.Position,
			FileName: ref.FileName,
			MIMEType: ref.MIMEType,
			Data:     data,
		})
	}
	return images, nil
}

func mimeTypeForExtension(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
