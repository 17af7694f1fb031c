package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arsipwarga/arsipwarga/internal/logger"
	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/repository"
	"github.com/arsipwarga/arsipwarga/internal/storage"
)

// maxUploadBytes caps a single document upload at 10 MiB.
const maxUploadBytes = 10 << 20

// DocumentHandler implements the owner-facing document CRUD: upload,
// list, re-upload and delete. Verification lives in VerificationHandler.
type DocumentHandler struct {
	Documents *repository.DocumentRepo
	Users     *repository.UserRepo
	Store     *storage.Store
}

func NewDocumentHandler(docs *repository.DocumentRepo, users *repository.UserRepo, store *storage.Store) *DocumentHandler {
	return &DocumentHandler{Documents: docs, Users: users, Store: store}
}

// extensionFor maps the accepted MIME types to a file extension.
func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "application/pdf":
		return "pdf"
	}
	return "bin"
}

// displayFilename builds the viewer-facing name from the document type and
// the owner's name, e.g. "KTP_Budi_Santoso".
func displayFilename(fileType, fullName string) string {
	return fileType + "_" + strings.Join(strings.Fields(fullName), "_")
}

// objectPath builds the storage path for an upload. The nanosecond stamp
// makes re-uploads land on fresh paths, so a signed URL minted before a
// replacement keeps pointing at the exact bytes that were shared.
func objectPath(userID uint64, fileType, mime string, now time.Time) string {
	return fmt.Sprintf("%d/%s_%d_%d.%s", userID, fileType, userID, now.UnixNano(), extensionFor(mime))
}

// Upload stores a new document in pending state. One document per type
// per user; a duplicate type is a 409 and the caller should use Update.
func (h *DocumentHandler) Upload(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	fileType := strings.TrimSpace(c.FormValue("file_type"))
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}
	mime := fh.Header.Get("Content-Type")
	ok, known := model.MimeAllowed(fileType, mime)
	if !known {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown document type"})
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file format not allowed for this document type"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	owner, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read upload failed"})
	}
	defer src.Close()

	path := objectPath(uid, fileType, mime, time.Now())
	if err := h.Store.Put(path, src); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store file failed"})
	}

	doc := model.Document{
		UserID:      uid,
		Filename:    displayFilename(fileType, owner.FullName),
		StoragePath: path,
		MimeType:    mime,
		FileType:    fileType,
	}
	id, err := h.Documents.Create(ctx, doc)
	if err != nil {
		// Orphaned object cleanup; the row is the source of truth.
		if rmErr := h.Store.Remove(path); rmErr != nil {
			logger.L.Warn("document: cleanup after failed insert", zap.String("path", path), zap.Error(rmErr))
		}
		if errors.Is(err, repository.ErrDuplicateType) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "document of this type already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create document failed"})
	}
	doc.ID = id
	doc.VerificationStatus = model.DocPending

	return c.JSON(http.StatusCreated, echo.Map{"document": toDocumentPart(doc)})
}

// List returns the caller's documents, optionally filtered by
// ?status=pending|verified|rejected.
func (h *DocumentHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := c.QueryParam("status")
	switch status {
	case "", model.DocPending, model.DocVerified, model.DocRejected:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	docs, err := h.Documents.ListByUser(ctx, uid, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"documents": toDocumentParts(docs)})
}

// Update replaces the stored file of an existing document and resets its
// verification status to pending. The old object is removed after the row
// points at the new one.
func (h *DocumentHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	existing, err := h.Documents.GetOwned(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}
	fileType := strings.TrimSpace(c.FormValue("file_type"))
	if fileType == "" {
		fileType = existing.FileType
	}
	mime := fh.Header.Get("Content-Type")
	ok, known := model.MimeAllowed(fileType, mime)
	if !known {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown document type"})
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file format not allowed for this document type"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read upload failed"})
	}
	defer src.Close()

	path := objectPath(uid, fileType, mime, time.Now())
	if err := h.Store.Put(path, src); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store file failed"})
	}

	if err := h.Documents.Replace(ctx, id, uid, path, mime, fileType); err != nil {
		if rmErr := h.Store.Remove(path); rmErr != nil {
			logger.L.Warn("document: cleanup after failed replace", zap.String("path", path), zap.Error(rmErr))
		}
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update document failed"})
	}
	if existing.StoragePath != path {
		if err := h.Store.Remove(existing.StoragePath); err != nil {
			logger.L.Warn("document: remove superseded object", zap.String("path", existing.StoragePath), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "document updated, pending verification"})
}

// Delete removes the caller's document row and its stored object.
func (h *DocumentHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	existing, err := h.Documents.GetOwned(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Documents.Delete(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete document failed"})
	}
	if err := h.Store.Remove(existing.StoragePath); err != nil {
		logger.L.Warn("document: remove object after delete", zap.String("path", existing.StoragePath), zap.Error(err))
	}
	return c.NoContent(http.StatusNoContent)
}
