package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"filevault/internal/apperr"
	"filevault/internal/models"
	"filevault/internal/response"
	"filevault/internal/service"
)

type fileSummary struct {
	ID         int64     `json:"id"`
	File       string    `json:"file"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toFileSummary(c *gin.Context) func(models.File) fileSummary {
	return func(file models.File) fileSummary {
		return fileSummary{
			ID:         file.ID,
			File:       absoluteURL(c, "/api/user/files/"+strconv.FormatInt(file.ID, 10)+"/"),
			Name:       file.Name,
			UploadedAt: file.UploadedAt,
		}
	}
}

func uploadFromHeader(fh *multipart.FileHeader) service.UploadFile {
	return service.UploadFile{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func (h HandlerSet) UploadFiles(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		response.AbortInternal(c)
		return
	}

	if limit := h.cfg.HTTP.MaxUploadBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	var uploads []service.UploadFile
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, h.log, apperr.FieldValidation("file", "Upload exceeds the maximum allowed size."))
			return
		}
	} else {
		for _, fh := range form.File["file"] {
			uploads = append(uploads, uploadFromHeader(fh))
		}
	}

	if _, err := h.files.Upload(c.Request.Context(), user.ID, uploads); err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Files uploaded successfully."})
}

func (h HandlerSet) ListFiles(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		response.AbortInternal(c)
		return
	}

	page, err := h.files.List(c.Request.Context(), user.ID, queryPage(c))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(c, page, toFileSummary(c)))
}

func (h HandlerSet) DownloadFile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		response.AbortInternal(c)
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}

	download, err := h.files.Fetch(c.Request.Context(), user.ID, fileID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	defer download.Content.Close()

	c.DataFromReader(http.StatusOK, download.Size, download.ContentType, download.Content, map[string]string{
		"Content-Disposition": contentDisposition(download.File.Name),
	})
}

func (h HandlerSet) DeleteFile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		response.AbortInternal(c)
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.files.Delete(c.Request.Context(), user.ID, fileID); err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type updateFileRequest struct {
	Name string `json:"name" form:"name" binding:"max=255"`
}

func (h HandlerSet) UpdateFile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		response.AbortInternal(c)
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateFileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.log, bindError(c, &req, err))
		return
	}

	input := service.UpdateInput{Name: strings.TrimSpace(req.Name)}
	if fh, err := c.FormFile("file"); err == nil {
		upload := uploadFromHeader(fh)
		input.Content = &upload
	}

	file, err := h.files.Update(c.Request.Context(), user.ID, fileID, input)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toFileSummary(c)(file))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Abort(c, apperr.NotFound("Not found."))
		return 0, false
	}
	return id, true
}

func contentDisposition(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "").Replace(name)
	return `attachment; filename="` + escaped + `"`
}
