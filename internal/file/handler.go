package file

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/droprelay/service/internal/errs"
	"github.com/droprelay/service/internal/logger"
	"github.com/droprelay/service/internal/response"
	"github.com/droprelay/service/internal/staging"
	"github.com/droprelay/service/internal/storage"
)

// formField is the multipart field carrying the upload.
const formField = "file"

// multipartOverhead is the room left on top of the file limit for part
// headers, boundaries and other form fields.
const multipartOverhead = 1 << 20

var errNoFile = errors.New("no file part in request")

// Handler holds HTTP handlers for the upload and download routes.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
}

// NewHandler creates a new file Handler. maxUploadBytes is the per-file cap
// enforced while staging.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stages a single multipart file locally and forwards it to Dropbox under "/<file name>".
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		plain
//	@Param			file	formData	file	true	"File to upload (max 10 MiB)"
//	@Success		200		{string}	string	"File uploaded successfully to Dropbox."
//	@Failure		400		{string}	string	"No file uploaded."
//	@Failure		413		{string}	string	"File too large."
//	@Failure		500		{string}	string	"Failed to upload file."
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	part, err := filePart(r)
	if err != nil {
		if isTooLarge(err) {
			response.TooLarge(w, "File too large.")
			return
		}
		response.BadRequest(w, "No file uploaded.")
		return
	}
	defer part.Close()

	fileName := part.FileName()
	err = h.svc.Upload(r.Context(), fileName, part)
	switch {
	case err == nil:
		response.OK(w, "File uploaded successfully to Dropbox.")
	case h.svc.IsInvalidName(err):
		response.BadRequest(w, "Invalid file name.")
	case isTooLarge(err):
		response.TooLarge(w, "File too large.")
	default:
		logger.FromContext(r.Context()).ErrorWith("error uploading file to dropbox", err, map[string]interface{}{
			"file_name": fileName,
			"kind":      errs.KindOf(err).String(),
		})
		response.InternalError(w, "Failed to upload file.")
	}
}

// Download godoc
//
//	@Summary		Download a file
//	@Description	Fetches "/<fileName>" from Dropbox and streams it back as an attachment.
//	@Tags			files
//	@Produce		octet-stream
//	@Param			fileName	query		string	true	"Name the file was uploaded under"
//	@Success		200			{file}		file
//	@Failure		500			{string}	string	"Failed to download file."
//	@Router			/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	fileName := r.URL.Query().Get("fileName")

	obj, err := h.svc.Download(r.Context(), fileName)
	if err != nil {
		if errors.Is(err, storage.ErrNoContent) {
			log.WarnWith("dropbox returned no file content", map[string]interface{}{
				"file_name": fileName,
			})
			response.InternalError(w, "Failed to retrieve file content from Dropbox.")
			return
		}
		log.ErrorWith("error downloading file from dropbox", err, map[string]interface{}{
			"file_name": fileName,
			"kind":      errs.KindOf(err).String(),
		})
		response.InternalError(w, "Failed to download file.")
		return
	}
	defer obj.Body.Close()

	name := obj.Name
	if name == "" {
		name = fileName
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		// Headers are gone; the client sees a short body.
		log.ErrorWith("error streaming file to client", err, map[string]interface{}{
			"file_name": fileName,
		})
	}
}

// filePart advances the multipart body to the first part named formField
// that carries a file name. Other parts are skipped.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errNoFile
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == formField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.Is(err, staging.ErrTooLarge) || errors.As(err, &maxErr)
}
