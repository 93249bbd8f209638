package knowledge

import (
	"net/http"
	"strings"

	"sdr_assistant_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	formFile            = "file"
	formMetadataColumns = "metadata_columns"
)

// IndexStatus is the read-only view of an index used by the status endpoint.
type IndexStatus interface {
	Name() string
	Size() int
	LastError() error
	StateName() string
}

type indexStatusResponse struct {
	State     string `json:"state"`
	Chunks    int    `json:"chunks"`
	LastError string `json:"lastError,omitempty"`
}

type Handler struct {
	svc     *Service
	indexes []IndexStatus
}

func NewHandler(svc *Service, indexes ...IndexStatus) *Handler {
	return &Handler{svc: svc, indexes: indexes}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.Status)
	rg.POST("/leads", h.UploadLeads)
	rg.DELETE("/leads", h.ClearLeads)
}

func (h *Handler) UploadLeads(c *gin.Context) {
	fh, err := c.FormFile(formFile)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not open file", err.Error())
		return
	}
	defer f.Close()

	requestedBy := ""
	if id := httpkit.GetIdentity(c); id.IsAuthenticated() {
		requestedBy = id.UserID()
	}

	result, err := h.svc.UploadLeadCorpus(c.Request.Context(), UploadInput{
		FileName:        fh.Filename,
		ContentType:     fh.Header.Get("Content-Type"),
		Size:            fh.Size,
		Body:            f,
		MetadataColumns: c.PostFormArray(formMetadataColumns),
		RequestedBy:     requestedBy,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, result)
}

func (h *Handler) ClearLeads(c *gin.Context) {
	if httpkit.HandleError(c, h.svc.ClearLeadCorpus(c.Request.Context())) {
		return
	}
	httpkit.NoContent(c)
}

func (h *Handler) Status(c *gin.Context) {
	out := make(map[string]indexStatusResponse, len(h.indexes))
	for _, ix := range h.indexes {
		st := indexStatusResponse{State: ix.StateName(), Chunks: ix.Size()}
		if err := ix.LastError(); err != nil {
			st.LastError = err.Error()
		}
		out[strings.ToLower(ix.Name())] = st
	}
	httpkit.OK(c, out)
}
