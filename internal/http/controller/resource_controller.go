package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/resource"
)

const (
	keyParam  = "key"
	itemParam = "item"
)

// ResourceController serves the raw endpoints of one kind.
type ResourceController struct {
	kind model.Kind
	ops  resource.Operations
}

// NewResourceController creates a ResourceController for kind backed by ops.
func NewResourceController(kind model.Kind, ops resource.Operations) *ResourceController {
	return &ResourceController{
		kind: kind,
		ops:  ops,
	}
}

// Kind returns the kind this controller serves.
func (rc *ResourceController) Kind() model.Kind {
	return rc.kind
}

// Create handles POST /{kind}/:key.
func (rc *ResourceController) Create(c *gin.Context) {
	key, ok := param(c, keyParam)
	if !ok {
		return
	}
	body, ok := rawBody(c)
	if !ok {
		return
	}
	respond(c, rc.ops.Create(c.Request.Context(), key, body))
}

// Read handles GET /{kind}/:key.
func (rc *ResourceController) Read(c *gin.Context) {
	key, ok := param(c, keyParam)
	if !ok {
		return
	}
	respond(c, rc.ops.Read(c.Request.Context(), key, c.Request.URL.Query()))
}

// List handles GET /{kind}.
func (rc *ResourceController) List(c *gin.Context) {
	respond(c, rc.ops.List(c.Request.Context(), c.Request.URL.Query()))
}

// Update handles PUT /{kind}/:key.
func (rc *ResourceController) Update(c *gin.Context) {
	key, ok := param(c, keyParam)
	if !ok {
		return
	}
	body, ok := rawBody(c)
	if !ok {
		return
	}
	respond(c, rc.ops.Update(c.Request.Context(), key, body))
}

// Delete handles DELETE /{kind}/:key.
func (rc *ResourceController) Delete(c *gin.Context) {
	key, ok := param(c, keyParam)
	if !ok {
		return
	}
	respond(c, rc.ops.Delete(c.Request.Context(), key))
}

// ReadItem handles GET /{kind}/:key/:item.
func (rc *ResourceController) ReadItem(c *gin.Context) {
	key, item, ok := itemParams(c)
	if !ok {
		return
	}
	respond(c, rc.ops.ReadItem(c.Request.Context(), key, item, c.Request.URL.Query()))
}

// UpdateItem handles PUT /{kind}/:key/:item.
func (rc *ResourceController) UpdateItem(c *gin.Context) {
	key, item, ok := itemParams(c)
	if !ok {
		return
	}
	body, ok := rawBody(c)
	if !ok {
		return
	}
	respond(c, rc.ops.UpdateItem(c.Request.Context(), key, item, body))
}

// DeleteItem handles DELETE /{kind}/:key/:item.
func (rc *ResourceController) DeleteItem(c *gin.Context) {
	key, item, ok := itemParams(c)
	if !ok {
		return
	}
	respond(c, rc.ops.DeleteItem(c.Request.Context(), key, item))
}

func itemParams(c *gin.Context) (int64, int64, bool) {
	key, ok := param(c, keyParam)
	if !ok {
		return 0, 0, false
	}
	item, ok := param(c, itemParam)
	if !ok {
		return 0, 0, false
	}
	return key, item, true
}

// param parses a positive id path parameter, answering 400 otherwise.
func param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		middleware.Abort(c, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func rawBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		middleware.Abort(c, http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func respond(c *gin.Context, o outcome.Outcome) {
	if o.Body == nil {
		o = outcome.Status(o.StatusCode)
	}
	c.Data(o.StatusCode, gin.MIMEJSON+"; charset=utf-8", o.Body)
}
