package handlers

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"filevault/internal/service"
)

type pageResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func newPageResponse[M, T any](c *gin.Context, page service.Page[M], convert func(M) T) pageResponse[T] {
	results := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		results = append(results, convert(item))
	}

	resp := pageResponse[T]{Count: page.Count, Results: results}
	if page.HasNext() {
		next := pageURL(c, page.Number+1)
		resp.Next = &next
	}
	if page.HasPrevious() {
		previous := pageURL(c, page.Number-1)
		resp.Previous = &previous
	}
	return resp
}

// queryPage reads ?page=N, falling back to 1 for anything unusable.
func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// pageURL rebuilds the request URL pointing at page n. Page 1 drops the
// parameter.
func pageURL(c *gin.Context, n int) string {
	query := c.Request.URL.Query()
	if n <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(n))
	}
	u := url.URL{
		Scheme:   requestScheme(c),
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func absoluteURL(c *gin.Context, path string) string {
	u := url.URL{Scheme: requestScheme(c), Host: c.Request.Host, Path: path}
	return u.String()
}

func requestScheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
