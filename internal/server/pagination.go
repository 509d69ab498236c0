package server

import (
	"net/url"
	"strconv"

	"github.com/Tomlord1122/task-tracker/internal/service"
)

type pageLinks struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

// buildLinks returns page links that keep every other query parameter,
// so active filters survive paging.
func buildLinks(u *url.URL, meta service.PageMeta) pageLinks {
	link := func(page int) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		return u.Path + "?" + q.Encode()
	}

	links := pageLinks{
		First: link(1),
		Last:  link(meta.LastPage),
	}
	if meta.CurrentPage > 1 {
		prev := link(min(meta.CurrentPage-1, meta.LastPage))
		links.Prev = &prev
	}
	if meta.CurrentPage < meta.LastPage {
		next := link(meta.CurrentPage + 1)
		links.Next = &next
	}
	return links
}
