package handler

import "net/http"

type redirectResponse struct {
	url    string
	status int
}

func (r redirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	http.Redirect(w, req, r.url, r.status)
	return nil
}

// Redirect responds 303 See Other to url.
func Redirect(url string) Response {
	return redirectResponse{url: url, status: http.StatusSeeOther}
}
