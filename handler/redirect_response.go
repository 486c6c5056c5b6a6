package handler

import "net/http"

type redirectResponse struct {
	url    string
	status int
}

func (rr redirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, rr.url, rr.status)
	return nil
}

// Redirect sends a 307 Temporary Redirect to url.
func Redirect(url string) Response {
	return redirectResponse{url: url, status: http.StatusTemporaryRedirect}
}
