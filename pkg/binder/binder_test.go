package binder_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/binder"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func jsonRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	bind := binder.JSON(64)

	t.Run("decodes body verbatim", func(t *testing.T) {
		t.Parallel()
		var req loginRequest
		err := bind(jsonRequest(`{"email":" A@B.io ","password":"  pw  "}`, "application/json; charset=utf-8"), &req)
		require.NoError(t, err)
		assert.Equal(t, " A@B.io ", req.Email)
		assert.Equal(t, "  pw  ", req.Password)
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		want        error
	}{
		{"missing content type", `{}`, "", binder.ErrUnsupportedMediaType},
		{"wrong content type", `{}`, "text/plain", binder.ErrUnsupportedMediaType},
		{"empty body", ``, "application/json", binder.ErrInvalidJSON},
		{"syntax error", `{"email":}`, "application/json", binder.ErrInvalidJSON},
		{"truncated", `{"email":"a"`, "application/json", binder.ErrInvalidJSON},
		{"wrong type", `{"email":1}`, "application/json", binder.ErrInvalidJSON},
		{"unknown field", `{"role":"ADMIN"}`, "application/json", binder.ErrInvalidJSON},
		{"trailing data", `{"email":"a"} {"email":"b"}`, "application/json", binder.ErrInvalidJSON},
		{"too large", `{"email":"` + strings.Repeat("a", 100) + `"}`, "application/json", binder.ErrBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var req loginRequest
			require.ErrorIs(t, bind(jsonRequest(tt.body, tt.contentType), &req), tt.want)
		})
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	type page struct {
		Limit  int      `query:"limit"`
		Offset int      `query:"offset"`
		Roles  []string `query:"role"`
		Active *bool    `query:"active"`
		Hidden string   `query:"-"`
	}

	t.Run("binds and keeps defaults", func(t *testing.T) {
		t.Parallel()
		p := page{Limit: 50, Offset: 0}
		r := httptest.NewRequest(http.MethodGet, "/?offset=20&role=ADMIN,USER&active=true&Hidden=x", nil)
		require.NoError(t, binder.Query()(r, &p))
		assert.Equal(t, 50, p.Limit)
		assert.Equal(t, 20, p.Offset)
		assert.Equal(t, []string{"ADMIN", "USER"}, p.Roles)
		require.NotNil(t, p.Active)
		assert.True(t, *p.Active)
		assert.Empty(t, p.Hidden)
	})

	t.Run("invalid integer", func(t *testing.T) {
		t.Parallel()
		var p page
		r := httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
		require.ErrorIs(t, binder.Query()(r, &p), binder.ErrInvalidQuery)
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		require.ErrorIs(t, binder.Query()(r, page{}), binder.ErrInvalidQuery)
	})
}

type avatarUpload struct {
	Caption string                `form:"caption"`
	Avatar  *multipart.FileHeader `file:"avatar"`
}

func multipartRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("caption", "me"))
	fw, err := mw.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPut, "/me/avatar", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestFile(t *testing.T) {
	t.Parallel()

	t.Run("binds value and file", func(t *testing.T) {
		t.Parallel()
		var req avatarUpload
		r := multipartRequest(t, "../../etc/me.png", []byte("png-bytes"))
		require.NoError(t, binder.File(1<<20, 1<<10)(r, &req))

		assert.Equal(t, "me", req.Caption)
		require.NotNil(t, req.Avatar)
		assert.Equal(t, "me.png", req.Avatar.Filename)

		f, err := req.Avatar.Open()
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
	})

	t.Run("body over limit", func(t *testing.T) {
		t.Parallel()
		var req avatarUpload
		r := multipartRequest(t, "big.png", bytes.Repeat([]byte{1}, 4096))
		require.ErrorIs(t, binder.File(1024, 512)(r, &req), binder.ErrBodyTooLarge)
	})

	t.Run("not multipart", func(t *testing.T) {
		t.Parallel()
		var req avatarUpload
		require.ErrorIs(t, binder.File(1024, 512)(jsonRequest(`{}`, "application/json"), &req), binder.ErrUnsupportedMediaType)
	})
}
