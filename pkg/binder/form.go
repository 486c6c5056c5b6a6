package binder

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
)

// File binds a multipart/form-data request. Regular fields use the `form`
// tag; a `file` tagged *multipart.FileHeader field receives the first upload
// under that name. The whole body is capped at maxBytes, and parts beyond
// maxMemory are spooled to temporary files that the server removes after
// the request.
func File(maxBytes, maxMemory int64) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			return fmt.Errorf("%w: expected multipart/form-data", ErrUnsupportedMediaType)
		}
		if params["boundary"] == "" {
			return fmt.Errorf("%w: missing boundary", ErrInvalidForm)
		}

		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBytes)
			}
			return fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}

		if err := bindToStruct(v, "form", r.MultipartForm.Value, ErrInvalidForm); err != nil {
			return err
		}
		return bindFiles(v, r.MultipartForm.File)
	}
}

var fileHeaderType = reflect.TypeOf((*multipart.FileHeader)(nil))

func bindFiles(v any, files map[string][]*multipart.FileHeader) error {
	rv := reflect.ValueOf(v).Elem()
	rt := rv.Type()
	for i := range rv.NumField() {
		sf := rt.Field(i)
		name, ok := paramName(sf, "file")
		if !ok || !rv.Field(i).CanSet() {
			continue
		}
		if sf.Type != fileHeaderType {
			return fmt.Errorf("%w: field %s must be *multipart.FileHeader", ErrInvalidForm, sf.Name)
		}
		if fhs := files[name]; len(fhs) > 0 {
			fhs[0].Filename = sanitizeFilename(fhs[0].Filename)
			rv.Field(i).Set(reflect.ValueOf(fhs[0]))
		}
	}
	return nil
}

// sanitizeFilename strips directory components and NUL bytes.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "\x00", "")
	if name == "." || name == ".." || name == "/" || name == "" {
		return "unnamed"
	}
	return name
}
