package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPage  = 1
	defaultLimit = 10

	// multipart parts above this size are spooled to disk
	multipartMemory = 8 << 20
)

type envelope map[string]any

func (app *application) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}

	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

// writeSuccess writes a successful body: {success: true, message, ...data}.
func (app *application) writeSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data envelope) {
	env := envelope{"success": true, "message": message}
	for k, v := range data {
		env[k] = v
	}

	if err := app.writeJSON(w, status, env, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) parseJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("request body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("request body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("request body contains an invalid value for the %q field", unmarshalTypeError.Field)
			}
			return fmt.Errorf("request body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("request body contains unknown field %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("request body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}
	err = decoder.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("request body must only contain a single JSON value")
	}
	return nil
}

func (app *application) readIDParam(r *http.Request, key string) (primitive.ObjectID, error) {
	params := httprouter.ParamsFromContext(r.Context())

	id, err := primitive.ObjectIDFromHex(params.ByName(key))
	if err != nil {
		return primitive.NilObjectID, common.NewError(common.ErrBadInput, "Invalid ID parameter", err)
	}

	return id, nil
}

func (app *application) readStringParam(r *http.Request, key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// readPageParams reads pageNo and limit, defaulting to the first page of ten.
func (app *application) readPageParams(r *http.Request) (int, int, error) {
	qs := r.URL.Query()

	page, err := readInt(qs.Get("pageNo"), defaultPage)
	if err != nil {
		return 0, 0, common.NewError(common.ErrBadInput, "pageNo must be a number", err)
	}

	limit, err := readInt(qs.Get("limit"), defaultLimit)
	if err != nil {
		return 0, 0, common.NewError(common.ErrBadInput, "limit must be a number", err)
	}

	return page, limit, nil
}

func readInt(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

// readBlogForm reads the multipart body of a create or update request.
// Decoding and validation of the fields is left to the blog service.
func (app *application) readBlogForm(w http.ResponseWriter, r *http.Request) (*blogservice.RawPayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, app.config.MaxUploadBytes)

	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, common.NewError(common.ErrBadInput, fmt.Sprintf("Request body must not be larger than %d bytes", maxBytesError.Limit), err)
		}
		return nil, common.NewError(common.ErrBadInput, "Invalid form data", err)
	}

	raw := &blogservice.RawPayload{
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		Content:        r.FormValue("content"),
		Tag:            r.FormValue("tag"),
		Draft:          r.FormValue("draft"),
		ExistingImages: r.FormValue("existingImages"),
	}

	covers, err := readFiles(r.MultipartForm.File["image"])
	if err != nil {
		return nil, err
	}
	if len(covers) > 0 {
		raw.Cover = &covers[0]
	}

	raw.Images, err = readFiles(r.MultipartForm.File["images"])
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func readFiles(headers []*multipart.FileHeader) ([]mediaservice.Image, error) {
	images := make([]mediaservice.Image, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, common.NewError(common.ErrBadInput, "Invalid form data", err)
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, common.NewError(common.ErrBadInput, "Invalid form data", err)
		}

		images = append(images, mediaservice.Image{
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Data:        data,
		})
	}
	return images, nil
}
