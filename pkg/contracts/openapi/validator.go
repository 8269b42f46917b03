package openapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// Validator checks HTTP exchanges against the service's OpenAPI contract.
type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewValidator loads and validates the contract document, then builds the
// route matcher that pairs requests with operations.
func NewValidator(specPath string) (*Validator, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI document %s: %w", specPath, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("OpenAPI document %s is not valid: %w", specPath, err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}

	return &Validator{doc: doc, router: router}, nil
}

// ValidateRequest checks method, path, parameters and body of a request
// against the operation it routes to.
func (v *Validator) ValidateRequest(req *http.Request) error {
	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("no operation matches %s %s: %w", req.Method, req.URL.Path, err)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError: true,
		},
	}

	if err := openapi3filter.ValidateRequest(context.Background(), input); err != nil {
		return fmt.Errorf("request violates contract: %w", err)
	}
	return nil
}

// ValidateResponse checks status, headers and body of a response against the
// operation the request routes to. The response body is restored afterwards
// so callers can still read it.
func (v *Validator) ValidateResponse(req *http.Request, resp *http.Response) error {
	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("no operation matches %s %s: %w", req.Method, req.URL.Path, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewBuffer(body))

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   io.NopCloser(bytes.NewBuffer(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	}

	if err := openapi3filter.ValidateResponse(context.Background(), input); err != nil {
		return fmt.Errorf("response violates contract: %w", err)
	}
	return nil
}

// ValidateRequestResponse checks both sides of an exchange.
func (v *Validator) ValidateRequestResponse(req *http.Request, resp *http.Response) error {
	if err := v.ValidateRequest(req); err != nil {
		return err
	}
	return v.ValidateResponse(req, resp)
}

// GetOperationID returns the operation ID the request routes to.
func (v *Validator) GetOperationID(req *http.Request) (string, error) {
	route, _, err := v.router.FindRoute(req)
	if err != nil {
		return "", fmt.Errorf("no operation matches %s %s: %w", req.Method, req.URL.Path, err)
	}
	return route.Operation.OperationID, nil
}

// GetDocument returns the parsed contract document.
func (v *Validator) GetDocument() *openapi3.T {
	return v.doc
}

// GetPaths returns every path the contract defines.
func (v *Validator) GetPaths() []string {
	if v.doc.Paths == nil {
		return nil
	}

	paths := make([]string, 0, v.doc.Paths.Len())
	for path := range v.doc.Paths.Map() {
		paths = append(paths, path)
	}
	return paths
}
