package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/dealercheck/internal/cnpj"
	"github.com/Veraticus/dealercheck/internal/dealer"
	"github.com/Veraticus/dealercheck/internal/risk"
)

type validateRequest struct {
	CNPJ string `json:"cnpj" validate:"required,max=32"`
}

type checkRequest struct {
	CNPJ        string `json:"cnpj" validate:"required,max=32"`
	CompanyName string `json:"company_name" validate:"max=200"`
	Concern     string `json:"concern" validate:"max=2000"`
}

type errorResponse struct {
	Error  string              `json:"error"`
	Input  string              `json:"input,omitempty"`
	Reason cnpj.Reason         `json:"reason,omitempty"`
	Result *dealer.CheckResult `json:"result,omitempty"`
}

// httpError carries a status code for the wrap error mapper.
type httpError struct {
	err    error
	status int
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &httpError{status: http.StatusBadRequest, err: err}
}

// providerFailure keeps the failed result so the client still sees it.
type providerFailure struct {
	err    error
	result dealer.CheckResult
}

func (e *providerFailure) Error() string { return e.err.Error() }
func (e *providerFailure) Unwrap() error { return e.err }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var (
			validationErr *cnpj.ValidationError
			statusErr     *httpError
			providerErr   *providerFailure
		)
		switch {
		case errors.As(err, &validationErr):
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:  validationErr.Error(),
				Input:  validationErr.Input,
				Reason: validationErr.Reason,
			})
		case errors.As(err, &statusErr):
			writeJSON(w, statusErr.status, errorResponse{Error: statusErr.Error()})
		case errors.As(err, &providerErr):
			result := providerErr.result
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: providerErr.Error(), Result: &result})
		case errors.Is(err, dealer.ErrProvider):
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		default:
			s.logger.Error("request failed", "path", r.URL.Path, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
	}
}

// POST /api/v1/validate
// Body: {"cnpj": "11.222.333/0001-81"}
// Always 200 for a well-formed request; validity is in the body.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) error {
	var body validateRequest
	if err := s.decode(w, r, &body); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.checker.ValidateIdentifier(body.CNPJ))
	return nil
}

// POST /api/v1/checks/{status|reputation|legal}
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) error {
	check := risk.Check(chi.URLParam(r, "check"))

	var body checkRequest
	if err := s.decode(w, r, &body); err != nil {
		return err
	}

	var (
		result dealer.CheckResult
		err    error
	)
	switch check {
	case risk.CheckStatus:
		result, err = s.checker.CheckStatus(r.Context(), body.CNPJ)
	case risk.CheckReputation:
		result, err = s.checker.CheckReputation(r.Context(), body.CNPJ, body.CompanyName)
	case risk.CheckLegal:
		result, err = s.checker.CheckLegal(r.Context(), body.CNPJ, body.CompanyName)
	default:
		return &httpError{status: http.StatusNotFound, err: fmt.Errorf("unknown check %q", check)}
	}
	if errors.Is(err, dealer.ErrProvider) {
		return &providerFailure{err: err, result: result}
	}
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, result)
	return nil
}

// POST /api/v1/checks/comprehensive
func (s *Server) handleComprehensive(w http.ResponseWriter, r *http.Request) error {
	var body checkRequest
	if err := s.decode(w, r, &body); err != nil {
		return err
	}

	report, err := s.checker.Comprehensive(r.Context(), dealer.Request{
		CNPJ:        body.CNPJ,
		CompanyName: body.CompanyName,
		Concern:     body.Concern,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, report)
	return nil
}

// decode reads a JSON body into dst and validates its tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return badRequest(fmt.Errorf("field %s failed %q validation", fe.Field(), fe.Tag()))
		}
		return badRequest(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
