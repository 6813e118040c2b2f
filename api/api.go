// Package api exposes a Market over HTTP using chi.
//
// Read routes are public. Purchase and admin routes act on behalf of the
// caller resolved by a CallerFunc. The default resolver trusts the
// X-Paymarket-Caller header and is meant for deployments behind a gateway
// that authenticates the account and sets that header.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/paymarket"
)

// CallerHeader carries the caller address for HeaderCaller.
const CallerHeader = "X-Paymarket-Caller"

const requestLimit = 1 << 20 // 1 MiB

// ErrNoCaller is returned by a CallerFunc when the request names no caller.
var ErrNoCaller = errors.New("api: caller not identified")

// CallerFunc resolves the account a request acts for.
type CallerFunc func(r *http.Request) (common.Address, error)

// HeaderCaller reads the caller from the X-Paymarket-Caller header.
func HeaderCaller(r *http.Request) (common.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(CallerHeader))
	if raw == "" {
		return common.Address{}, ErrNoCaller
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, paymarket.ValidationError{Field: CallerHeader, Message: "not a hex address"}
	}
	return common.HexToAddress(raw), nil
}

// Server serves the market API.
type Server struct {
	market  *paymarket.Market
	caller  CallerFunc
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithCallerFunc replaces the caller resolver.
func WithCallerFunc(fn CallerFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.caller = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds each request's market call.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Server for m.
func New(m *paymarket.Market, opts ...Option) *Server {
	s := &Server{
		market:  m,
		caller:  HeaderCaller,
		logger:  slog.Default(),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/market", s.getMarket)
		r.Get("/vendors", s.listVendors)
		r.Get("/vendors/{vendorID}", s.getVendor)
		r.Get("/tokens", s.listTokens)
		r.Get("/tokens/{token}", s.getToken)

		r.Group(func(r chi.Router) {
			r.Use(s.requireCaller)

			r.Post("/purchases/native", s.purchaseNative)
			r.Post("/purchases/token", s.purchaseToken)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/owner", s.transferOwnership)
				r.Post("/pause", s.pause)
				r.Post("/unpause", s.unpause)
				r.Put("/tokens/{token}", s.addToken)
				r.Delete("/tokens/{token}", s.removeToken)
				r.Put("/vendors/{vendorID}", s.registerVendor)
				r.Patch("/vendors/{vendorID}", s.updateVendor)
				r.Put("/fees/rate", s.updateFeeRate)
				r.Put("/fees/recipient", s.updateFeeRecipient)
			})
		})
	})

	return r
}

// requireCaller resolves the caller and stores it in the request context.
func (s *Server) requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.caller(r)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, paymarket.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			writeJSONError(w, status, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(paymarket.WithCaller(r.Context(), caller)))
	})
}

func (s *Server) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.timeout)
}
