package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/mselser95/nft-orders/internal/matching"
	"github.com/mselser95/nft-orders/internal/pricing"
	"github.com/mselser95/nft-orders/internal/storage"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// MatchChecker validates a buy/sell pair.
type MatchChecker interface {
	Validate(ctx context.Context, buy, sell *types.Order) error
}

// OrdersHandler serves the order endpoints.
type OrdersHandler struct {
	store     storage.Storage
	validator MatchChecker
	now       func() time.Time
	logger    *zap.Logger
}

// NewOrdersHandler creates an orders handler. store may be nil, in which case
// the listing endpoints are not mounted.
func NewOrdersHandler(store storage.Storage, validator MatchChecker, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		store:     store,
		validator: validator,
		now:       time.Now,
		logger:    logger,
	}
}

// Routes mounts the handler on r.
func (h *OrdersHandler) Routes(r chi.Router) {
	r.Post("/hash", h.HandleHash)
	r.Post("/price", h.HandlePrice)
	r.Post("/validate-match", h.HandleValidateMatch)
	if h.store != nil {
		r.Get("/", h.HandleList)
		r.Get("/{hash}", h.HandleGet)
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HashResponse is returned by POST /api/orders/hash.
type HashResponse struct {
	Hash           string `json:"hash"`
	Signed         bool   `json:"signed"`
	SignatureValid bool   `json:"signature_valid"`
}

// HandleHash canonicalizes a wire order and returns its hash.
func (h *OrdersHandler) HandleHash(w http.ResponseWriter, r *http.Request) {
	var wire wyvern.WireOrder
	if !h.decodeBody(w, r, &wire) {
		return
	}

	o, err := wyvern.Deserialize(&wire)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeJSON(w, http.StatusOK, HashResponse{
		Hash:           o.Hash.Hex(),
		Signed:         o.Signature != nil,
		SignatureValid: o.Signature != nil && wyvern.VerifySignature(o),
	})
}

// PriceRequest is the body of POST /api/orders/price.
type PriceRequest struct {
	Order            wyvern.WireOrder `json:"order"`
	BacktrackSeconds int64            `json:"backtrack_seconds"`
	RoundUp          bool             `json:"round_up"`
}

// PriceResponse carries prices in base units of the payment token.
type PriceResponse struct {
	Hash          string `json:"hash"`
	CurrentPrice  string `json:"current_price"`
	PriceWithFees string `json:"price_with_fees"`
	EvaluatedAt   int64  `json:"evaluated_at"`
}

// HandlePrice estimates the current settlement price of an order.
func (h *OrdersHandler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.BacktrackSeconds < 0 {
		h.writeError(w, "backtrack_seconds must not be negative", http.StatusBadRequest)
		return
	}

	o, err := wyvern.Deserialize(&req.Order)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	now := h.now()
	backtrack := time.Duration(req.BacktrackSeconds) * time.Second
	h.writeJSON(w, http.StatusOK, PriceResponse{
		Hash:          o.Hash.Hex(),
		CurrentPrice:  pricing.CurrentPrice(&o.UnhashedOrder, now, backtrack, req.RoundUp).String(),
		PriceWithFees: pricing.CurrentPriceWithFees(&o.UnhashedOrder, now, backtrack, req.RoundUp).String(),
		EvaluatedAt:   now.Unix(),
	})
}

// MatchRequest is the body of POST /api/orders/validate-match.
type MatchRequest struct {
	Buy  wyvern.WireOrder `json:"buy"`
	Sell wyvern.WireOrder `json:"sell"`
}

// MatchResponse reports whether a pair can settle and, if not, why.
type MatchResponse struct {
	Matchable bool   `json:"matchable"`
	Rule      string `json:"rule,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// HandleValidateMatch runs the match rules against a buy/sell pair.
func (h *OrdersHandler) HandleValidateMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	buy, err := wyvern.Deserialize(&req.Buy)
	if err != nil {
		h.writeError(w, "buy: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	sell, err := wyvern.Deserialize(&req.Sell)
	if err != nil {
		h.writeError(w, "sell: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err = h.validator.Validate(r.Context(), buy, sell)
	var mErr *matching.MatchError
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, MatchResponse{Matchable: true})
	case errors.As(err, &mErr):
		h.writeJSON(w, http.StatusOK, MatchResponse{Rule: mErr.Rule, Reason: mErr.Error()})
	default:
		h.logger.Error("match-validation-failed", zap.Error(err))
		h.writeError(w, "match validation unavailable", http.StatusBadGateway)
	}
}

// HandleList lists stored orders. Query parameters: maker, target, side
// (buy|sell), include_closed, limit.
func (h *OrdersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.Filter{}

	for _, f := range []struct {
		key string
		dst *common.Address
	}{{"maker", &filter.Maker}, {"target", &filter.Target}} {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		if !common.IsHexAddress(v) {
			h.writeError(w, "invalid "+f.key+" address", http.StatusBadRequest)
			return
		}
		*f.dst = common.HexToAddress(v)
	}

	switch strings.ToLower(q.Get("side")) {
	case "":
	case "buy":
		side := types.SideBuy
		filter.Side = &side
	case "sell":
		side := types.SideSell
		filter.Side = &side
	default:
		h.writeError(w, "side must be buy or sell", http.StatusBadRequest)
		return
	}

	filter.IncludeClosed = q.Get("include_closed") == "true"
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	orders, err := h.store.ListOrders(r.Context(), filter)
	if err != nil {
		h.logger.Error("list-orders-failed", zap.Error(err))
		h.writeError(w, "list orders failed", http.StatusInternalServerError)
		return
	}

	out := make([]*wyvern.WireOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, wyvern.Serialize(o))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one stored order by hash.
func (h *OrdersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "hash")
	if len(strings.TrimPrefix(raw, "0x")) != 2*common.HashLength {
		h.writeError(w, "invalid order hash", http.StatusBadRequest)
		return
	}

	o, err := h.store.GetOrder(r.Context(), common.HexToHash(raw))
	if errors.Is(err, types.ErrNotFound) {
		h.writeError(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get-order-failed", zap.String("hash", raw), zap.Error(err))
		h.writeError(w, "get order failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, wyvern.Serialize(o))
}

func (h *OrdersHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *OrdersHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *OrdersHandler) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}
