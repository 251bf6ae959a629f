package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"go.uber.org/zap"
)

const (
	ordersPath        = "/wyvern/v1/orders"
	postOrderPath     = "/wyvern/v1/orders/post"
	assetContractPath = "/api/v1/asset_contract/"
	tokensPath        = "/api/v1/tokens"

	// MaxPageSize is the largest page the order book serves.
	MaxPageSize = 50
)

// OrderQuery filters the order book. Zero values are omitted.
type OrderQuery struct {
	Maker                common.Address
	Taker                common.Address
	Owner                common.Address
	Side                 *types.Side
	SaleKind             *types.SaleKind
	AssetContractAddress common.Address
	TokenID              string
	TokenIDs             []string
	PaymentTokenAddress  common.Address
	IsEnglish            *bool
	Bundled              *bool
	IncludeInvalid       bool
	ListedAfter          int64
	ListedBefore         int64
	OrderBy              string
	OrderDirection       string
	Limit                int
	Offset               int
}

func (q OrderQuery) values() url.Values {
	v := url.Values{}
	addr := func(key string, a common.Address) {
		if a != types.NullAddress {
			v.Set(key, strings.ToLower(a.Hex()))
		}
	}
	addr("maker", q.Maker)
	addr("taker", q.Taker)
	addr("owner", q.Owner)
	addr("asset_contract_address", q.AssetContractAddress)
	addr("payment_token_address", q.PaymentTokenAddress)

	if q.Side != nil {
		v.Set("side", strconv.Itoa(int(q.Side.Wire())))
	}
	if q.SaleKind != nil {
		v.Set("sale_kind", strconv.Itoa(int(q.SaleKind.Wire())))
	}
	if q.TokenID != "" {
		v.Set("token_id", q.TokenID)
	}
	for _, id := range q.TokenIDs {
		v.Add("token_ids", id)
	}
	if q.IsEnglish != nil {
		v.Set("is_english", strconv.FormatBool(*q.IsEnglish))
	}
	if q.Bundled != nil {
		v.Set("bundled", strconv.FormatBool(*q.Bundled))
	}
	if q.IncludeInvalid {
		v.Set("include_invalid", "true")
	}
	if q.ListedAfter > 0 {
		v.Set("listed_after", strconv.FormatInt(q.ListedAfter, 10))
	}
	if q.ListedBefore > 0 {
		v.Set("listed_before", strconv.FormatInt(q.ListedBefore, 10))
	}
	if q.OrderBy != "" {
		v.Set("order_by", q.OrderBy)
	}
	if q.OrderDirection != "" {
		v.Set("order_direction", q.OrderDirection)
	}

	limit := q.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	return v
}

type ordersResponse struct {
	Count  int                `json:"count"`
	Orders []wyvern.WireOrder `json:"orders"`
}

// PostOrder submits a signed order and returns the order as stored by the marketplace.
func (c *Client) PostOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	body, err := wyvern.Marshal(order)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{
		endpoint: "post-order",
		method:   http.MethodPost,
		path:     postOrderPath,
		body:     body,
	})
	if err != nil {
		return nil, fmt.Errorf("post order %s: %w", order.Hash.Hex(), err)
	}

	posted, err := wyvern.Unmarshal(resp)
	if err != nil {
		return nil, fmt.Errorf("decode posted order: %w", err)
	}

	c.logger.Debug("order-accepted",
		zap.String("hash", posted.Hash.Hex()))
	return posted, nil
}

// GetOrders returns one page of orders matching q and the total match count.
func (c *Client) GetOrders(ctx context.Context, q OrderQuery) ([]*types.Order, int, error) {
	resp, err := c.do(ctx, request{
		endpoint: "get-orders",
		method:   http.MethodGet,
		path:     ordersPath,
		query:    q.values(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("get orders: %w", err)
	}

	var page ordersResponse
	err = json.Unmarshal(resp, &page)
	if err != nil {
		return nil, 0, fmt.Errorf("unmarshal orders: %w", err)
	}

	orders := make([]*types.Order, 0, len(page.Orders))
	for i := range page.Orders {
		o, err := wyvern.Deserialize(&page.Orders[i])
		if err != nil {
			return nil, 0, fmt.Errorf("decode order %d: %w", i, err)
		}
		orders = append(orders, o)
	}

	c.logger.Debug("fetched-orders",
		zap.Int("count", len(orders)),
		zap.Int("total", page.Count))
	return orders, page.Count, nil
}

// GetOrder returns the first order matching q, or ErrNotFound.
func (c *Client) GetOrder(ctx context.Context, q OrderQuery) (*types.Order, error) {
	q.Limit = 1
	orders, _, err := c.GetOrders(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("get order: %w", types.ErrNotFound)
	}
	return orders[0], nil
}

type assetContractResponse struct {
	Address                     string `json:"address"`
	Name                        string `json:"name"`
	SchemaName                  string `json:"schema_name"`
	OpenseaBuyerFeeBasisPoints  any    `json:"opensea_buyer_fee_basis_points"`
	OpenseaSellerFeeBasisPoints any    `json:"opensea_seller_fee_basis_points"`
	DevBuyerFeeBasisPoints      any    `json:"dev_buyer_fee_basis_points"`
	DevSellerFeeBasisPoints     any    `json:"dev_seller_fee_basis_points"`
}

// GetAssetContract fetches the fee configuration of an asset contract.
func (c *Client) GetAssetContract(ctx context.Context, address common.Address) (*types.AssetContract, error) {
	resp, err := c.do(ctx, request{
		endpoint: "get-asset-contract",
		method:   http.MethodGet,
		path:     assetContractPath + strings.ToLower(address.Hex()),
	})
	if err != nil {
		return nil, fmt.Errorf("get asset contract %s: %w", address.Hex(), err)
	}

	var raw assetContractResponse
	err = json.Unmarshal(resp, &raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal asset contract: %w", err)
	}

	contract := &types.AssetContract{
		Address:    address,
		Name:       raw.Name,
		SchemaName: raw.SchemaName,
	}
	fields := []struct {
		name string
		raw  any
		dst  *int64
	}{
		{"opensea_buyer_fee_basis_points", raw.OpenseaBuyerFeeBasisPoints, &contract.MarketplaceBuyerFeeBasisPoints},
		{"opensea_seller_fee_basis_points", raw.OpenseaSellerFeeBasisPoints, &contract.MarketplaceSellerFeeBasisPoints},
		{"dev_buyer_fee_basis_points", raw.DevBuyerFeeBasisPoints, &contract.DevBuyerFeeBasisPoints},
		{"dev_seller_fee_basis_points", raw.DevSellerFeeBasisPoints, &contract.DevSellerFeeBasisPoints},
	}
	for _, f := range fields {
		*f.dst, err = basisPoints(f.raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
	}
	return contract, nil
}

// basisPoints accepts the API's mix of numeric and string-encoded fee fields.
func basisPoints(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(t), nil
	case string:
		if t == "" {
			return 0, nil
		}
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

type tokenResponse struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// PaymentToken looks up an ERC-20 accepted by the marketplace.
func (c *Client) PaymentToken(ctx context.Context, address common.Address) (*types.PaymentToken, error) {
	q := url.Values{}
	q.Set("address", strings.ToLower(address.Hex()))

	resp, err := c.do(ctx, request{
		endpoint: "get-tokens",
		method:   http.MethodGet,
		path:     tokensPath,
		query:    q,
	})
	if err != nil {
		return nil, fmt.Errorf("get payment token %s: %w", address.Hex(), err)
	}

	var tokens []tokenResponse
	err = json.Unmarshal(resp, &tokens)
	if err != nil {
		return nil, fmt.Errorf("unmarshal tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("get payment token %s: %w", address.Hex(), types.ErrNotFound)
	}

	return &types.PaymentToken{
		Address:  common.HexToAddress(tokens[0].Address),
		Symbol:   tokens[0].Symbol,
		Decimals: tokens[0].Decimals,
	}, nil
}

// WrappedNativeToken returns the canonical wrapped ether for network.
func (c *Client) WrappedNativeToken(network string) (common.Address, error) {
	return wyvern.WrappedNativeToken(network)
}
